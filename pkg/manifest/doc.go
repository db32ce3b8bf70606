// Package manifest reads and writes the human-edited project manifest
// (Pipfile).
//
// The manifest is TOML with two requirement sections, [packages] and
// [dev-packages], plus [[source]] index declarations and a [requires] table
// for interpreter constraints:
//
//	[[source]]
//	name = "pypi"
//	url = "https://pypi.org/simple"
//	verify_ssl = true
//
//	[packages]
//	requests = {version = ">=2.20", extras = ["socks"]}
//	tablib = "*"
//
//	[dev-packages]
//	pytest = ">=7"
//
//	[requires]
//	python_version = "3.11"
//
// [Load] and [Parse] reject any entry that does not convert into a valid
// requirement. [Manifest.Add] validates the new value before touching the
// document, and [Manifest.Save] replaces the file atomically.
//
// [Manifest.Fingerprint] identifies the manifest content that a lock
// artifact was computed from.
package manifest
