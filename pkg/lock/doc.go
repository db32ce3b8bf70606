// Package lock reads and writes the lock artifact (Pipfile.lock).
//
// A [Lockfile] pairs the fingerprint and metadata of the manifest it was
// computed from with the resolved default and develop sections. [Encode]
// produces stable bytes: keys are sorted, fields appear in a fixed order and
// the output is indented with four spaces, so re-locking an unchanged project
// yields an identical file that diffs cleanly.
//
//	{
//	    "_meta": {"hash": {"sha256": "..."}, "pipfile-spec": 6, "requires": {...}, "sources": [...]},
//	    "default": {"six": {"hashes": ["sha256:..."], "index": "pypi", "version": "==1.16.0"}},
//	    "develop": {}
//	}
//
// Every entry records all published hashes of the pinned version, not only
// the one that happens to be installed.
//
// [WriteFile] replaces the artifact atomically. [Requirements] exports a
// section as requirements.txt lines.
package lock
