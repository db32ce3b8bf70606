// Package io provides the file and JSON plumbing shared by the manifest,
// lock and render packages.
//
// # Atomic Writes
//
// [WriteFileAtomic] writes to a temporary file in the destination directory,
// syncs it and renames it over the target. A crash at any point leaves either
// the previous file or the complete new one, never a truncated artifact:
//
//	if err := io.WriteFileAtomic("Pipfile.lock", data, 0o644); err != nil {
//	    return err
//	}
//
// # JSON
//
// [WriteJSON] encodes with a fixed indent and without HTML escaping so that
// specifiers such as "<2,>=1.0" appear verbatim. [CanonicalJSON] produces the
// compact, key-sorted, ASCII-only form used for content fingerprints.
package io
