// Package requirement models a single dependency declaration.
//
// A [Requirement] carries a package name, a PEP 440 specifier set, requested
// extras, an optional PEP 508 environment marker, a source (package index,
// VCS checkout, local path or archive URL) and an editable flag. Requirements
// come from two places:
//
//   - [Parse] reads PEP 508 lines as found in package metadata and on the
//     command line ("requests[socks]>=2.8; python_version >= '3.7'").
//   - [FromPipfile] converts a manifest entry, either a specifier string or a
//     table of options.
//
// Both reject malformed input with an INVALID_REQUIREMENT error rather than
// accepting a partial value, so callers never persist a requirement that
// cannot be read back.
//
// The identity of a requirement is its PEP 503 normalized name ([Normalize]).
// Two requirements for the same package are combined with [Merge], which
// intersects specifiers and unions extras, and fails with a
// *errors.ConflictError when the result is statically unsatisfiable or the
// sources disagree.
package requirement
