// Package markers parses and evaluates PEP 508 environment markers.
//
// A marker is a boolean expression over attributes of the target
// environment:
//
//	m, err := markers.Parse(`python_version < "3.8" and sys_platform == "win32"`)
//	ok := m.Evaluate(markers.NewEnvironment("windows", "amd64", "3.7"))
//
// Version-valued comparisons use PEP 440 ordering when both sides parse as
// versions and fall back to string comparison otherwise.
//
// # Extras
//
// The extra variable gates requirements behind optional features of the
// requiring package. It is never part of a real environment: callers bind it
// explicitly with [Environment.With] when checking whether a requirement
// applies for a requested extra. [Marker.WithoutExtras] removes those gates
// once the decision has been made, leaving only the platform conditions.
package markers
