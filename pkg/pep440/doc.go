// Package pep440 implements Python package versions and version specifiers.
//
// # Versions
//
// [Parse] accepts every form PEP 440 allows, including epochs (1!2.0),
// pre-releases (1.0a1, 1.0rc2, 1.0-beta.3), post-releases (1.0.post1, 1.0-1),
// development releases (1.0.dev4) and local labels (1.0+ubuntu.1). Versions
// form a total order:
//
//	1.0.dev0 < 1.0a1 < 1.0b2 < 1.0rc1 < 1.0 < 1.0.post1 < 1.1
//
// Trailing zeros are insignificant, so 1.0 and 1.0.0 compare equal.
//
// # Specifiers
//
// [ParseSpecifiers] parses comma separated clauses combined by logical AND.
// The operators ==, !=, <=, >=, <, >, ~= and === are supported, as are
// wildcards (==1.2.*, !=1.2.*). Pre-release candidates are only admitted when
// asked for, when a clause names a pre-release, or (via [Specifiers.Filter])
// when no final release matches.
//
// [Specifiers.Satisfiable] detects contradictions such as ">=2.0,<1.0"
// without consulting any version list. The requirement merger relies on it to
// report conflicts before resolution starts.
package pep440
