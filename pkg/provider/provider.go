package provider

import (
	"context"
	"errors"

	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// ErrNotFound is returned when a package or version does not exist.
var ErrNotFound = errors.New("package not found")

// Provider supplies package metadata to the resolver.
//
// Versions returns every published version of a package in ascending order.
// Requirements returns the requirements the given version declares, including
// marker and extra gated ones. Hashes returns "sha256:<hex>" digests of every
// distributable artifact of the version.
//
// Implementations must be safe for concurrent use. Names are passed in
// normalized form.
type Provider interface {
	Versions(ctx context.Context, name string) ([]pep440.Version, error)
	Requirements(ctx context.Context, name string, version pep440.Version) ([]requirement.Requirement, error)
	Hashes(ctx context.Context, name string, version pep440.Version) ([]string, error)
}
