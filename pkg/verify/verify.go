// Package verify checks whether a lock artifact is still current for its
// manifest.
//
// The check compares the manifest fingerprint with the one recorded in the
// artifact. It never consults a provider and never resolves.
package verify

import (
	"fmt"

	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/manifest"
)

// Result is the outcome of a freshness check.
type Result struct {
	Fresh bool
	// Reason explains a stale result and is empty when Fresh.
	Reason string
	// Expected is the manifest fingerprint, Recorded the one in the lock.
	Expected string
	Recorded string
}

// Verify reports whether lf was computed from manifestContent. A nil lf is
// stale. Unparsable manifest content is returned as an error.
func Verify(manifestContent []byte, lf *lock.Lockfile) (Result, error) {
	want, err := manifest.Fingerprint(manifestContent)
	if err != nil {
		return Result{}, err
	}
	return Check(want, lf), nil
}

// Check compares a precomputed manifest fingerprint with lf.
func Check(fingerprint string, lf *lock.Lockfile) Result {
	res := Result{Expected: fingerprint}
	if lf == nil {
		res.Reason = "no lock artifact"
		return res
	}
	res.Recorded = lf.Meta.Hash
	if lf.Meta.Hash != fingerprint {
		res.Reason = fmt.Sprintf("manifest fingerprint %s does not match lock %s", short(fingerprint), short(lf.Meta.Hash))
		return res
	}
	res.Fresh = true
	return res
}

func short(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
