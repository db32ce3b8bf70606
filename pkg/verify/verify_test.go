package verify

import (
	"strings"
	"testing"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/manifest"
)

const pipfile = `
[[source]]
name = "pypi"
url = "https://pypi.org/simple"
verify_ssl = true

[packages]
requests = "*"

[requires]
python_version = "3.11"
`

func locked(t *testing.T, content string) *lock.Lockfile {
	t.Helper()
	m, err := manifest.Parse([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	return lock.New(nil, nil, m)
}

func TestVerify(t *testing.T) {
	lf := locked(t, pipfile)

	tests := []struct {
		name      string
		content   string
		lf        *lock.Lockfile
		wantFresh bool
		reason    string
	}{
		{"Fresh", pipfile, lf, true, ""},
		{"Reformatted", "# comment\n" + strings.ReplaceAll(pipfile, " = ", "=") + "\n\n", lf, true, ""},
		{"PackageAdded", pipfile + "\n[dev-packages]\npytest = \"*\"\n", lf, false, "does not match"},
		{"SpecChanged", strings.Replace(pipfile, `requests = "*"`, `requests = ">=2.0"`, 1), lf, false, "does not match"},
		{"RequiresChanged", strings.Replace(pipfile, `"3.11"`, `"3.12"`, 1), lf, false, "does not match"},
		{"NoLock", pipfile, nil, false, "no lock artifact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Verify([]byte(tt.content), tt.lf)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if res.Fresh != tt.wantFresh {
				t.Errorf("Fresh = %v, want %v (%s)", res.Fresh, tt.wantFresh, res.Reason)
			}
			if !strings.Contains(res.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", res.Reason, tt.reason)
			}
		})
	}
}

func TestVerifyShowsShortHashes(t *testing.T) {
	lf := locked(t, pipfile)
	lf.Meta.Hash = "0123456789abcdef"
	res := Check("fedcba9876543210", lf)
	if res.Reason != "manifest fingerprint fedcba98 does not match lock 01234567" {
		t.Errorf("Reason = %q", res.Reason)
	}
	if res.Recorded != lf.Meta.Hash || res.Expected != "fedcba9876543210" {
		t.Errorf("unexpected fingerprints %+v", res)
	}
}

func TestVerifyInvalidManifest(t *testing.T) {
	_, err := Verify([]byte("[packages\n"), nil)
	if !errs.Is(err, errs.ErrCodeParse) {
		t.Errorf("expected parse error, got %v", err)
	}
}
