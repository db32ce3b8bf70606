package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

const samplePipfile = `
[[source]]
name = "pypi"
url = "https://pypi.org/simple"
verify_ssl = true

[packages]
tablib = "*"
Requests = {version = ">=2.20", extras = ["socks"]}

[dev-packages]
pytest = ">=7"

[requires]
python_version = "3.11"

[pipenv]
allow_prereleases = true
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(samplePipfile))
	require.NoError(t, err)

	reqs, err := m.Requirements(SectionDefault)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "Requests", reqs[0].Name)
	assert.Equal(t, []string{"socks"}, reqs[0].Extras)
	assert.Equal(t, "tablib", reqs[1].Name)

	dev, err := m.Requirements(SectionDevelop)
	require.NoError(t, err)
	require.Len(t, dev, 1)
	assert.Equal(t, ">=7", dev[0].SpecifierString())

	assert.Equal(t, "3.11", m.PythonVersion())
	assert.True(t, m.AllowPrereleases())
	assert.Equal(t, []Source{DefaultSource}, m.Sources())
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	tests := []string{
		"[packages]\nrequests = \"2.0\"\n",
		"[packages]\n\"u/\\\\/p@r$34b13+pkg\" = \"*\"\n",
		"[packages\n",
		"[[source]]\nname = \"x\"\n",
		"[[source]]\nname = \"x\"\nurl = \"ftp://mirror.example.com\"\n",
	}
	for _, content := range tests {
		_, err := Parse([]byte(content))
		require.Error(t, err, content)
		assert.True(t, errs.Is(err, errs.ErrCodeParse), "code = %q", errs.GetCode(err))
	}
}

func TestDefaultSourceWhenMissing(t *testing.T) {
	m, err := Parse([]byte("[packages]\nsix = \"*\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []Source{DefaultSource}, m.Sources())
}

func TestFingerprintIgnoresFormatting(t *testing.T) {
	a := []byte("[packages]\nsix = \"*\"\nrequests = \">=2\"\n")
	b := []byte("# comment\n[packages]\nrequests   = '>=2'   # pinned\n\nsix = \"*\"\n")

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)
}

func TestFingerprintSensitiveToContent(t *testing.T) {
	base := "[packages]\nsix = \"*\"\n"
	variants := []string{
		"[packages]\nsix = \">=1.16\"\n",
		"[packages]\nsix = \"*\"\nattrs = \"*\"\n",
		"[packages]\nsix = \"*\"\n[dev-packages]\npytest = \"*\"\n",
		"[packages]\nsix = \"*\"\n[requires]\npython_version = \"3.12\"\n",
		"[[source]]\nname = \"internal\"\nurl = \"https://pkgs.example.com/simple\"\nverify_ssl = true\n[packages]\nsix = \"*\"\n",
	}
	fp, err := Fingerprint([]byte(base))
	require.NoError(t, err)
	for _, v := range variants {
		other, err := Fingerprint([]byte(v))
		require.NoError(t, err)
		assert.NotEqual(t, fp, other, v)
	}
}

func TestAddAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(samplePipfile), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	before := m.Fingerprint()

	require.NoError(t, m.Add(SectionDefault, requirement.MustParse("requests[security]>=2.31")))
	require.NoError(t, m.Add(SectionDevelop, requirement.MustParse("black")))
	require.NoError(t, m.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	reqs, err := reloaded.Requirements(SectionDefault)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "requests", reqs[0].Name)
	assert.Equal(t, ">=2.31", reqs[0].SpecifierString())
	assert.Equal(t, []string{"security"}, reqs[0].Extras)
	assert.NotEqual(t, before, reloaded.Fingerprint())
	assert.Equal(t, m.Fingerprint(), reloaded.Fingerprint())

	assert.True(t, reloaded.Remove(SectionDevelop, "Black"))
	assert.False(t, reloaded.Remove(SectionDevelop, "black"))
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), nil, 0o644))

	got, err := Find(nested, 2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), got)

	_, err = Find(nested, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	m := New(path)
	require.NoError(t, m.Add(SectionDefault, requirement.MustParse("flask>=3")))
	require.NoError(t, m.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Source{DefaultSource}, reloaded.Sources())
	reqs, err := reloaded.Requirements(SectionDefault)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "flask", reqs[0].Name)
	assert.Equal(t, m.Fingerprint(), reloaded.Fingerprint())
}
