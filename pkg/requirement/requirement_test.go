package requirement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/pep440"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line   string
		name   string
		spec   string
		extras []string
		marker string
		kind   SourceKind
	}{
		{line: "requests", name: "requests", spec: "*"},
		{line: "requests>=2.8.1", name: "requests", spec: ">=2.8.1"},
		{line: "Requests[Security, socks] >=2.8.1, <3", name: "Requests", spec: "<3,>=2.8.1", extras: []string{"security", "socks"}},
		{line: "six (>=1.9)", name: "six", spec: ">=1.9"},
		{line: `pywin32; sys_platform == "win32"`, name: "pywin32", spec: "*", marker: "sys_platform == 'win32'"},
		{line: `urllib3[socks]!=1.25.0,>=1.21.1 ; extra == "socks"`, name: "urllib3", spec: "!=1.25.0,>=1.21.1", extras: []string{"socks"}, marker: "extra == 'socks'"},
		{line: "django @ https://example.com/django-4.0.tar.gz", name: "django", spec: "*", kind: SourceURL},
		{line: "pkg @ file:///tmp/pkg", name: "pkg", spec: "*", kind: SourcePath},
		{line: "pytz==2023.3 # pinned", name: "pytz", spec: "==2023.3"},
		{line: "zope.interface~=5.0", name: "zope.interface", spec: "~=5.0"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.name, r.Name)
			assert.Equal(t, tt.spec, r.SpecifierString())
			assert.Equal(t, tt.extras, r.Extras)
			assert.Equal(t, tt.marker, r.Marker.String())
			assert.Equal(t, tt.kind, r.Source.Kind)
		})
	}
}

func TestParseEditableVCS(t *testing.T) {
	r, err := Parse("-e git+https://github.com/psf/requests.git@v2.31.0#egg=requests[socks]")
	require.NoError(t, err)
	assert.True(t, r.Editable)
	assert.Equal(t, "requests", r.Name)
	assert.Equal(t, []string{"socks"}, r.Extras)
	assert.Equal(t, Source{Kind: SourceVCS, VCS: "git", URL: "https://github.com/psf/requests.git", Ref: "v2.31.0"}, r.Source)
	assert.Equal(t, "-e git+https://github.com/psf/requests.git@v2.31.0#egg=requests", r.String())

	r, err = Parse("-e git+ssh://git@github.com/org/repo.git@main#egg=repo")
	require.NoError(t, err)
	assert.Equal(t, "ssh://git@github.com/org/repo.git", r.Source.URL)
	assert.Equal(t, "main", r.Source.Ref)

	r, err = Parse("-e ./libs/mylib#egg=mylib")
	require.NoError(t, err)
	assert.Equal(t, SourcePath, r.Source.Kind)
	assert.Equal(t, "./libs/mylib", r.Source.Path)
}

func TestParseRejects(t *testing.T) {
	for _, line := range []string{
		`u/\/p@r$34b13+pkg`,
		"",
		"-requests",
		"requests>=",
		"requests 2.0",
		"requests>=2.0.*",
		"requests[sec",
		"requests[bad extra]",
		`requests; bogus == "1"`,
		"-e git+https://github.com/psf/requests.git",
		"-e https://example.com/x.tar.gz#egg=x",
		"pkg @ ftp://example.com/x.tar.gz",
		"name @",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := Parse(line)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.ErrCodeParse), "code = %q", errs.GetCode(err))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Django":            "django",
		"Flask_App":         "flask-app",
		"zope.interface":    "zope-interface",
		"some__weird-.name": "some-weird-name",
		"et_xmlfile":        "et-xmlfile",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestMerge(t *testing.T) {
	a := MustParse("requests[socks]>=2.0")
	b := MustParse("Requests[security]<3")
	merged, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, "<3,>=2.0", merged.SpecifierString())
	assert.Equal(t, []string{"security", "socks"}, merged.Extras)
}

func TestMergeContradiction(t *testing.T) {
	_, err := Merge(MustParse("A>=2.0"), MustParse("a<1.0"))
	require.Error(t, err)

	var conflict *errs.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "a", conflict.Package)
	assert.Equal(t, ">=2.0", conflict.First.Specifier)
	assert.Equal(t, "<1.0", conflict.Second.Specifier)
	assert.Equal(t, RootRequester, conflict.First.From)
	assert.True(t, errs.Is(err, errs.ErrCodeConflict))
}

func TestMergeSourceMismatch(t *testing.T) {
	a := MustParse("django>=4")
	b := MustParse("django @ https://example.com/django-4.0.tar.gz")
	_, err := MergeFrom(a, "app==1.0", b, RootRequester)
	var conflict *errs.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "app==1.0", conflict.First.From)

	e := MustParse("-e ./lib#egg=django")
	p := e
	p.Editable = false
	_, err = Merge(e, p)
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	r := MustParse(`colorama>=0.4; sys_platform == "win32"`)
	win := markers.NewEnvironment("windows", "amd64", "3.10")
	linux := markers.NewEnvironment("linux", "amd64", "3.10")

	assert.True(t, r.Matches(pep440.MustParse("0.4.6"), win))
	assert.False(t, r.Matches(pep440.MustParse("0.3"), win))
	assert.False(t, r.Matches(pep440.MustParse("0.4.6"), linux))
	assert.True(t, r.AppliesTo([]markers.Environment{linux, win}))
	assert.False(t, r.AppliesTo([]markers.Environment{linux}))
}

func TestAppliesToIgnoresExtraGate(t *testing.T) {
	r := MustParse(`PySocks!=1.5.7,>=1.5.6; extra == "socks"`)
	assert.True(t, r.AppliesTo([]markers.Environment{markers.NewEnvironment("linux", "amd64", "3.10")}))
}

func TestString(t *testing.T) {
	tests := map[string]string{
		"requests[socks]>=2.0,<3":         "requests[socks]<3,>=2.0",
		`six; python_version < "3"`:       "six; python_version < '3'",
		"django @ https://e.com/d.tar.gz": "django @ https://e.com/d.tar.gz",
		"Flask":                           "Flask",
	}
	for in, want := range tests {
		assert.Equal(t, want, MustParse(in).String(), in)
	}
}
