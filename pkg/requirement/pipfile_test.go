package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/stacklock/pkg/errors"
)

func TestFromPipfile(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		spec   string
		extras []string
		marker string
		source Source
		edit   bool
	}{
		{name: "requests", value: "*", spec: "*"},
		{name: "flask", value: ">=2.0,<3", spec: "<3,>=2.0"},
		{
			name:   "requests",
			value:  map[string]any{"version": ">=2.0", "extras": []any{"socks"}, "index": "pypi"},
			spec:   ">=2.0",
			extras: []string{"socks"},
			source: Source{Kind: SourceIndex, Index: "pypi"},
		},
		{
			name:   "pywin32",
			value:  map[string]any{"version": "*", "sys_platform": "== 'win32'"},
			spec:   "*",
			marker: "sys_platform == 'win32'",
		},
		{
			name:   "typing",
			value:  map[string]any{"markers": `python_version < "3.5"`, "os_name": "!= 'nt'"},
			spec:   "*",
			marker: "python_version < '3.5' and os_name != 'nt'",
		},
		{
			name:   "requests",
			value:  map[string]any{"git": "https://github.com/psf/requests.git", "ref": "main", "editable": true},
			spec:   "*",
			source: Source{Kind: SourceVCS, VCS: "git", URL: "https://github.com/psf/requests.git", Ref: "main"},
			edit:   true,
		},
		{
			name:   "mylib",
			value:  map[string]any{"path": "./mylib", "editable": true},
			spec:   "*",
			source: Source{Kind: SourcePath, Path: "./mylib"},
			edit:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromPipfile(tt.name, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.spec, r.SpecifierString())
			assert.Equal(t, tt.extras, r.Extras)
			assert.Equal(t, tt.marker, r.Marker.String())
			assert.Equal(t, tt.source, r.Source)
			assert.Equal(t, tt.edit, r.Editable)
		})
	}
}

func TestFromPipfileRejects(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{`u/\/p@r$34b13+pkg`, "*"},
		{"requests", "2.0"},
		{"requests", ">=abc"},
		{"requests", 42},
		{"requests", map[string]any{"version": 1}},
		{"requests", map[string]any{"extras": "socks"}},
		{"requests", map[string]any{"editable": true}},
		{"requests", map[string]any{"markers": "bogus == '1'"}},
	}
	for _, tt := range tests {
		_, err := FromPipfile(tt.name, tt.value)
		require.Error(t, err, "%s = %v", tt.name, tt.value)
		assert.True(t, errs.Is(err, errs.ErrCodeParse))
	}
}

func TestPipfileValueRoundTrip(t *testing.T) {
	for _, line := range []string{
		"requests",
		"requests>=2.0",
		`requests[socks]>=2.0; python_version >= "3.7"`,
		"-e git+https://github.com/psf/requests.git@main#egg=requests",
		"django @ https://example.com/django-4.0.tar.gz",
	} {
		t.Run(line, func(t *testing.T) {
			r := MustParse(line)
			back, err := FromPipfile(r.Name, r.PipfileValue())
			require.NoError(t, err)
			assert.Equal(t, r.String(), back.String())
		})
	}
}
