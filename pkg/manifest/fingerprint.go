package manifest

import (
	"crypto/sha256"
	"encoding/hex"

	stio "github.com/matzehuels/stacklock/pkg/io"
)

// Fingerprint returns the sha256 hex digest identifying the manifest's
// requirements, sources and interpreter constraints. It is computed over the
// decoded document, so comments, whitespace and key order do not affect it:
//
//	{"_meta":{"requires":{...},"sources":[...]},"default":{...},"develop":{...}}
//
// serialized with sorted keys and no insignificant whitespace.
func (m *Manifest) Fingerprint() string {
	sources := make([]any, 0)
	for _, s := range m.Sources() {
		sources = append(sources, map[string]any{
			"name":       s.Name,
			"url":        s.URL,
			"verify_ssl": s.VerifySSL,
		})
	}
	doc := map[string]any{
		"_meta": map[string]any{
			"requires": m.Requires(),
			"sources":  sources,
		},
		"default": m.Section(SectionDefault),
		"develop": m.Section(SectionDevelop),
	}
	// Decoded TOML only holds JSON-representable values.
	data, _ := stio.CanonicalJSON(doc)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint parses manifest content and returns its fingerprint.
func Fingerprint(content []byte) (string, error) {
	m, err := Parse(content)
	if err != nil {
		return "", err
	}
	return m.Fingerprint(), nil
}
