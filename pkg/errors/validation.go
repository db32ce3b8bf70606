package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidateURL checks that rawURL is an absolute http or https URL with a
// host. Index URLs from flags, the environment and [[source]] tables all go
// through it before any request is made.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return Usage("URL cannot be empty")
	}
	for _, r := range rawURL {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return Usage("URL contains invalid characters: %q", rawURL)
		}
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return Usage("URL must use http or https scheme: %q", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Usage("invalid URL %q", rawURL)
	}
	return nil
}
