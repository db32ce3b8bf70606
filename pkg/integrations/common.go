package integrations

import (
	"errors"
	"net/http"
	"time"

	"github.com/matzehuels/stacklock/pkg/httputil"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the index.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with a standard timeout for index
// requests. A positive rps caps the request rate.
func NewHTTPClient(rps float64) *http.Client {
	c := &http.Client{Timeout: httpTimeout}
	if rps > 0 {
		c.Transport = httputil.NewRateLimitedTransport(nil, rps, int(rps)+1)
	}
	return c
}
