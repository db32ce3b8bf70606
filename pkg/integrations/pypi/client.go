package pypi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/stacklock/pkg/buildinfo"
	"github.com/matzehuels/stacklock/pkg/cache"
	"github.com/matzehuels/stacklock/pkg/integrations"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/provider"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// DefaultIndexURL is the simple index URL of PyPI. The JSON API lives next
// to it under /pypi.
const DefaultIndexURL = "https://pypi.org/simple"

// Client provides access to the PyPI JSON API and implements
// [provider.Provider].
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithIndexURL points the client at another index serving the PyPI JSON API.
// A simple index URL (".../simple") is mapped to its JSON API root.
func WithIndexURL(u string) Option {
	return func(c *Client) { c.baseURL = APIRoot(u) }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.SetHTTPClient(h) }
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.SetHTTPClient(integrations.NewHTTPClient(rps)) }
}

// NewClient creates a PyPI client caching responses in backend for cacheTTL.
// A nil backend disables response caching.
func NewClient(backend cache.Cache, cacheTTL time.Duration, opts ...Option) *Client {
	c := &Client{
		Client:  integrations.NewClient(backend, "pypi:", cacheTTL, map[string]string{
			"Accept":     "application/json",
			"User-Agent": buildinfo.UserAgent(),
		}),
		baseURL: APIRoot(DefaultIndexURL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIRoot maps an index URL to the root of its JSON API:
// https://pypi.org/simple becomes https://pypi.org/pypi.
func APIRoot(indexURL string) string {
	u := strings.TrimRight(indexURL, "/")
	if strings.HasSuffix(u, "/simple") {
		return strings.TrimSuffix(u, "/simple") + "/pypi"
	}
	return u
}

// Versions returns the installable versions of name in ascending order.
// Versions whose files are all yanked, have no files, or do not follow
// PEP 440 are skipped.
func (c *Client) Versions(ctx context.Context, name string) ([]pep440.Version, error) {
	var data projectResponse
	if err := c.fetch(ctx, name, fmt.Sprintf("%s/%s/json", c.baseURL, name), &data); err != nil {
		return nil, err
	}

	out := make([]pep440.Version, 0, len(data.Releases))
	for raw, files := range data.Releases {
		if !installable(files) {
			continue
		}
		v, err := pep440.Parse(raw)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// Requirements returns the Requires-Dist entries of a release. Entries that
// do not parse are skipped.
func (c *Client) Requirements(ctx context.Context, name string, v pep440.Version) ([]requirement.Requirement, error) {
	data, err := c.release(ctx, name, v)
	if err != nil {
		return nil, err
	}
	reqs := make([]requirement.Requirement, 0, len(data.Info.RequiresDist))
	for _, line := range data.Info.RequiresDist {
		r, err := requirement.Parse(line)
		if err != nil {
			continue
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

// Hashes returns the sha256 digests of a release's non-yanked files.
func (c *Client) Hashes(ctx context.Context, name string, v pep440.Version) ([]string, error) {
	data, err := c.release(ctx, name, v)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range data.URLs {
		if f.Yanked || f.Digests.SHA256 == "" {
			continue
		}
		h := "sha256:" + f.Digests.SHA256
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Client) release(ctx context.Context, name string, v pep440.Version) (*releaseResponse, error) {
	var data releaseResponse
	url := fmt.Sprintf("%s/%s/%s/json", c.baseURL, name, v)
	if err := c.fetch(ctx, name+"=="+v.String(), url, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) fetch(ctx context.Context, key, url string, v any) error {
	err := c.Cached(ctx, key, false, v, func() error {
		return c.Get(ctx, url, v)
	})
	if errors.Is(err, integrations.ErrNotFound) {
		return fmt.Errorf("%w: pypi %s", provider.ErrNotFound, key)
	}
	return err
}

func installable(files []fileInfo) bool {
	for _, f := range files {
		if !f.Yanked {
			return true
		}
	}
	return false
}

type projectResponse struct {
	Info     apiInfo               `json:"info"`
	Releases map[string][]fileInfo `json:"releases"`
}

type releaseResponse struct {
	Info apiInfo    `json:"info"`
	URLs []fileInfo `json:"urls"`
}

type apiInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	RequiresDist []string `json:"requires_dist"`
	RequiresPy   string   `json:"requires_python"`
}

type fileInfo struct {
	Filename string `json:"filename"`
	Digests  struct {
		SHA256 string `json:"sha256"`
	} `json:"digests"`
	Yanked bool `json:"yanked"`
}

var _ provider.Provider = (*Client)(nil)
