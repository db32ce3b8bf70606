package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/observability"
	"github.com/matzehuels/stacklock/pkg/pipeline"
	"github.com/matzehuels/stacklock/pkg/provider"
)

const pipfile = `[packages]
flask = ">=3"
`

func newServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	p := provider.NewStatic().
		MustAdd("flask", "3.0.0", "werkzeug>=3.0.0").
		MustAdd("werkzeug", "3.0.1")
	logger := log.New(io.Discard)
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(New(pipeline.NewRunner(p, nil, logger), reg, logger).Handler())
	t.Cleanup(srv.Close)
	return srv, reg
}

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func lockFixture(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := post(t, srv, "/v1/lock", LockRequest{Pipfile: pipfile})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lock status = %d", resp.StatusCode)
	}
	return decodeBody[LockResponse](t, resp).Lock
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body := decodeBody[map[string]string](t, resp)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", resp.StatusCode, body)
	}
}

func TestMetrics(t *testing.T) {
	srv, reg := newServer(t)
	observability.NewMetrics(reg).Install()
	t.Cleanup(observability.Reset)

	lockFixture(t, srv)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `stacklock_resolve_total{result="ok",section="default"} 1`) {
		t.Errorf("resolve counter missing:\n%s", data)
	}
}

func TestLock(t *testing.T) {
	srv, _ := newServer(t)
	resp := post(t, srv, "/v1/lock", LockRequest{Pipfile: pipfile})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[LockResponse](t, resp)
	if body.Packages != 2 || len(body.Hash) != 64 {
		t.Errorf("unexpected response %+v", body)
	}
	if !strings.Contains(body.Lock, `"version": "==3.0.1"`) {
		t.Errorf("lock should pin werkzeug:\n%s", body.Lock)
	}

	lf, err := lock.Decode([]byte(body.Lock))
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := lock.Encode(lf)
	if err != nil {
		t.Fatal(err)
	}
	if string(encoded) != body.Lock {
		t.Errorf("returned lock differs from the encoded artifact:\n%s\nwant\n%s", body.Lock, encoded)
	}
}

func TestLockErrors(t *testing.T) {
	srv, _ := newServer(t)
	tests := []struct {
		name   string
		body   any
		status int
		code   errs.Code
	}{
		{"MissingPipfile", LockRequest{}, http.StatusBadRequest, errs.ErrCodeUsage},
		{"UnknownField", map[string]string{"manifest": pipfile}, http.StatusBadRequest, errs.ErrCodeUsage},
		{"InvalidPipfile", LockRequest{Pipfile: "[packages]\nflask = \"=>>3\"\n"}, http.StatusBadRequest, errs.ErrCodeParse},
		{"Unsatisfiable", LockRequest{Pipfile: "[packages]\nflask = \">=4\"\n"}, http.StatusUnprocessableEntity, errs.ErrCodeResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, "/v1/lock", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if body := decodeBody[errorBody](t, resp); body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.code)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	srv, _ := newServer(t)
	lockContent := lockFixture(t, srv)

	fresh := decodeBody[VerifyResponse](t, post(t, srv, "/v1/verify", VerifyRequest{Pipfile: pipfile, Lock: lockContent}))
	if !fresh.Fresh {
		t.Errorf("lock should be fresh: %+v", fresh)
	}

	edited := pipfile + "werkzeug = \"*\"\n"
	stale := decodeBody[VerifyResponse](t, post(t, srv, "/v1/verify", VerifyRequest{Pipfile: edited, Lock: lockContent}))
	if stale.Fresh || stale.Reason == "" {
		t.Errorf("lock should be stale: %+v", stale)
	}

	missing := decodeBody[VerifyResponse](t, post(t, srv, "/v1/verify", VerifyRequest{Pipfile: pipfile}))
	if missing.Fresh {
		t.Error("an absent lock is stale")
	}

	resp := post(t, srv, "/v1/verify", VerifyRequest{Pipfile: pipfile, Lock: "{}"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("corrupt lock status = %d", resp.StatusCode)
	}
}

func TestGraph(t *testing.T) {
	srv, _ := newServer(t)
	lockContent := lockFixture(t, srv)

	resp := post(t, srv, "/v1/graph", GraphRequest{Lock: lockContent})
	data, _ := io.ReadAll(resp.Body)
	want := "flask==3.0.0\n  - werkzeug [required: >=3.0.0, installed: 3.0.1]\n"
	if string(data) != want {
		t.Errorf("graph = %q, want %q", data, want)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %s", ct)
	}

	resp = post(t, srv, "/v1/graph", GraphRequest{Lock: lockContent, JSONTree: true})
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("json tree Content-Type = %s", resp.Header.Get("Content-Type"))
	}

	resp = post(t, srv, "/v1/graph", GraphRequest{Lock: lockContent, Reverse: true, JSON: true})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[errorBody](t, resp)
	if body.Error.Message != "Using both --reverse and --json together is not supported. Please select one of the two options." {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestRejectsNonJSON(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Post(srv.URL+"/v1/verify", "text/plain", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Usage("bad"), http.StatusBadRequest},
		{errs.Parse("bad"), http.StatusBadRequest},
		{&errs.ConflictError{Package: "a"}, http.StatusUnprocessableEntity},
		{&errs.ResolutionError{Package: "a"}, http.StatusUnprocessableEntity},
		{errs.Provider(errors.New("down"), "fetch"), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
