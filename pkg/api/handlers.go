package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/matzehuels/stacklock/pkg/buildinfo"
	"github.com/matzehuels/stacklock/pkg/depgraph"
	errs "github.com/matzehuels/stacklock/pkg/errors"
	stio "github.com/matzehuels/stacklock/pkg/io"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/pipeline"
	"github.com/matzehuels/stacklock/pkg/render"
	"github.com/matzehuels/stacklock/pkg/resolve"
	"github.com/matzehuels/stacklock/pkg/verify"
)

// =============================================================================
// Request and response bodies
// =============================================================================

// LockRequest is the body of POST /v1/lock.
type LockRequest struct {
	Pipfile string `json:"pipfile"`
	// Lock is the previous Pipfile.lock, used for pin preference.
	Lock         string `json:"lock,omitempty"`
	Pre          bool   `json:"pre,omitempty"`
	KeepOutdated bool   `json:"keep_outdated,omitempty"`
	PreferLatest bool   `json:"prefer_latest,omitempty"`
	SkipDevelop  bool   `json:"skip_develop,omitempty"`
}

// LockResponse is the body returned by POST /v1/lock. Lock holds the
// encoded Pipfile.lock byte for byte, ready to be written to disk.
type LockResponse struct {
	Lock     string `json:"lock"`
	Hash     string `json:"hash"`
	Packages int    `json:"packages"`
	Rounds   int    `json:"rounds"`
}

// VerifyRequest is the body of POST /v1/verify. An empty Lock is stale.
type VerifyRequest struct {
	Pipfile string `json:"pipfile"`
	Lock    string `json:"lock"`
}

// VerifyResponse is the body returned by POST /v1/verify.
type VerifyResponse struct {
	Fresh    bool   `json:"fresh"`
	Reason   string `json:"reason,omitempty"`
	Expected string `json:"expected"`
	Recorded string `json:"recorded,omitempty"`
}

// GraphRequest is the body of POST /v1/graph. The flags mirror those of the
// graph command; at most one format may be selected.
type GraphRequest struct {
	Lock     string `json:"lock"`
	Reverse  bool   `json:"reverse,omitempty"`
	JSON     bool   `json:"json,omitempty"`
	JSONTree bool   `json:"json_tree,omitempty"`
	DOT      bool   `json:"dot,omitempty"`
	SVG      bool   `json:"svg,omitempty"`
	ShowAll  bool   `json:"show_all,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`
}

func (g GraphRequest) options() render.Options {
	return render.Options{
		Reverse:  g.Reverse,
		JSON:     g.JSON,
		JSONTree: g.JSONTree,
		DOT:      g.DOT,
		ShowAll:  g.ShowAll,
		Detailed: g.Detailed,
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Resolved(),
	})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Pipfile == "" {
		s.writeError(w, errs.Usage("pipfile is required"))
		return
	}

	dir, err := os.MkdirTemp("", "stacklock-api-")
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, manifest.FileName)
	if err := os.WriteFile(path, []byte(req.Pipfile), 0o600); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Lock != "" {
		if err := os.WriteFile(lock.PathFor(path), []byte(req.Lock), 0o600); err != nil {
			s.writeError(w, err)
			return
		}
	}

	opts := pipeline.LockOptions{
		Manifest:     path,
		Pre:          req.Pre,
		KeepOutdated: req.KeepOutdated,
		SkipDevelop:  req.SkipDevelop,
	}
	if req.PreferLatest {
		opts.PinPolicy = resolve.PreferLatest
	}
	res, err := s.runner.Lock(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := lock.Encode(res.Lockfile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LockResponse{
		Lock:     string(data),
		Hash:     res.Lockfile.Meta.Hash,
		Packages: res.Stats.Packages,
		Rounds:   res.Stats.Rounds,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	var lf *lock.Lockfile
	if req.Lock != "" {
		var err error
		if lf, err = lock.Decode([]byte(req.Lock)); err != nil {
			s.writeError(w, err)
			return
		}
	}
	res, err := verify.Verify([]byte(req.Pipfile), lf)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, VerifyResponse{
		Fresh:    res.Fresh,
		Reason:   res.Reason,
		Expected: res.Expected,
		Recorded: res.Recorded,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var req GraphRequest
	if !s.decode(w, r, &req) {
		return
	}
	opts := req.options()
	if err := opts.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	lf, err := lock.Decode([]byte(req.Lock))
	if err != nil {
		s.writeError(w, err)
		return
	}

	out, hit, err := s.runner.RenderGraph(r.Context(), depgraph.FromLock(lf), opts, req.SVG)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.SVG && hit {
		w.Header().Set("X-Cache", "HIT")
	}
	w.Header().Set("Content-Type", contentType(opts, req.SVG))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func contentType(opts render.Options, svg bool) string {
	switch {
	case svg:
		return "image/svg+xml"
	case opts.JSON, opts.JSONTree:
		return "application/json"
	case opts.DOT:
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// =============================================================================
// Encoding helpers
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeUsage, err, "invalid request body"))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := stio.WriteJSON(w, v, ""); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: errs.UserMessage(err)}})
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch errs.GetCode(err) {
	case errs.ErrCodeParse, errs.ErrCodeFormat, errs.ErrCodeUsage:
		return http.StatusBadRequest
	case errs.ErrCodeConflict, errs.ErrCodeResolution:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeProvider:
		return http.StatusBadGateway
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
