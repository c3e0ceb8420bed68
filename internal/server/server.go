// Package server exposes the query executor over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
	"github.com/satishbabariya/prisma-engine/internal/core/query/executor"
	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

const errBodyTooLarge = "body too large"

// Handler serves query documents on POST / and a health probe on
// GET /health.
type Handler struct {
	exec   executor.QueryExecutor
	schema *schema.Schema
	logger *slog.Logger
	opt    Options
}

// Options configures a Handler.
type Options struct {
	// Timeout applies when the incoming request has no deadline. 0 means
	// none.
	Timeout time.Duration

	// Pretty indents JSON responses.
	Pretty bool

	// MaxBodyBytes limits the request body. 0 means unlimited.
	MaxBodyBytes int64

	Logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithLogger(l *slog.Logger) Option   { return func(o *Options) { o.Logger = l } }

// New creates a handler running documents against s.
func New(exec executor.QueryExecutor, s *schema.Schema, opts ...Option) *Handler {
	op := Options{Timeout: 30 * time.Second, Logger: slog.New(slog.DiscardHandler)}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{exec: exec, schema: s, logger: op.Logger, opt: op}
}

// Request is the POST body.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type batchResult struct {
	BatchResult []*ir.Response `json:"batchResult"`
}

type health struct {
	Status    string `json:"status"`
	Connector string `json:"connector"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rid := r.Header.Get(RequestIDHeader)
	if rid == "" {
		rid = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, rid)

	switch {
	case r.URL.Path == "/health" && r.Method == http.MethodGet:
		h.writeJSON(w, http.StatusOK, health{Status: "ok", Connector: h.exec.PrimaryConnector()})
	case r.URL.Path == "/" && r.Method == http.MethodPost:
		h.serveQuery(w, r, rid)
	case r.URL.Path == "/" || r.URL.Path == "/health":
		h.writeError(w, http.StatusMethodNotAllowed, coreerrors.Validationf("method %s not allowed", r.Method))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) serveQuery(w http.ResponseWriter, r *http.Request, rid string) {
	ctx := executor.WithRequestID(r.Context(), rid)
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	logger := h.logger.With("request_id", rid)
	start := time.Now()

	req, status, err := h.parseRequest(r)
	if err != nil {
		logger.Debug("rejected request", "error", err)
		h.writeError(w, status, err)
		return
	}
	doc, err := document.ParseGraphQL(req.Query, req.Variables)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, coreerrors.Validationf("%v", err).WithCause(err))
		return
	}

	responses, err := h.exec.Execute(ctx, doc, h.schema)
	if err != nil {
		logger.Error("request aborted", "error", err, "duration", time.Since(start))
		h.writeError(w, http.StatusInternalServerError, coreerrors.ClassifyError(err))
		return
	}
	logger.Info("request served", "operations", len(responses), "duration", time.Since(start))

	if len(responses) == 1 {
		h.writeJSON(w, http.StatusOK, responses[0])
		return
	}
	h.writeJSON(w, http.StatusOK, batchResult{BatchResult: responses})
}

func (h *Handler) parseRequest(r *http.Request) (Request, int, error) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return Request{}, http.StatusUnsupportedMediaType, coreerrors.Validationf("unsupported Content-Type %q", ct)
	}
	reader := io.Reader(r.Body)
	if h.opt.MaxBodyBytes > 0 {
		reader = io.LimitReader(r.Body, h.opt.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Request{}, http.StatusBadRequest, coreerrors.Validationf("failed to read body: %v", err)
	}
	if h.opt.MaxBodyBytes > 0 && int64(len(body)) > h.opt.MaxBodyBytes {
		return Request{}, http.StatusRequestEntityTooLarge, coreerrors.Validationf(errBodyTooLarge)
	}

	var req Request
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return Request{}, http.StatusBadRequest, coreerrors.Validationf("invalid JSON: %v", err)
	}
	if req.Query == "" {
		return Request{}, http.StatusBadRequest, coreerrors.Validationf("missing 'query'")
	}
	for k, v := range req.Variables {
		req.Variables[k] = normalize(v)
	}
	return req, 0, nil
}

// normalize gives JSON variables the literal types of the document
// parser: integral numbers become int64, others float64.
func normalize(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = normalize(v[i])
		}
	case map[string]any:
		for k := range v {
			v[k] = normalize(v[k])
		}
	}
	return v
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, ir.ErrorResponse("", err))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

// ListenAndServe serves handler on addr until ctx is done, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
