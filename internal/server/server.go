// Package server serves evaluations of one loaded graph over HTTP.
//
// # Routes
//
//	GET  /healthz          liveness probe
//	GET  /graph            the graph in the interchange format
//	GET  /graph/info       node, edge and input counts
//	GET  /graph.{format}   diagram (dot, svg, pdf, png); ?detailed=1&inputs=1,2
//	POST /eval             {"inputs": [...]} → {"primary", "gradient", "secondary"}
//	POST /eval/batch       {"batch": [[...], ...]} → {"results": [...]}
//
// Numbers in requests and responses may be "NaN", "Infinity" or "-Infinity".
// Errors are JSON objects {"error": message, "code": code}.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/adjoint/pkg/errors"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
	"github.com/matzehuels/adjoint/pkg/observability"
	"github.com/matzehuels/adjoint/pkg/pipeline"
	"github.com/matzehuels/adjoint/pkg/render"
)

// maxBody bounds request bodies.
const maxBody = 8 << 20

// maxBatch bounds the vectors accepted by /eval/batch.
const maxBatch = 10000

// Server handles requests against a single graph.
type Server struct {
	runner *pipeline.Runner
	graph  *pipeline.Graph
	logger *log.Logger
	router chi.Router
}

// New builds the HTTP handler for g. The runner supplies caching and the
// compiled evaluator.
func New(r *pipeline.Runner, g *pipeline.Graph, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: r, graph: g, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)
	router.Get("/graph", s.handleGraph)
	router.Get("/graph/info", s.handleInfo)
	router.Get("/graph.{format}", s.handleRender)
	router.Post("/eval", s.handleEval)
	router.Post("/eval/batch", s.handleEvalBatch)

	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequests logs every request and reports it to the HTTP hooks.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, dur)
		s.logger.Info("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", dur)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	data, err := pkgio.Marshal(s.graph.X)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", strconv.Quote(s.graph.Hash))
	w.Write(data)
}

type infoResponse struct {
	Hash      string `json:"hash"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Inputs    int    `json:"inputs"`
	Secondary int    `json:"secondary"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	x := s.graph.X
	writeJSON(w, http.StatusOK, infoResponse{
		Hash:      s.graph.Hash,
		Nodes:     x.Len(),
		Edges:     len(x.Edges()),
		Inputs:    x.NumInputs(),
		Secondary: len(x.Secondary()),
	})
}

var contentTypes = map[string]string{
	render.FormatDOT: "text/vnd.graphviz; charset=utf-8",
	render.FormatSVG: "image/svg+xml",
	render.FormatPDF: "application/pdf",
	render.FormatPNG: "image/png",
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.RenderOptions{Format: chi.URLParam(r, "format")}
	q := r.URL.Query()
	if d, err := strconv.ParseBool(q.Get("detailed")); err == nil {
		opts.Detailed = d
	}
	if in := q.Get("inputs"); in != "" {
		vals, err := parseInputs(in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		opts.Inputs = vals
	} else if opts.Detailed {
		opts.Inputs = []float64{}
	}

	data, cached, err := s.runner.RenderWithCacheInfo(r.Context(), s.graph, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[strings.ToLower(opts.Format)])
	w.Header().Set("X-Cache", cacheHeader(cached))
	w.Write(data)
}

type evalRequest struct {
	Inputs []pkgio.Number `json:"inputs"`
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, cached, err := s.runner.EvalWithCacheInfo(r.Context(), s.graph, floats(req.Inputs))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := pkgio.EncodeResult(res)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheHeader(cached))
	w.Write(data)
}

type batchRequest struct {
	Batch [][]pkgio.Number `json:"batch"`
}

type batchResponse struct {
	Results []json.RawMessage `json:"results"`
}

func (s *Server) handleEvalBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Batch) > maxBatch {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "batch too large (max %d)", maxBatch))
		return
	}

	batch := make([][]float64, len(req.Batch))
	for i, v := range req.Batch {
		batch[i] = floats(v)
	}
	results, err := s.runner.EvalBatch(r.Context(), s.graph, batch, pipeline.DefaultWorkers)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := batchResponse{Results: make([]json.RawMessage, len(results))}
	for i, res := range results {
		data, err := pkgio.EncodeResult(res)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp.Results[i] = data
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Helpers
// =============================================================================

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

// fail writes err as a JSON error with a status derived from its code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody parses a JSON request body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func floats(ns []pkgio.Number) []float64 {
	out := make([]float64, len(ns))
	for i, n := range ns {
		out[i] = float64(n)
	}
	return out
}

func parseInputs(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "input %d: %q is not a number", i, p)
		}
		out[i] = v
	}
	return out, nil
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
