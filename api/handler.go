// Package api exposes a document store over HTTP: generic per-collection
// CRUD routes, sub-document append and multi-record transactions.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacentio/flexdb/document"
	"github.com/jacentio/flexdb/store"
	"github.com/jacentio/flexdb/txn"
)

const (
	// DefaultPrefix is where the collection routes are mounted.
	DefaultPrefix = "/api"

	// SaveCollection receives the documents posted to /save.
	SaveCollection = "records"

	maxBodyBytes = 10 << 20
)

var errMissingUsername = errors.New("missing field username")

// Handler serves the HTTP API.
type Handler struct {
	http.Handler

	store    store.Store
	batcher  *txn.Batcher
	logger   *slog.Logger
	tracer   opentracing.Tracer
	registry *prometheus.Registry
	metrics  *metrics
	prefix   string

	trustProxyHeaders bool
}

// Option configures a Handler.
type Option func(*Handler)

// OptPrefix mounts the collection routes under prefix. A missing leading
// slash is added. An empty prefix mounts them at the root.
func OptPrefix(prefix string) Option {
	return func(h *Handler) {
		h.prefix = strings.Trim(prefix, "/")
		if h.prefix != "" {
			h.prefix = "/" + h.prefix
		}
	}
}

// OptLogger sets the logger. Default: slog.Default().
func OptLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// OptTracer sets the tracer. Default: opentracing.GlobalTracer().
func OptTracer(tracer opentracing.Tracer) Option {
	return func(h *Handler) { h.tracer = tracer }
}

// OptRegistry sets the registry metrics are registered with and served
// from. Default: a fresh registry.
func OptRegistry(reg *prometheus.Registry) Option {
	return func(h *Handler) { h.registry = reg }
}

// OptTrustProxyHeaders takes the client address and scheme from
// X-Forwarded-For, X-Real-IP and X-Forwarded-Proto. Default: false.
func OptTrustProxyHeaders(trust bool) Option {
	return func(h *Handler) { h.trustProxyHeaders = trust }
}

// New returns a Handler serving s.
func New(s store.Store, opts ...Option) *Handler {
	h := &Handler{
		store:  s,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.tracer == nil {
		h.tracer = opentracing.GlobalTracer()
	}
	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}
	h.metrics = newMetrics(h.registry)
	h.batcher = txn.NewBatcher(s, h.logger)
	h.Handler = h.newRouter()
	return h
}

func (h *Handler) newRouter() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(h.handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.handleMethodNotAllowed)

	router.HandleFunc("/", h.handleRoot).Methods("GET").Name("Root")
	router.HandleFunc("/echo", h.handleEcho).Methods("POST").Name("Echo")
	router.HandleFunc("/save", h.handleSave).Methods("POST").Name("Save")
	router.HandleFunc("/users", h.handleCreateUser).Methods("POST").Name("CreateUser")
	router.HandleFunc("/health", h.handleHealth).Methods("GET").Name("Health")
	router.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})).Methods("GET").Name("Metrics")

	api := router
	if h.prefix != "" {
		api = router.PathPrefix(h.prefix).Subrouter()
	}
	// Fixed paths first so they aren't taken for collection names.
	api.HandleFunc("/test", h.handleTest).Methods("GET").Name("Test")
	api.HandleFunc("/txs", h.handlePostTxs).Methods("POST").Name("PostTxs")
	api.HandleFunc("/{collection}", h.handlePostEntity).Methods("POST").Name("PostEntity")
	api.HandleFunc("/{collection}", h.handleGetEntities).Methods("GET").Name("GetEntities")
	api.HandleFunc("/{collection}/{id}", h.handleGetEntity).Methods("GET").Name("GetEntity")
	api.HandleFunc("/{collection}/{id}", h.handlePutEntity).Methods("PUT").Name("PutEntity")
	api.HandleFunc("/{collection}/{id}/{sub_entity}", h.handlePostSubEntity).Methods("POST").Name("PostSubEntity")

	router.Use(recordRoute)

	// Instrumentation wraps the router so unmatched requests are seen too.
	var handler http.Handler = router
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(h.logger.Handler(), slog.LevelError)),
	)(handler)
	handler = h.extractTracing(handler)
	handler = h.collectMetrics(handler)
	handler = h.logAccess(handler)
	if h.trustProxyHeaders {
		handler = handlers.ProxyHeaders(handler)
	}
	return handler
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	setRouteName(r, "NotFound")
	h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	setRouteName(r, "MethodNotAllowed")
	h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Hello, World!")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleEcho(w http.ResponseWriter, r *http.Request) {
	v, err := readValue(r)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

// handleSave stores the body in the records collection and echoes it.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	content, err := readObject(r)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	if _, err := h.store.Create(r.Context(), SaveCollection, content); err != nil {
		h.writeError(w, r, err, false)
		return
	}
	h.writeJSON(w, http.StatusOK, content)
}

// demoUserID is the id every created user is reported with. Users aren't
// stored.
const demoUserID = 1337

type createUserRequest struct {
	Username *string `json:"username"`
}

type userResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// handleCreateUser echoes the username back as a user with a fixed id.
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	var req createUserRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, r, badRequest{err}, false)
		return
	}
	if req.Username == nil {
		h.writeError(w, r, badRequest{errMissingUsername}, false)
		return
	}
	h.logger.Info("creating user", "username", *req.Username)
	h.writeJSON(w, http.StatusCreated, userResponse{ID: demoUserID, Username: *req.Username})
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Hello, World!"})
}

// handlePostEntity creates a document and responds with its id.
func (h *Handler) handlePostEntity(w http.ResponseWriter, r *http.Request) {
	content, err := readObject(r)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}

	doc, err := h.store.Create(r.Context(), mux.Vars(r)["collection"], content)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	rid, err := document.RecordOf(doc)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{document.IDField: rid.ID})
}

func (h *Handler) handleGetEntities(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.Select(r.Context(), mux.Vars(r)["collection"])
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	out, err := document.NormalizeAll(docs)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(r.Context(), pathID(r))
	h.writeDocument(w, r, doc, err, true)
}

// handlePutEntity merges the body into an existing document.
func (h *Handler) handlePutEntity(w http.ResponseWriter, r *http.Request) {
	content, err := readObject(r)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	doc, err := h.store.Merge(r.Context(), pathID(r), content)
	h.writeDocument(w, r, doc, err, false)
}

// handlePostSubEntity appends the body to the array held in the sub_entity
// field.
func (h *Handler) handlePostSubEntity(w http.ResponseWriter, r *http.Request) {
	v, err := readValue(r)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	doc, err := h.store.Append(r.Context(), pathID(r), mux.Vars(r)["sub_entity"], v)
	h.writeDocument(w, r, doc, err, false)
}

// txsResponse is the body of a successful POST /txs.
type txsResponse struct {
	N int `json:"n"`
}

func (h *Handler) handlePostTxs(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	var ops []txn.Tx
	if err := json.Unmarshal(body, &ops); err != nil {
		h.writeError(w, r, badRequest{err}, false)
		return
	}

	n, err := h.batcher.Execute(r.Context(), ops)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	h.writeJSON(w, http.StatusOK, txsResponse{N: n})
}

func pathID(r *http.Request) document.RecordID {
	vars := mux.Vars(r)
	return document.ParsePathID(vars["collection"], vars["id"])
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest{err}
	}
	return body, nil
}

func readValue(r *http.Request) (document.Value, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	v, err := document.Parse(body)
	if err != nil {
		return nil, badRequest{err}
	}
	return v, nil
}

func readObject(r *http.Request) (document.Object, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	obj, err := document.ParseObject(body)
	if err != nil {
		return nil, badRequest{err}
	}
	return obj, nil
}

// writeDocument normalizes doc and writes it, or writes err.
func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, doc document.Object, err error, notFoundIs404 bool) {
	if err != nil {
		h.writeError(w, r, err, notFoundIs404)
		return
	}
	out, err := document.Normalize(doc)
	if err != nil {
		h.writeError(w, r, err, false)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, notFoundIs404 bool) {
	kind := KindOf(err)
	status := statusOf(kind, notFoundIs404)

	resp := errorResponse{Error: string(kind)}
	if status == http.StatusNotFound {
		resp.Error = "Not found"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "route", routeName(r), "kind", kind, "err", err)
	} else {
		h.logger.Debug("request rejected", "route", routeName(r), "kind", kind, "err", err)
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode response", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"error":%q}`, KindStoreIO)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
