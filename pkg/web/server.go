package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/codegraph/pkg/deps"
	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/inspect"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
	"github.com/ritzau/codegraph/pkg/output"
	"github.com/ritzau/codegraph/pkg/render"
)

// ProjectResponse describes the loaded knowledge graph
type ProjectResponse struct {
	Project model.ProjectInfo `json:"project"`
	Stats   graph.Stats       `json:"stats"`
}

// SignatureResponse is the body of the signature endpoint
type SignatureResponse struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

// Server represents the web server. It only reads from the graph.
type Server struct {
	router *mux.Router
	mu     sync.RWMutex
	graph  *graph.Graph
}

// NewServer creates a new web server over g
func NewServer(g *graph.Graph) *Server {
	s := &Server{
		router: mux.NewRouter(),
		graph:  g,
	}
	s.setupRoutes()
	return s
}

// SetGraph swaps the graph served, e.g. after the knowledge base was reloaded
func (s *Server) SetGraph(g *graph.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
}

func (s *Server) current() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// More specific routes must come first
	api.HandleFunc("/project", s.handleProject).Methods("GET")
	api.HandleFunc("/components", s.handleComponents).Methods("GET")
	api.HandleFunc("/components/{id}/relationships", s.handleRelationships).Methods("GET")
	api.HandleFunc("/components/{id}/related", s.handleRelated).Methods("GET")
	api.HandleFunc("/components/{id}/dependencies", s.handleDependencies).Methods("GET")
	api.HandleFunc("/components/{id}/complexity", s.handleComplexity).Methods("GET")
	api.HandleFunc("/components/{id}/source", s.inspectHandler(func(in *inspect.Inspector, id string) (any, error) {
		return in.Source(id)
	})).Methods("GET")
	api.HandleFunc("/components/{id}/signature", s.inspectHandler(func(in *inspect.Inspector, id string) (any, error) {
		sig, err := in.Signature(id)
		return SignatureResponse{ID: id, Signature: sig}, err
	})).Methods("GET")
	api.HandleFunc("/components/{id}/structure", s.handleStructure).Methods("GET")
	api.HandleFunc("/components/{id}/hierarchy", s.handleHierarchy).Methods("GET")
	api.HandleFunc("/components/{id}/references", s.inspectHandler(func(in *inspect.Inspector, id string) (any, error) {
		return in.References(id)
	})).Methods("GET")
	api.HandleFunc("/components/{id}/docs", s.inspectHandler(func(in *inspect.Inspector, id string) (any, error) {
		return in.Documentation(id)
	})).Methods("GET")
	api.HandleFunc("/components/{id}", s.handleComponent).Methods("GET")
	api.HandleFunc("/diagram", s.handleDiagram).Methods("GET")
	api.HandleFunc("/cycles", s.handleCycles).Methods("GET")
	api.HandleFunc("/modules", s.handleModules).Methods("GET")
	api.HandleFunc("/imports", s.handleImports).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
	})
}

// Handler returns the router wrapped in request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	g := s.current()
	writeJSON(w, http.StatusOK, ProjectResponse{Project: g.Project(), Stats: g.Stats()})
}

// handleComponents lists components, optionally narrowed by the name, type
// and file query parameters. Filters combine with AND.
func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	g := s.current()
	q := r.URL.Query()

	result := g.Components()
	if name := q.Get("name"); name != "" {
		result = g.ComponentsByName(name)
	}
	if typ := q.Get("type"); typ != "" {
		ct, err := model.ParseComponentType(typ)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		result = filter(result, func(c *model.Component) bool { return c.Type == ct })
	}
	if file := q.Get("file"); file != "" {
		result = filter(result, func(c *model.Component) bool { return c.FilePath == file })
	}

	writeJSON(w, http.StatusOK, result)
}

func filter(components []*model.Component, keep func(*model.Component) bool) []*model.Component {
	result := make([]*model.Component, 0, len(components))
	for _, c := range components {
		if keep(c) {
			result = append(result, c)
		}
	}
	return result
}

// component resolves the {id} path variable, writing a 404 when it is unknown
func (s *Server) component(w http.ResponseWriter, r *http.Request) (*graph.Graph, *model.Component, bool) {
	g := s.current()
	id := mux.Vars(r)["id"]
	c, ok := g.Component(id)
	if !ok {
		writeError(w, http.StatusNotFound, "component not found: "+id)
		return nil, nil, false
	}
	return g, c, true
}

func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) {
	g, c, ok := s.component(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, output.NewComponentDetail(g, c))
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	g, c, ok := s.component(w, r)
	if !ok {
		return
	}

	var result []*model.Relationship
	switch dir := r.URL.Query().Get("direction"); dir {
	case "", "both":
		result = g.RelationshipsFor(c.ID)
	case "outgoing":
		result = g.Outgoing(c.ID)
	case "incoming":
		result = g.Incoming(c.ID)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid direction %q", dir))
		return
	}

	if typ := r.URL.Query().Get("type"); typ != "" {
		filtered := result[:0:0]
		for _, rel := range result {
			if string(rel.Type) == typ {
				filtered = append(filtered, rel)
			}
		}
		result = filtered
	}
	if result == nil {
		result = []*model.Relationship{}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	g, c, ok := s.component(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.Related(c.ID))
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	g, c, ok := s.component(w, r)
	if !ok {
		return
	}
	report, err := deps.New(g).Report(c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleComplexity(w http.ResponseWriter, r *http.Request) {
	g, c, ok := s.component(w, r)
	if !ok {
		return
	}
	complexity, err := deps.New(g).Complexity(c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, complexity)
}

// inspectHandler serves one inspector operation for the component in the
// path, mapping inspector errors to status codes
func (s *Server) inspectHandler(op func(*inspect.Inspector, string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := op(inspect.New(s.current()), mux.Vars(r)["id"])
		if err != nil {
			writeInspectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// handleStructure returns the class or module structure, whichever applies
func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	g, c, ok := s.component(w, r)
	if !ok {
		return
	}
	in := inspect.New(g)

	var (
		result any
		err    error
	)
	if c.Type == model.ComponentModule {
		result, err = in.ModuleStructure(c.ID)
	} else {
		result, err = in.ClassStructure(c.ID)
	}
	if err != nil {
		writeInspectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHierarchy returns the inheritance hierarchy of a class and the call
// hierarchy of a function or method
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	g, c, ok := s.component(w, r)
	if !ok {
		return
	}
	in := inspect.New(g)

	var (
		result any
		err    error
	)
	switch c.Type {
	case model.ComponentClass, model.ComponentInterface:
		result, err = in.InheritanceHierarchy(c.ID)
	default:
		result, err = in.CallHierarchy(c.ID)
	}
	if err != nil {
		writeInspectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeInspectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inspect.ErrNotFound), errors.Is(err, inspect.ErrNoSource):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inspect.ErrWrongType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleDiagram builds a diagram from the type, focus and depth query
// parameters. With format=mermaid the Mermaid source is returned as text.
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	g := s.current()
	q := r.URL.Query()

	kind := render.KindComponent
	if t := q.Get("type"); t != "" {
		var err error
		if kind, err = render.ParseKind(t); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	depth := 1
	if d := q.Get("depth"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid depth %q", d))
			return
		}
		depth = n
	}

	diagram, err := render.Build(g, kind, q.Get("focus"), depth)
	if errors.Is(err, render.ErrUnknownComponent) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch q.Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, diagram)
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := render.WriteMermaid(w, diagram, false); err != nil {
			logging.ErrorContext(r.Context(), "failed to write diagram", "error", err)
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", q.Get("format")))
	}
}

// handleCycles finds cycles over the comma separated relationship types in
// the types query parameter, imports and calls by default
func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	var types []model.RelationshipType
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, model.RelationshipType(t))
		}
	}
	writeJSON(w, http.StatusOK, deps.New(s.current()).CircularDependencies(types...))
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, deps.New(s.current()).Modules())
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, deps.New(s.current()).ImportStructure())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Start serves the API on port until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
