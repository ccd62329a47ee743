package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/history"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/value"
)

const maxBodyBytes = 1 << 20

// Server is the inspector HTTP server.
type Server struct {
	store  *store.Store
	hub    *Hub
	router *chi.Mux
	server *http.Server
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	logger  *slog.Logger
	metrics http.Handler
	addr    string
	hubOpts []HubOption
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *serverConfig) {
		c.logger = l
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(c *serverConfig) {
		c.metrics = h
	}
}

// WithAddr sets the listen address used by ListenAndServe. Default: ":7070".
func WithAddr(addr string) Option {
	return func(c *serverConfig) {
		c.addr = addr
	}
}

// WithOrigins allows WebSocket clients from the given origins.
// See WithAllowedOrigins.
func WithOrigins(origins ...string) Option {
	return func(c *serverConfig) {
		c.hubOpts = append(c.hubOpts, WithAllowedOrigins(origins...))
	}
}

// NewServer creates an inspector for s.
func NewServer(s *store.Store, opts ...Option) *Server {
	cfg := serverConfig{addr: ":7070"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	srv := &Server{
		store:  s,
		hub:    NewHub(s, cfg.logger, cfg.hubOpts...),
		router: chi.NewRouter(),
		logger: cfg.logger.With("component", "inspect"),
	}
	srv.setupRoutes(cfg.metrics)

	srv.server = &http.Server{
		Addr:              cfg.addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/fields", s.handleListFields)
		r.Get("/fields/{name}", s.handleGetField)
		r.Put("/fields/{name}", s.handleSetField)
		r.Patch("/fields/{name}", s.handlePatchField)

		r.Get("/history", s.handleGetHistory)
		r.Post("/history/save", s.handleHistoryOp("save"))
		r.Post("/history/undo", s.handleHistoryOp("undo"))
		r.Post("/history/redo", s.handleHistoryOp("redo"))
	})

	s.router.Get("/ws", s.hub.ServeHTTP)

	if metrics != nil {
		s.router.Handle("/metrics", metrics)
	}
}

// Handler returns the router, for mounting or httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.server.Addr }

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("inspector listening", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server and disconnects inspector clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// FieldView is a field's description together with its current value.
type FieldView struct {
	store.FieldInfo
	Value json.RawMessage `json:"value"`
}

// HistoryView summarizes the history record.
type HistoryView struct {
	Enabled  bool            `json:"enabled"`
	Keys     []string        `json:"keys,omitempty"`
	CanUndo  bool            `json:"canUndo"`
	CanRedo  bool            `json:"canRedo"`
	Position int             `json:"position"`
	Length   int             `json:"length"`
	Record   *history.Record `json:"record,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := ""

	var se *serrors.StoreError
	var pe *store.PathError
	switch {
	case errors.As(err, &se):
		code = se.Code
		switch se.Code {
		case "S001":
			status = http.StatusNotFound
		case "S002":
			status = http.StatusConflict
		case "S011":
			status = http.StatusBadGateway
		}
	case errors.As(err, &pe):
		status = http.StatusBadRequest
	case errors.Is(err, errBadBody):
		status = http.StatusBadRequest
	}

	s.logger.Debug("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"status", status,
		"error", err)
	writeJSON(w, status, Response{Error: err.Error(), Code: code})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) fieldView(info store.FieldInfo) (FieldView, error) {
	v, err := s.store.State().Resolve(info.Name)
	if err != nil {
		return FieldView{}, err
	}
	raw, err := value.Encode(v)
	if err != nil {
		return FieldView{}, err
	}
	return FieldView{FieldInfo: info, Value: raw}, nil
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	infos := s.store.Describe()
	out := make([]FieldView, 0, len(infos))
	for _, info := range infos {
		fv, err := s.fieldView(info)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out = append(out, fv)
	}
	s.success(w, out)
}

func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.Info(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if path := r.URL.Query().Get("path"); path != "" {
		ref, err := s.store.State().Get(info.Name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		raw, err := value.Encode(ref.At(value.ParsePath(path)).Resolve())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.success(w, json.RawMessage(raw))
		return
	}

	fv, err := s.fieldView(info)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.success(w, fv)
}

var errBadBody = errors.New("inspect: request body is not a JSON value")

func readValue(r *http.Request) (value.Value, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Join(errBadBody, err)
	}
	v, err := value.Decode(body)
	if err != nil {
		return nil, errors.Join(errBadBody, err)
	}
	return v, nil
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, err := readValue(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.State().Set(name, v); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondField(w, r, name)
}

func (s *Server) handlePatchField(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, err := readValue(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ref, err := s.store.State().Get(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := ref.SetAt(value.ParsePath(r.URL.Query().Get("path")), v); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondField(w, r, name)
}

func (s *Server) respondField(w http.ResponseWriter, r *http.Request, name string) {
	info, err := s.store.Info(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fv, err := s.fieldView(info)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.success(w, fv)
}

func (s *Server) historyView() (HistoryView, error) {
	view := HistoryView{Enabled: s.store.HistoryEnabled()}
	if !view.Enabled {
		return view, nil
	}
	rec, err := s.store.History()
	if err != nil {
		return view, err
	}
	view.Keys = s.store.HistoryKeys()
	view.CanUndo = rec.CanUndo()
	view.CanRedo = rec.CanRedo()
	view.Position = rec.Position
	view.Length = rec.Len()
	view.Record = rec
	return view, nil
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	view, err := s.historyView()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.success(w, view)
}

func (s *Server) handleHistoryOp(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.store.HistoryEnabled() {
			s.fail(w, r, serrors.New("S002"))
			return
		}

		var err error
		switch op {
		case "save":
			err = s.store.SaveHistory()
		case "undo":
			err = s.store.Undo()
		case "redo":
			err = s.store.Redo()
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		// Undo and redo restore values without waking subscribers.
		if keys := s.store.HistoryKeys(); op != "save" && len(keys) > 0 {
			if err := s.store.Invalidate(keys...); err != nil {
				s.fail(w, r, err)
				return
			}
		}

		view, err := s.historyView()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.success(w, view)
	}
}
