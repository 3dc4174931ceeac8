package server

import (
	"log/slog"
	"net/http"

	"github.com/vango-go/vai-interviews/pkg/gateway/config"
	"github.com/vango-go/vai-interviews/pkg/gateway/handlers"
	"github.com/vango-go/vai-interviews/pkg/gateway/mw"
	"github.com/vango-go/vai-interviews/pkg/gateway/principal"
	"github.com/vango-go/vai-interviews/pkg/interview"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	service *interview.Service
	owners  principal.OwnerResolver
	pinger  handlers.StorePinger
}

// Option tweaks optional server collaborators.
type Option func(*Server)

// WithOwnerResolver overrides the owner-resolution backend.
func WithOwnerResolver(r principal.OwnerResolver) Option {
	return func(s *Server) { s.owners = r }
}

// WithStorePinger wires the readiness probe into the persistence layer.
func WithStorePinger(p handlers.StorePinger) Option {
	return func(s *Server) { s.pinger = p }
}

func New(cfg config.Config, service *interview.Service, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
		service: service,
		owners:  principal.Passthrough{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg, Pinger: s.pinger})

	sessions := handlers.SessionsHandler{
		Config:  s.cfg,
		Service: s.service,
		Owners:  s.owners,
		Logger:  s.logger,
	}
	s.mux.HandleFunc("POST /v1/sessions", sessions.Create)
	s.mux.HandleFunc("GET /v1/sessions", sessions.List)
	s.mux.HandleFunc("GET /v1/sessions/{id}", sessions.Get)
	s.mux.HandleFunc("POST /v1/sessions/{id}/start", sessions.Start)
	s.mux.HandleFunc("POST /v1/sessions/{id}/turns", sessions.AppendTurn)
	s.mux.HandleFunc("GET /v1/sessions/{id}/turns", sessions.ListTurns)
	s.mux.HandleFunc("PATCH /v1/sessions/{id}/turns/{index}", sessions.PatchTurn)
	s.mux.HandleFunc("POST /v1/sessions/{id}/terminate", sessions.Terminate)
	s.mux.HandleFunc("POST /v1/sessions/{id}/complete", sessions.Complete)
	s.mux.HandleFunc("GET /v1/sessions/{id}/evaluation", sessions.Evaluation)
	s.mux.HandleFunc("POST /v1/sessions/{id}/violations", sessions.RecordViolation)

	s.mux.Handle("GET /v1/sessions/{id}/live", handlers.LiveHandler{
		Config:  s.cfg,
		Service: s.service,
		Logger:  s.logger,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
