// Package server exposes the lifecycle manager and message store over HTTP.
// It is deliberately thin: request parsing, token authentication and response
// shaping live here, every decision lives in the packages it fronts.
package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-message-triage/clientmanager"
	"github.com/jrsteele09/go-message-triage/internal/config"
	"github.com/jrsteele09/go-message-triage/messages"
	"github.com/jrsteele09/go-message-triage/triage"
	"github.com/jrsteele09/go-message-triage/users"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	manager  *clientmanager.Manager
	pipeline *triage.Pipeline
	messages messages.Repo
	users    users.Repo
	logger   zerolog.Logger
}

func New(cfg config.Config, manager *clientmanager.Manager, pipeline *triage.Pipeline, messageRepo messages.Repo, userRepo users.Repo, logger zerolog.Logger) (*Server, error) {
	if manager == nil {
		return nil, errors.New("[server.New] client manager is required")
	}
	if pipeline == nil {
		return nil, errors.New("[server.New] triage pipeline is required")
	}
	if messageRepo == nil {
		return nil, errors.New("[server.New] message repo is required")
	}
	if userRepo == nil {
		return nil, errors.New("[server.New] user repo is required")
	}
	if cfg.GetJWTSecret() == "" {
		return nil, errors.New("[server.New] JWT secret is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		manager:  manager,
		pipeline: pipeline,
		messages: messageRepo,
		users:    userRepo,
		logger:   logger,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		s.logger.Debug().Str("route", route).Msg("registered")
	}
}
