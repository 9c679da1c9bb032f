package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-tenant-server/auth"
	"github.com/jrsteele09/go-tenant-server/clients"
	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/internal/metrics"
	"github.com/jrsteele09/go-tenant-server/memberships"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/tenancy"
	"github.com/jrsteele09/go-tenant-server/users"
	"github.com/rs/zerolog/log"
)

// Services are the collaborators the HTTP layer drives.
type Services struct {
	Credentials *auth.CredentialService
	Memberships *memberships.Service
	Tenancy     *tenancy.Service
	Clients     *clients.Service
	Users       users.Repo
	Sessions    *sessions.Manager
	Cookies     *sessions.CookieSigner
	Ready       func(ctx context.Context) error // Optional readiness probe for /healthz
}

func (s Services) validate() error {
	switch {
	case s.Credentials == nil:
		return errors.New("credential service is required")
	case s.Memberships == nil:
		return errors.New("membership service is required")
	case s.Tenancy == nil:
		return errors.New("tenancy service is required")
	case s.Clients == nil:
		return errors.New("client service is required")
	case s.Users == nil:
		return errors.New("user repo is required")
	case s.Sessions == nil:
		return errors.New("session manager is required")
	case s.Cookies == nil:
		return errors.New("cookie signer is required")
	}
	return nil
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	svc    Services
}

func New(config config.Config, services Services) (*Server, error) {
	if err := services.validate(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s := &Server{
		env:    config.GetEnv(),
		mux:    http.NewServeMux(),
		config: config,
		svc:    services,
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
	label := routePath(pattern)
	s.mux.Handle(pattern, metrics.HTTPMetricsMiddleware(func(*http.Request) string { return label })(handler))
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.RegisterRouteHandler(pattern, http.HandlerFunc(handler))
}

// routePath strips the method from a mux pattern; it doubles as the metrics path label.
func routePath(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
