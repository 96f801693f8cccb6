package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/round/auth"
	"github.com/rpupo63/round/cache"
	"github.com/rpupo63/round/config"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/services"
	"github.com/rs/zerolog/log"
)

// Deps are the long-lived components the handlers share.
type Deps struct {
	DB            database.Database
	ReadModel     *cache.ReadModel
	Sessions      *auth.SessionManager
	GitHub        *auth.GitHub
	Mailer        services.Mailer
	SessionSecret string
	AppURL        string
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, deps Deps) (Server, error) {
	if deps.Sessions == nil || deps.ReadModel == nil {
		return Server{}, fmt.Errorf("api: sessions and read model are required")
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port) // Bind to 0.0.0.0 for external access

	startupTime := time.Now()

	router := newRouter(deps, withConfig(c), withStartupTime(startupTime))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(c, "READ_TIMEOUT_SECONDS", time.Second, 180*time.Second),
		WriteTimeout: config.GetDuration(c, "WRITE_TIMEOUT_SECONDS", time.Second, 180*time.Second),
		IdleTimeout:  config.GetDuration(c, "IDLE_TIMEOUT_SECONDS", time.Second, 180*time.Second),
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(deps Deps, opts ...func(*router)) *chi.Mux {
	r := router{startupTime: time.Now()}
	for _, opt := range opts {
		opt(&r)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(requestLogger(config.GetString(r.config, "LOG_FORMAT", "console")))

	acceptedOrigins := config.GetList(r.config, "ACCEPTED_ORIGINS")
	chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
	chiRouter.Use(corsMiddleware(acceptedOrigins))

	handlers := initializeHandlers(deps, r)
	authMiddleware := newAuthMiddleware(deps.Sessions)

	setupPublicRoutes(chiRouter, handlers)
	setupFrontendRoutes(chiRouter, handlers, authMiddleware)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
