package api

import (
	"net/http"
	"time"

	"github.com/rpupo63/round/database"
	"github.com/rs/zerolog/log"
)

type healthHandler struct {
	responder   Responder
	db          database.Database
	startupTime time.Time
}

func newHealthHandler(db database.Database, startupTime time.Time) healthHandler {
	logger := log.With().Str("handlerName", "healthHandler").Logger()
	return healthHandler{
		responder:   NewResponder(logger),
		db:          db,
		startupTime: startupTime,
	}
}

func (h healthHandler) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:      "ok",
			StartupTime: h.startupTime,
			Uptime:      time.Since(h.startupTime).Round(time.Second).String(),
		}
		status := http.StatusOK
		if err := h.db.Ping(r.Context()); err != nil {
			h.responder.logger.Error().Err(err).Msg("Health check failed")
			response.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		h.responder.WriteJSONStatus(w, status, response)
	}
}
