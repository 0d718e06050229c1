package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports ok once the ledger store answers a ping.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Ledger.Ping(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("health check failed")
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
