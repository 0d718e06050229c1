package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lifelink/internal/auth"
	"lifelink/internal/domain"
	"lifelink/internal/feedback"
	"lifelink/internal/infra"
	"lifelink/internal/ledger"
	"lifelink/internal/middleware"
)

const maxBodyBytes = 1 << 20

type App struct {
	Ledger   *ledger.Service
	Auth     *auth.Service
	Feedback *feedback.Service
	Logger   infra.Logger
}

func NewApp(ledgerSvc *ledger.Service, authSvc *auth.Service, feedbackSvc *feedback.Service, logger infra.Logger) *App {
	return &App{Ledger: ledgerSvc, Auth: authSvc, Feedback: feedbackSvc, Logger: logger}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}

// fail maps a service error onto the HTTP error taxonomy. Server side
// failures are logged and never echoed to the client.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrMirrorFailed):
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Str("path", r.URL.Path).Msg("external ledger failed")
		a.error(w, http.StatusInternalServerError, "mirror_failed", domain.ErrMirrorFailed.Error())
	default:
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// NotFound answers unknown routes in the error shape of the API.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusNotFound, "not_found", "route not found")
}

func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
