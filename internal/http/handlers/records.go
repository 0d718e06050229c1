package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifelink/internal/ledger"
	"lifelink/internal/middleware"
)

type verifyResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

var verifyMessages = map[string]string{
	"donation": "Donation record found",
	"supply":   "Supply dispatch record found",
}

func (a *App) actor(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.Username
	}
	return ""
}

func (a *App) Donate(w http.ResponseWriter, r *http.Request) {
	var req ledger.DonationInput
	if !a.decode(w, r, &req) {
		return
	}
	receipt, err := a.Ledger.RecordDonation(r.Context(), a.actor(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, receipt)
}

func (a *App) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req ledger.DispatchInput
	if !a.decode(w, r, &req) {
		return
	}
	receipt, err := a.Ledger.RecordDispatch(r.Context(), a.actor(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, receipt)
}

func (a *App) VerifyRecord(w http.ResponseWriter, r *http.Request) {
	found, err := a.Ledger.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, verifyResponse{Type: found.Type, Message: verifyMessages[found.Type], Data: found.Data})
}

func (a *App) GenerateQR(w http.ResponseWriter, r *http.Request) {
	code, err := a.Ledger.QR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, code)
}
