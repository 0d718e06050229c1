package handlers

import (
	"net/http"

	"lifelink/internal/feedback"
	"lifelink/internal/middleware"
)

func (a *App) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedback.Input
	if !a.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	fb, err := a.Feedback.Submit(ctx, req, middleware.LocaleFromContext(ctx), middleware.CountryFromContext(ctx))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"message": "feedback received", "id": fb.ID})
}
