package handlers

import (
	"net/http"

	"lifelink/internal/auth"
	"lifelink/internal/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type meResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if !a.decode(w, r, &req) {
		return
	}
	if _, err := a.Auth.Register(r.Context(), req); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "user registered"})
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	a.json(w, http.StatusOK, meResponse{Username: claims.Username, Role: string(claims.Role)})
}
