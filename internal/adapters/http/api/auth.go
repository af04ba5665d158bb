package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/solodex/internal/app"
	"github.com/okian/solodex/pkg/logger"
)

// AuthHandler serves the current user, admin login and public settings.
type AuthHandler struct {
	svc AuthService
	log logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc, log: logger.NamedOrNop("auth")}
}

// HandleMe handles GET /entities/User/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.svc.Me(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "current user lookup failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

type loginRequest struct {
	Password string `json:"password"`
}

// HandleLogin handles POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	role, err := h.svc.Login(r.Context(), req.Password)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, loginResponse{Success: false, Error: msgInvalidPass})
	case err != nil:
		h.log.Error(r.Context(), "login failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
	default:
		writeJSON(w, http.StatusOK, loginResponse{Success: true, Role: role})
	}
}

// HandlePublicSettings handles GET /apps/public/prod/public-settings/by-id/{appID}.
func (h *AuthHandler) HandlePublicSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.PublicSettings(chi.URLParam(r, "appID")))
}
