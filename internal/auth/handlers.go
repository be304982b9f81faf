package auth

import (
	"errors"
	"net/http"

	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/krishanu7/subway-trader-backend/pkg/httputil"
	"go.uber.org/zap"
)

type AuthHandler struct {
	service *Service
	log     *zap.Logger
}

func NewAuthHandler(service *Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.Named("auth_handler"),
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session
	Success bool `json:"success"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	session, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeFailure(w, "Registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{Session: session, Success: true})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeFailure(w, "Login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{Session: session, Success: true})
}

// Me returns the authenticated player's public profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username := UsernameFromContext(r.Context())
	p, err := h.service.Profile(r.Context(), username)
	if err != nil {
		h.writeFailure(w, "Profile lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"username":  p.Username,
		"highScore": p.HighScore,
		"createdAt": p.CreatedAt,
		"success":   true,
	})
}

func (h *AuthHandler) writeFailure(w http.ResponseWriter, msg string, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		httputil.WriteError(w, http.StatusBadRequest, msg, err)
	case errors.Is(err, ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, msg, err)
	case errors.Is(err, store.ErrUsernameTaken):
		httputil.WriteError(w, http.StatusConflict, msg, err)
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, msg, err)
	default:
		h.log.Error(msg, zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, msg, err)
	}
}
