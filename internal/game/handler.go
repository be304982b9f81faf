package game

import (
	"errors"
	"net/http"

	"github.com/krishanu7/subway-trader-backend/internal/auth"
	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/krishanu7/subway-trader-backend/pkg/httputil"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.Named("game_handler"),
	}
}

// Save handles POST /api/game/save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	username := auth.UsernameFromContext(r.Context())
	snap, err := h.service.Save(r.Context(), username, req)
	switch {
	case IsValidation(err):
		httputil.WriteError(w, http.StatusBadRequest, "Invalid game state", err)
		return
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "Player not found", err)
		return
	case err != nil:
		h.log.Error("save game failed", zap.String("username", username), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to save game state", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":   "Game state saved",
		"gameState": snap,
		"success":   true,
	})
}

// Load handles GET /api/game/load.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	username := auth.UsernameFromContext(r.Context())
	res, err := h.service.Load(r.Context(), username)
	if err != nil {
		h.log.Error("load game failed", zap.String("username", username), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to load game state", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"gameState": res.Snapshot,
		"isNew":     res.IsNew,
		"success":   true,
	})
}
