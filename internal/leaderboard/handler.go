package leaderboard

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

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
		log:     log.Named("leaderboard_handler"),
	}
}

type windowResponse struct {
	Window
	Success bool `json:"success"`
}

// GetWindow handles GET /api/leaderboard?score=&username=. The username
// falls back to the bearer token's subject when omitted.
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := ParseTarget(q.Get("score"))
	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		username = auth.UsernameFromContext(r.Context())
	}

	window, err := h.service.Window(r.Context(), target, username)
	if err != nil {
		h.log.Error("resolve window failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to fetch leaderboard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, windowResponse{Window: window, Success: true})
}

// GetTop handles GET /api/highscores?limit=N.
func (h *Handler) GetTop(w http.ResponseWriter, r *http.Request) {
	limit := DefaultTopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.service.Top(r.Context(), limit)
	if err != nil {
		h.log.Error("top scores failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to fetch scores", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"scores": entries, "success": true})
}

type submitRequest struct {
	Score *int64 `json:"score"`
}

// SubmitScore handles POST /api/highscore for the authenticated player.
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid score", err)
		return
	}
	if req.Score == nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid score", ErrInvalidScore)
		return
	}

	username := auth.UsernameFromContext(r.Context())
	res, err := h.service.Submit(r.Context(), username, *req.Score)
	switch {
	case errors.Is(err, ErrInvalidScore):
		httputil.WriteError(w, http.StatusBadRequest, "Invalid score", err)
		return
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "Player not found", err)
		return
	case err != nil:
		h.log.Error("submit score failed", zap.String("username", username), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to save score", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"updated":   res.Updated,
		"highScore": res.HighScore,
		"success":   true,
	})
}
