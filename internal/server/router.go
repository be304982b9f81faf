// Package server assembles the HTTP surface of the game server.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/krishanu7/subway-trader-backend/internal/auth"
	"github.com/krishanu7/subway-trader-backend/internal/game"
	"github.com/krishanu7/subway-trader-backend/internal/leaderboard"
	"github.com/krishanu7/subway-trader-backend/internal/ws"
	"github.com/krishanu7/subway-trader-backend/pkg/httputil"
	"github.com/krishanu7/subway-trader-backend/pkg/metrics"
	"go.uber.org/zap"
)

type Deps struct {
	Auth        *auth.AuthHandler
	Verifier    auth.Verifier
	Leaderboard *leaderboard.Handler
	Game        *game.Handler
	Feed        *ws.FeedHandler

	// Health reports whether backing stores are reachable. Nil means always healthy.
	Health func(ctx context.Context) error

	StaticDir      string
	AllowedOrigins []string
	Log            *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log.Named("http")
	r := mux.NewRouter()
	r.Use(requestID, securityHeaders, observe(log))
	r.MethodNotAllowedHandler = securityHeaders(http.HandlerFunc(methodNotAllowed))

	required := auth.Require(d.Verifier)
	optional := auth.Optional(d.Verifier)

	r.HandleFunc("/api/register", d.Auth.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/login", d.Auth.Login).Methods(http.MethodPost)
	r.Handle("/api/me", required(http.HandlerFunc(d.Auth.Me))).Methods(http.MethodGet)

	r.Handle("/api/leaderboard", optional(http.HandlerFunc(d.Leaderboard.GetWindow))).Methods(http.MethodGet)
	r.HandleFunc("/api/highscores", d.Leaderboard.GetTop).Methods(http.MethodGet)
	r.Handle("/api/highscore", required(http.HandlerFunc(d.Leaderboard.SubmitScore))).Methods(http.MethodPost)

	r.Handle("/api/game/save", required(http.HandlerFunc(d.Game.Save))).Methods(http.MethodPost)
	r.Handle("/api/game/load", required(http.HandlerFunc(d.Game.Load))).Methods(http.MethodGet)

	if d.Feed != nil {
		r.HandleFunc("/ws/leaderboard", d.Feed.ServeWS).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", health(d.Health, log)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(cacheStatic(http.FileServer(http.Dir(d.StaticDir)))).Methods(http.MethodGet, http.MethodHead)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(d.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return cors(r)
}

func health(check func(context.Context) error, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				log.Warn("health check failed", zap.Error(err))
				httputil.WriteError(w, http.StatusServiceUnavailable, "Store unavailable", err)
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "success": true})
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
}
