package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/teamdraw/internal/api/handler"
	apimiddleware "github.com/mcoot/teamdraw/internal/api/middleware"
	"github.com/mcoot/teamdraw/internal/metrics"
	"github.com/mcoot/teamdraw/internal/middleware"
	"github.com/mcoot/teamdraw/internal/services/auth"
	"github.com/mcoot/teamdraw/internal/services/teams"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	RosterService   handler.RosterService
	TeamsController teams.ControllerInterface
	Metrics         *metrics.Manager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	accountHandler := handler.NewAccountHandler(cfg.AuthService)
	eventHandler := handler.NewEventHandler(cfg.RosterService)
	teamHandler := handler.NewTeamHandler(cfg.TeamsController)
	healthHandler := handler.NewHealthHandler(cfg.RosterService)

	authMiddleware := apimiddleware.Auth(cfg.AuthService)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	if cfg.Metrics != nil {
		api.Use(middleware.Metrics(cfg.Metrics))
	}

	// Account routes (no auth required to register or log in)
	api.HandleFunc("/accounts/register", accountHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/accounts/login", accountHandler.Login).Methods(http.MethodPost)

	accounts := api.PathPrefix("/accounts").Subrouter()
	accounts.Use(authMiddleware)
	accounts.HandleFunc("/me", accountHandler.Me).Methods(http.MethodGet)
	accounts.HandleFunc("/logout", accountHandler.Logout).Methods(http.MethodPost)

	// Event routes (all require auth)
	events := api.PathPrefix("/events").Subrouter()
	events.Use(authMiddleware)
	events.HandleFunc("", eventHandler.Create).Methods(http.MethodPost)
	events.HandleFunc("/{eventId}", eventHandler.Get).Methods(http.MethodGet)
	events.HandleFunc("/{eventId}/signups", eventHandler.ListSignups).Methods(http.MethodGet)
	events.HandleFunc("/{eventId}/signups", eventHandler.AddSignup).Methods(http.MethodPost)
	events.HandleFunc("/{eventId}/signups/{signupId}/confirm", eventHandler.Confirm).Methods(http.MethodPost)
	events.HandleFunc("/{eventId}/signups/{signupId}/withdraw", eventHandler.Withdraw).Methods(http.MethodPost)

	// Team routes
	events.HandleFunc("/{eventId}/teams/draw", teamHandler.Draw).Methods(http.MethodPost)
	events.HandleFunc("/{eventId}/teams/audit", teamHandler.Audit).Methods(http.MethodGet)
	events.HandleFunc("/{eventId}/teams", teamHandler.List).Methods(http.MethodGet)
	events.HandleFunc("/{eventId}/teams", teamHandler.Set).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}
