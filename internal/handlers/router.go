package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/iyunix/go-dualotp/internal/middleware"
	"github.com/iyunix/go-dualotp/internal/ratelimit"
	"github.com/iyunix/go-dualotp/internal/services"
)

// RouterConfig collects everything the HTTP surface depends on.
type RouterConfig struct {
	Auth           *AuthHandler
	Profile        *ProfileHandler
	Authenticator  middleware.Authenticator
	Limiter        *ratelimit.MemoryRateLimiter
	Logger         services.Logger
	AllowedOrigins []string
	HealthChecks   []func(context.Context) error
}

// NewRouter wires routes and middleware.
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	r.Use(middleware.RecoverPanic)
	r.Use(middleware.LoggingMiddleware(cfg.Logger))

	r.HandleFunc("/health", Health(cfg.HealthChecks...)).Methods("GET")

	auth := r.PathPrefix("/user/auth").Subrouter()

	otp := auth.NewRoute().Subrouter()
	if cfg.Limiter != nil {
		otp.Use(middleware.RateLimitMiddleware(cfg.Limiter, "otp"))
	}
	otp.HandleFunc("/initiate", cfg.Auth.Initiate).Methods("POST")
	var verify http.Handler = http.HandlerFunc(cfg.Auth.Verify)
	if cfg.Limiter != nil {
		verify = middleware.ResetOnSuccess(cfg.Limiter, "otp")(verify)
	}
	otp.Handle("/verify", verify).Methods("POST")

	auth.HandleFunc("/session/refresh", cfg.Auth.Refresh).Methods("POST")

	guard := middleware.RequireSession(cfg.Authenticator)
	auth.Handle("/session/close", guard(http.HandlerFunc(cfg.Auth.Close))).Methods("POST")

	user := r.PathPrefix("/user").Subrouter()
	user.Use(guard)
	user.HandleFunc("/profile", cfg.Profile.GetProfile).Methods("GET")

	return r
}
