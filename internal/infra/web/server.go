// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"association-membership/internal/config"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/repository"
	"association-membership/internal/infra/payment"
	"association-membership/internal/infra/redis"
	"association-membership/internal/usecase"
)

// Server wires the HTTP surface: the member API, the gateway notification
// webhook and the operational endpoints.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger

	members    usecase.MemberUseCase
	charges    usecase.ChargeUseCase
	reconciler usecase.ReconcileUseCase
	users      repository.UserRepository
	catalog    repository.CatalogRepository

	jwt      *JWTManager
	verifier *payment.WebhookVerifier
	limiter  *redis.RateLimiter

	loginLimit  int
	loginWindow time.Duration
}

type ServerDeps struct {
	Members    usecase.MemberUseCase
	Charges    usecase.ChargeUseCase
	Reconciler usecase.ReconcileUseCase
	Users      repository.UserRepository
	Catalog    repository.CatalogRepository
	Verifier   *payment.WebhookVerifier
	Limiter    *redis.RateLimiter
}

func NewServer(cfg *config.Config, deps ServerDeps, logger *zerolog.Logger) *Server {
	s := &Server{
		logger:      logger.With().Str("component", "web").Logger(),
		members:     deps.Members,
		charges:     deps.Charges,
		reconciler:  deps.Reconciler,
		users:       deps.Users,
		catalog:     deps.Catalog,
		jwt:         NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		verifier:    deps.Verifier,
		limiter:     deps.Limiter,
		loginLimit:  cfg.Auth.LoginLimit,
		loginWindow: cfg.Auth.LoginWindow,
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Get("/validate/{token}", s.handleValidateEmail)
		r.Post("/validate/resend", s.handleResendValidation)
		r.Post("/login", s.handleLogin)
		r.Post("/password/forgot", s.handlePasswordForgot)
		r.Post("/password/reset/{token}", s.handlePasswordReset)
		r.Get("/subscriptions", s.handleListSubscriptions)

		// Gateway-facing; authenticated by HMAC signature, not JWT.
		r.Post("/notifications", s.handleNotification)

		r.Group(func(r chi.Router) {
			r.Use(s.jwt.Authenticate)
			r.Get("/me", s.handleMe)
			r.Post("/unsubscribe", s.handleUnsubscribe)

			// Charging requires at least a validated email.
			r.Group(func(r chi.Router) {
				r.Use(s.requireAccreditation(model.AccreditationValidated))
				r.Post("/payments", s.handleCreatePayment)
			})
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
