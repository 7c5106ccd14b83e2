// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"association-membership/internal/domain"
	"association-membership/internal/domain/ports/repository"
	"association-membership/internal/infra/metrics"
	"association-membership/internal/infra/payment"
	"association-membership/internal/infra/redis"
)

// maxBodyBytes bounds every request body we decode.
const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	user, err := s.members.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "username, email and a password of at least 8 characters are required")
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "email already registered")
		default:
			s.logger.Error().Err(err).Msg("register failed")
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

func (s *Server) handleValidateEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := s.members.ValidateEmail(r.Context(), token); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			writeError(w, http.StatusNotFound, "unknown validation token")
			return
		}
		s.logger.Error().Err(err).Msg("email validation failed")
		writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "validated"})
}

func (s *Server) handleResendValidation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := s.members.ResendValidation(r.Context(), req.Email); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error().Err(err).Msg("resend validation failed")
		writeError(w, http.StatusInternalServerError, "resend failed")
		return
	}
	// Same answer whether or not the address exists.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(r.Context(), redis.LoginKey(req.Email), s.loginLimit, s.loginWindow)
		if err != nil {
			s.logger.Error().Err(err).Msg("login rate limit check failed")
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
	}

	user, err := s.members.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	token, err := s.jwt.Issue(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":         token,
		"accreditation": user.Accreditation.String(),
	})
}

func (s *Server) handlePasswordForgot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username and email are required")
		return
	}
	if err := s.members.RequestPasswordReset(r.Context(), req.Username, req.Email); err != nil {
		s.logger.Error().Err(err).Msg("password reset request failed")
		writeError(w, http.StatusInternalServerError, "request failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.members.ResetPassword(r.Context(), token, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidToken):
			writeError(w, http.StatusNotFound, "unknown reset token")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		default:
			s.logger.Error().Err(err).Msg("password reset failed")
			writeError(w, http.StatusInternalServerError, "reset failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.catalog.ListSubscriptions(r.Context(), repository.NoTX)
	if err != nil {
		s.logger.Error().Err(err).Msg("list subscriptions failed")
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	type productOut struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		Price        float64 `json:"price"`
		TaxRate      float64 `json:"tax_rate"`
		Recurrent    bool    `json:"recurrent"`
		DurationDays int     `json:"duration_days"`
	}
	type subOut struct {
		ID          string       `json:"id"`
		Name        string       `json:"name"`
		Description string       `json:"description"`
		Products    []productOut `json:"products"`
	}

	out := make([]subOut, 0, len(subs))
	for _, sub := range subs {
		products, err := s.catalog.ListProducts(r.Context(), repository.NoTX, sub.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("list products failed")
			writeError(w, http.StatusInternalServerError, "catalog unavailable")
			return
		}
		so := subOut{ID: sub.ID, Name: sub.Name, Description: sub.Description, Products: []productOut{}}
		for _, p := range products {
			so.Products = append(so.Products, productOut{
				ID: p.ID, Name: p.Name, Price: p.Price, TaxRate: p.TaxRate,
				Recurrent: p.Recurrent, DurationDays: p.DurationDays,
			})
		}
		out = append(out, so)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subscription string `json:"subscription"`
		Product      string `json:"product"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Subscription == "" || req.Product == "" {
		writeError(w, http.StatusBadRequest, "subscription and product are required")
		return
	}

	p, hostedURL, err := s.charges.CreateClassic(r.Context(), userIDFrom(r.Context()), req.Subscription, req.Product)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "unknown subscription or product")
		case errors.Is(err, domain.ErrAmountPrecision):
			writeError(w, http.StatusUnprocessableEntity, "product price cannot be charged exactly")
		default:
			s.logger.Error().Err(err).Msg("charge creation failed")
			writeError(w, http.StatusBadGateway, "payment provider unavailable")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"payment_id":  p.ID,
		"payment_url": hostedURL,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.FindByID(r.Context(), repository.NoTX, userIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error().Err(err).Msg("profile lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"accreditation": user.Accreditation.String(),
	})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := s.members.Unsubscribe(r.Context(), userIDFrom(r.Context())); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotSubscribed):
			writeError(w, http.StatusConflict, "no active subscription")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			s.logger.Error().Err(err).Msg("unsubscribe failed")
			writeError(w, http.StatusInternalServerError, "unsubscribe failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// handleNotification is the gateway webhook. The signature check runs before
// anything in the body is trusted; a verified payload is applied through the
// reconciliation state machine.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	defer r.Body.Close()

	result, err := s.verifier.Parse(body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		metrics.IncNotificationRejected()
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("notification rejected")
		writeError(w, http.StatusBadRequest, "invalid notification")
		return
	}

	if err := s.reconciler.Apply(r.Context(), result); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownPayment):
			// 200 so the gateway stops retrying a reference we will never know.
			s.logger.Warn().Str("reference", result.ID).Msg("notification for unknown payment")
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		case errors.Is(err, domain.ErrConflictingNotification):
			writeJSON(w, http.StatusOK, map[string]string{"status": "conflict_reported"})
		default:
			s.logger.Error().Err(err).Str("reference", result.ID).Msg("reconciliation failed")
			// 500 so the gateway retries; the transaction rolled back.
			writeError(w, http.StatusInternalServerError, "reconciliation failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
