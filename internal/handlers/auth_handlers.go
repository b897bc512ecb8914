// File: internal/handlers/auth_handlers.go
package handlers

import (
	"net/http"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/dtos"
	"github.com/iyunix/go-dualotp/internal/middleware"
	"github.com/iyunix/go-dualotp/internal/services/user_services"
)

// AuthHandler holds the dependencies for the OTP and session endpoints.
type AuthHandler struct {
	verification *user_services.VerificationService
	sessions     *user_services.SessionService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(verification *user_services.VerificationService, sessions *user_services.SessionService) *AuthHandler {
	return &AuthHandler{verification: verification, sessions: sessions}
}

// Initiate handles POST /user/auth/initiate.
func (h *AuthHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req dtos.InitiateRequestDTO
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.verification.Initiate(r.Context(), user_services.InitiateRequest{
		Email:   req.Email,
		Phone:   req.Phone,
		Purpose: domain.Purpose(req.Purpose),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOutcome(w, outcome)
}

// Verify handles POST /user/auth/verify.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyRequestDTO
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.verification.Verify(r.Context(), user_services.VerifyRequest{
		Email:   req.Email,
		Phone:   req.Phone,
		Code:    req.Code,
		Name:    req.Name,
		Purpose: domain.Purpose(req.Purpose),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOutcome(w, outcome)
}

// Refresh handles POST /user/auth/session/refresh. The possibly expired access
// token comes in the Authorization header.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dtos.RefreshRequestDTO
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.sessions.Refresh(r.Context(), middleware.BearerToken(r), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "token refreshed", dtos.RefreshResponseDTO{AccessToken: token})
}

// Close handles POST /user/auth/session/close behind RequireSession.
func (h *AuthHandler) Close(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.NewError(domain.KindAuth, "unauthorized"))
		return
	}
	if err := h.sessions.Invalidate(r.Context(), principal.SessionID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "logged out", nil)
}
