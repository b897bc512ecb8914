// File: internal/dtos/user.go
package dtos

import (
	"net/http"
	"time"

	"github.com/iyunix/go-dualotp/internal/domain"
)

// InitiateRequestDTO is the payload for POST /user/auth/initiate.
type InitiateRequestDTO struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
}

// VerifyRequestDTO is the payload for POST /user/auth/verify.
type VerifyRequestDTO struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

// RefreshRequestDTO carries the refresh secret; the access token travels in
// the Authorization header.
type RefreshRequestDTO struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponseDTO is returned by a successful refresh.
type RefreshResponseDTO struct {
	AccessToken string `json:"accessToken"`
}

// IdentityResponseDTO defines what fields to expose on the profile endpoint.
type IdentityResponseDTO struct {
	UserID        string  `json:"user_id"`
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	EmailVerified bool    `json:"email_verified"`
	PhoneVerified bool    `json:"phone_verified"`
	CreatedAt     string  `json:"created_at"`
}

// ToIdentityResponseDTO converts a domain Identity to its response shape.
func ToIdentityResponseDTO(identity *domain.Identity) IdentityResponseDTO {
	return IdentityResponseDTO{
		UserID:        identity.ID,
		Name:          identity.Name,
		Email:         identity.Email,
		Phone:         identity.Phone,
		EmailVerified: identity.EmailVerified,
		PhoneVerified: identity.PhoneVerified,
		CreatedAt:     identity.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Envelope is the uniform JSON body of every API response.
type Envelope struct {
	StatusCode    int                 `json:"statusCode"`
	StatusMessage string              `json:"statusMessage"`
	Message       string              `json:"message"`
	Kind          domain.ErrorKind    `json:"kind,omitempty"`
	Data          interface{}         `json:"data,omitempty"`
	Errors        []domain.FieldError `json:"errors,omitempty"`
}

// NewEnvelope fills statusMessage from the status code.
func NewEnvelope(statusCode int, message string) Envelope {
	return Envelope{
		StatusCode:    statusCode,
		StatusMessage: StatusMessage(statusCode),
		Message:       message,
	}
}

// StatusMessage is the short reason phrase used in envelopes.
func StatusMessage(statusCode int) string {
	switch {
	case statusCode == http.StatusPartialContent:
		return "Partial Content"
	case statusCode < 300:
		return "OK"
	case statusCode == http.StatusBadRequest:
		return "Bad Request"
	case statusCode == http.StatusUnauthorized:
		return "Unauthorized"
	case statusCode == http.StatusNotFound:
		return "Not Found"
	case statusCode == http.StatusConflict:
		return "Conflict"
	case statusCode == http.StatusTooManyRequests:
		return "Too Many Requests"
	case statusCode == http.StatusBadGateway:
		return "Bad Gateway"
	default:
		return "Error"
	}
}
