// File: internal/domain/outcome.go
package domain

import "net/http"

// Status classifies expected business outcomes of Initiate and Verify.
type Status string

const (
	StatusOK               Status = "OK"
	StatusPartial          Status = "PARTIAL"
	StatusConflict         Status = "CONFLICT"
	StatusRateLimited      Status = "RATE_LIMITED"
	StatusValidationFailed Status = "VALIDATION_FAILED"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Outcome is the structured result callers branch on. Only the fields relevant
// to Status are populated.
type Outcome struct {
	Status  Status
	Message string

	OTPSentTo         string
	AttemptsRemaining int

	RetryAfter int

	VerificationRequired   Channel
	CurrentChannelVerified Channel

	Session *SessionTokens

	Errors []FieldError
}

// HTTPStatus maps the outcome onto the status code the boundary renders.
func (o *Outcome) HTTPStatus() int {
	switch o.Status {
	case StatusOK:
		return http.StatusOK
	case StatusPartial:
		return http.StatusPartialContent
	case StatusConflict:
		return http.StatusConflict
	case StatusRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// Data renders the status-specific payload.
func (o *Outcome) Data() map[string]interface{} {
	switch o.Status {
	case StatusOK:
		if o.Session != nil {
			return map[string]interface{}{
				"accessToken":  o.Session.AccessToken,
				"refreshToken": o.Session.RefreshToken,
				"sessionId":    o.Session.SessionID,
			}
		}
		return map[string]interface{}{
			"otpSentTo":         o.OTPSentTo,
			"attemptsRemaining": o.AttemptsRemaining,
		}
	case StatusPartial:
		return map[string]interface{}{
			"verificationRequired":   o.VerificationRequired,
			"currentChannelVerified": o.CurrentChannelVerified,
		}
	case StatusRateLimited:
		return map[string]interface{}{
			"retryAfter":         o.RetryAfter,
			"maxAttemptsReached": true,
		}
	}
	return nil
}
