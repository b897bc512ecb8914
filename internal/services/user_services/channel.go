package user_services

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/iyunix/go-dualotp/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// contacts is a validated, normalized request.
type contacts struct {
	email   string
	phone   string
	purpose domain.Purpose
}

func (c contacts) of(ch domain.Channel) string {
	if ch == domain.ChannelPhone {
		return c.phone
	}
	return c.email
}

// decideChannel picks the single channel a request addresses. With both
// contacts present, a new identity starts with email and an existing one
// moves to phone once email is verified.
func decideChannel(email, phone string, existing *domain.Identity) domain.Channel {
	if email != "" && phone != "" {
		if existing == nil {
			return domain.ChannelEmail
		}
		if existing.EmailVerified {
			return domain.ChannelPhone
		}
		return domain.ChannelEmail
	}
	if phone != "" {
		return domain.ChannelPhone
	}
	return domain.ChannelEmail
}

// normalizeContacts validates the contact pair and purpose. Phones must carry a
// country code and are returned in E.164.
func normalizeContacts(email, phone string, purpose domain.Purpose) (contacts, []domain.FieldError) {
	var errs []domain.FieldError
	out := contacts{
		email:   strings.ToLower(strings.TrimSpace(email)),
		purpose: purpose,
	}
	phone = strings.TrimSpace(phone)

	if out.email == "" && phone == "" {
		errs = append(errs, domain.FieldError{Field: "phone", Message: "Either phone or email required"})
	}
	if phone != "" {
		e164, ok := normalizePhone(phone)
		if !ok {
			errs = append(errs, domain.FieldError{Field: "phone", Message: "Must be a valid international number with country code"})
		}
		out.phone = e164
	}
	if out.email != "" && !emailPattern.MatchString(out.email) {
		errs = append(errs, domain.FieldError{Field: "email", Message: "Invalid e-mail format"})
	}
	if out.purpose == "" {
		out.purpose = domain.PurposeRegistration
	}
	if !out.purpose.Valid() {
		errs = append(errs, domain.FieldError{Field: "purpose", Message: "Unknown purpose"})
	}
	return out, errs
}

func normalizePhone(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "+") {
		return "", false
	}
	num, err := phonenumbers.Parse(raw, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

func validationOutcome(errs []domain.FieldError) *domain.Outcome {
	return &domain.Outcome{
		Status:  domain.StatusValidationFailed,
		Message: "Validation failed",
		Errors:  errs,
	}
}
