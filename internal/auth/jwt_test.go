package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	now := time.Now()
	m := NewTokenManager([]byte("secret"), 15*time.Minute).WithClock(func() time.Time { return now })

	token, err := m.Generate("user-1", "session-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.IdentityID() != "user-1" || claims.SessionID != "session-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	again, _ := m.Generate("user-1", "session-1")
	if again == token {
		t.Fatal("expected distinct tokens for repeated generation")
	}
}

func TestValidateRejectsExpiredButParseIgnoringExpiryAccepts(t *testing.T) {
	issued := time.Now()
	m := NewTokenManager([]byte("secret"), 15*time.Minute).WithClock(func() time.Time { return issued })
	token, err := m.Generate("user-1", "session-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	later := m.WithClock(func() time.Time { return issued.Add(time.Hour) })
	if _, err := later.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	claims, err := later.ParseIgnoringExpiry(token)
	if err != nil {
		t.Fatalf("parse ignoring expiry: %v", err)
	}
	if claims.SessionID != "session-1" {
		t.Fatalf("unexpected session id %q", claims.SessionID)
	}
}

func TestRejectsForeignSignature(t *testing.T) {
	mine := NewTokenManager([]byte("secret"), time.Minute)
	theirs := NewTokenManager([]byte("other"), time.Minute)

	token, err := theirs.Generate("user-1", "session-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := mine.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature failure, got %v", err)
	}
	if _, err := mine.ParseIgnoringExpiry(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature failure ignoring expiry, got %v", err)
	}
	if _, err := mine.Validate(""); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}
