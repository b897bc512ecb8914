package user_services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iyunix/go-dualotp/internal/auth"
	"github.com/iyunix/go-dualotp/internal/database"
	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/repository/identity"
	"github.com/iyunix/go-dualotp/internal/repository/otp"
	"github.com/iyunix/go-dualotp/internal/repository/session"
	"github.com/iyunix/go-dualotp/internal/services"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// outbox records delivered codes per contact.
type outbox struct {
	mu    sync.Mutex
	sent  map[string][]string
	fail  error
	count int
}

func newOutbox() *outbox {
	return &outbox{sent: make(map[string][]string)}
}

func (o *outbox) record(contact, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.count++
	o.sent[contact] = append(o.sent[contact], message)
	return nil
}

func (o *outbox) SendSMS(ctx context.Context, phone, message string) error {
	return o.record(phone, message)
}

func (o *outbox) SendEmail(ctx context.Context, email, subject, message string) error {
	return o.record(email, message)
}

// lastCode returns the most recent code delivered to contact.
func (o *outbox) lastCode(t *testing.T, contact string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.sent[contact]
	if len(msgs) == 0 {
		t.Fatalf("no code delivered to %s", contact)
	}
	msg := msgs[len(msgs)-1]
	return msg[strings.LastIndex(msg, " ")+1:]
}

type fixture struct {
	verification *VerificationService
	sessions     *SessionService
	identities   identity.IdentityRepository
	otps         *otp.GormOTPRepository
	sessionRepo  session.SessionRepository
	tokens       *auth.TokenManager
	sms          *outbox
	email        *outbox
	clock        *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	clock := &fakeClock{now: baseTime}
	logger := &services.NoOpLogger{}

	policy := otp.DefaultPolicy()
	policy.HashCost = bcrypt.MinCost

	f := &fixture{
		identities:  identity.NewGormIdentityRepository(db),
		otps:        otp.NewGormOTPRepository(db, policy, otp.WithGormClock(clock.Now)),
		sessionRepo: session.NewGormSessionRepository(db, session.WithClock(clock.Now)),
		tokens:      auth.NewTokenManager([]byte("test-secret"), 15*time.Minute).WithClock(clock.Now),
		sms:         newOutbox(),
		email:       newOutbox(),
		clock:       clock,
	}
	f.sessions = NewSessionService(f.sessionRepo, f.tokens, logger,
		WithHashCost(bcrypt.MinCost),
		WithSessionClock(clock.Now),
	)
	f.verification = NewVerificationService(f.identities, f.otps, f.sessions, f.sms, f.email, logger,
		WithVerificationClock(clock.Now),
	)
	return f
}

func (f *fixture) initiate(t *testing.T, req InitiateRequest) *domain.Outcome {
	t.Helper()
	out, err := f.verification.Initiate(context.Background(), req)
	if err != nil {
		t.Fatalf("initiate %+v: %v", req, err)
	}
	return out
}

func (f *fixture) verify(t *testing.T, req VerifyRequest) *domain.Outcome {
	t.Helper()
	out, err := f.verification.Verify(context.Background(), req)
	if err != nil {
		t.Fatalf("verify %+v: %v", req, err)
	}
	return out
}

func expectKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var ae *domain.AuthError
	if !errors.As(err, &ae) || ae.Kind != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func expectStatus(t *testing.T, out *domain.Outcome, status domain.Status) {
	t.Helper()
	if out.Status != status {
		t.Fatalf("expected %s outcome, got %+v", status, out)
	}
}
