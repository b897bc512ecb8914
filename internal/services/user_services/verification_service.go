// File: internal/services/user_services/verification_service.go
package user_services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/repository/identity"
	"github.com/iyunix/go-dualotp/internal/repository/otp"
	"github.com/iyunix/go-dualotp/internal/services"
)

var tracer = otel.Tracer("github.com/iyunix/go-dualotp/internal/services/user_services")

// VerificationService runs the dual-channel OTP protocol: it issues codes per
// channel, verifies them, accumulates channel proofs on the identity and hands
// off to the session engine once both channels are proven.
type VerificationService struct {
	identities identity.IdentityRepository
	otps       otp.OTPRepository
	sessions   *SessionService
	sms        SMSSender
	email      EmailSender
	logger     Logger

	codeTTL      time.Duration
	now          func() time.Time
	generateCode func() (string, error)
}

// VerificationOption customizes a VerificationService.
type VerificationOption func(*VerificationService)

// WithCodeTTL overrides the 5 minute code lifetime.
func WithCodeTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

// WithVerificationClock replaces time.Now for expiry checks.
func WithVerificationClock(now func() time.Time) VerificationOption {
	return func(s *VerificationService) { s.now = now }
}

// WithCodeGenerator replaces the random 6-digit code source.
func WithCodeGenerator(gen func() (string, error)) VerificationOption {
	return func(s *VerificationService) { s.generateCode = gen }
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	identities identity.IdentityRepository,
	otps otp.OTPRepository,
	sessions *SessionService,
	sms SMSSender,
	email EmailSender,
	logger Logger,
	opts ...VerificationOption,
) *VerificationService {
	s := &VerificationService{
		identities:   identities,
		otps:         otps,
		sessions:     sessions,
		sms:          sms,
		email:        email,
		logger:       logger,
		codeTTL:      DefaultCodeTTL,
		now:          time.Now,
		generateCode: generateNumericCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate issues a code on the channel the request addresses. Business
// outcomes (OK, CONFLICT, RATE_LIMITED, VALIDATION_FAILED) come back as an
// Outcome; delivery and store failures come back as errors.
func (s *VerificationService) Initiate(ctx context.Context, req InitiateRequest) (*domain.Outcome, error) {
	ctx, span := tracer.Start(ctx, "VerificationService.Initiate")
	defer span.End()

	in, fieldErrs := normalizeContacts(req.Email, req.Phone, req.Purpose)
	if len(fieldErrs) > 0 {
		return validationOutcome(fieldErrs), nil
	}

	existing, err := s.lookupIdentity(ctx, in)
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to look up identity", err))
	}

	channel := decideChannel(in.email, in.phone, existing)
	contact := in.of(channel)
	span.SetAttributes(attribute.String("otp.channel", string(channel)), attribute.String("otp.purpose", string(in.purpose)))

	clash, err := s.contactClash(ctx, channel, contact, existing)
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to check contact uniqueness", err))
	}
	if clash {
		s.logger.Warn("OTP initiate rejected, contact owned by another identity",
			"channel", channel, "contact", services.MaskContact(contact))
		return &domain.Outcome{Status: domain.StatusConflict, Message: conflictMessage(channel)}, nil
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to generate code", err))
	}

	res, err := s.otps.Issue(ctx, domain.IssueRequest{
		ContactKey: contact,
		Channel:    channel,
		Purpose:    in.purpose,
		Code:       code,
		TTL:        s.codeTTL,
	})
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to store code", err))
	}
	if !res.OK {
		s.logger.Warn("OTP issuance capped", "channel", channel, "contact", services.MaskContact(contact), "retry_after", res.RetryAfter)
		return &domain.Outcome{
			Status:     domain.StatusRateLimited,
			Message:    "OTP retry attempts exceeded",
			RetryAfter: res.RetryAfter,
		}, nil
	}

	if err := s.deliver(ctx, channel, contact, code); err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindDeliveryFailure, "failed to deliver verification code", err))
	}

	s.logger.Info("OTP sent", "channel", channel, "contact", services.MaskContact(contact), "remaining", res.Remaining)
	return &domain.Outcome{
		Status:            domain.StatusOK,
		Message:           "OTP SENT",
		OTPSentTo:         contact,
		AttemptsRemaining: res.Remaining,
	}, nil
}

// Verify consumes a code and records the channel proof. It returns PARTIAL
// until both channels are verified, then OK with a fresh session.
func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) (*domain.Outcome, error) {
	ctx, span := tracer.Start(ctx, "VerificationService.Verify")
	defer span.End()

	in, fieldErrs := normalizeContacts(req.Email, req.Phone, req.Purpose)
	if req.Code == "" {
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "code", Message: "OTP code is required"})
	}
	if len(fieldErrs) > 0 {
		return validationOutcome(fieldErrs), nil
	}

	existing, err := s.lookupIdentity(ctx, in)
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to look up identity", err))
	}

	channel := decideChannel(in.email, in.phone, existing)
	contact := in.of(channel)
	span.SetAttributes(attribute.String("otp.channel", string(channel)), attribute.String("otp.purpose", string(in.purpose)))

	challenge, err := s.otps.Fetch(ctx, contact, channel, in.purpose)
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to fetch code", err))
	}
	if challenge == nil {
		return nil, s.fail(span, domain.NewError(domain.KindNotFound, "OTP not found"))
	}
	if challenge.IsExpired(s.now()) {
		return nil, s.fail(span, domain.NewError(domain.KindExpired, "OTP has expired"))
	}
	if !challenge.Matches(req.Code) {
		s.logger.Warn("invalid OTP presented", "channel", channel, "contact", services.MaskContact(contact))
		return nil, s.fail(span, domain.NewError(domain.KindInvalid, "invalid OTP"))
	}
	consumed, err := s.otps.Delete(ctx, challenge)
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to consume code", err))
	}
	if !consumed {
		// Another request consumed or replaced this code after we fetched it.
		return nil, s.fail(span, domain.NewError(domain.KindNotFound, "OTP not found"))
	}

	user := existing
	if user == nil {
		user = &domain.Identity{
			ID:    uuid.NewString(),
			Name:  domain.StringPtr(req.Name),
			Email: domain.StringPtr(in.email),
			Phone: domain.StringPtr(in.phone),
		}
		if err := s.identities.Insert(ctx, user); err != nil {
			return nil, s.fail(span, storeError(err, "failed to create identity"))
		}
		s.logger.Info("identity created", "user_id", user.ID, "channel", channel)
	}

	clash, err := s.contactClash(ctx, channel, contact, user)
	if err != nil {
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to check contact uniqueness", err))
	}
	if clash {
		return nil, s.fail(span, domain.NewError(domain.KindConflict, conflictMessage(channel)))
	}

	promotion := domain.Promotion{Name: domain.StringPtr(req.Name)}
	if channel == domain.ChannelPhone {
		promotion.PhoneOK = true
		promotion.Phone = domain.StringPtr(in.phone)
	} else {
		promotion.EmailOK = true
	}
	if err := s.identities.PromoteChannel(ctx, user.ID, promotion); err != nil {
		return nil, s.fail(span, storeError(err, "failed to record channel verification"))
	}
	if err := s.identities.FillMissingContact(ctx, user.ID, domain.StringPtr(in.email), domain.StringPtr(in.phone)); err != nil {
		return nil, s.fail(span, storeError(err, "failed to store contact"))
	}

	user, err = s.identities.FindByID(ctx, user.ID)
	if err != nil || user == nil {
		if err == nil {
			err = identity.ErrIdentityNotFound
		}
		return nil, s.fail(span, domain.WrapError(domain.KindInternal, "failed to reload identity", err))
	}

	if !user.IsFullyVerified() {
		need := user.MissingChannel()
		s.logger.Info("channel verified, awaiting second channel", "user_id", user.ID, "verified", channel, "required", need)
		return &domain.Outcome{
			Status:                 domain.StatusPartial,
			Message:                fmt.Sprintf("please verify %s", need),
			VerificationRequired:   need,
			CurrentChannelVerified: channel,
		}, nil
	}

	tokens, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.logger.Info("identity fully verified, session created", "user_id", user.ID, "session_id", tokens.SessionID)
	return &domain.Outcome{
		Status:  domain.StatusOK,
		Message: "Authentication successful",
		Session: tokens,
	}, nil
}

// lookupIdentity prefers the phone match so a stale email cannot pull the
// request onto the wrong account.
func (s *VerificationService) lookupIdentity(ctx context.Context, in contacts) (*domain.Identity, error) {
	if in.phone != "" {
		found, err := s.identities.FindByPhone(ctx, in.phone)
		if err != nil || found != nil {
			return found, err
		}
	}
	return s.identities.FindByEmail(ctx, in.email)
}

// contactClash reports whether contact already belongs to an identity other
// than owner.
func (s *VerificationService) contactClash(ctx context.Context, channel domain.Channel, contact string, owner *domain.Identity) (bool, error) {
	if contact == "" {
		return false, nil
	}
	var (
		holder *domain.Identity
		err    error
	)
	if channel == domain.ChannelPhone {
		holder, err = s.identities.FindByPhone(ctx, contact)
	} else {
		holder, err = s.identities.FindByEmail(ctx, contact)
	}
	if err != nil {
		return false, err
	}
	return holder != nil && (owner == nil || holder.ID != owner.ID), nil
}

func (s *VerificationService) deliver(ctx context.Context, channel domain.Channel, contact, code string) error {
	if channel == domain.ChannelPhone {
		return s.sms.SendSMS(ctx, contact, fmt.Sprintf("Your verification code is %s", code))
	}
	return s.email.SendEmail(ctx, contact, "Your verification code", fmt.Sprintf("Your verification code is %s", code))
}

func (s *VerificationService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(domain.KindOf(err)))
	if domain.KindOf(err) == domain.KindInternal {
		s.logger.Error("verification failed", "error", err)
	}
	return err
}

// storeError maps unique-constraint rejections onto CONFLICT.
func storeError(err error, message string) error {
	if errors.Is(err, domain.ErrContactTaken) {
		return domain.WrapError(domain.KindConflict, "contact already in use", err)
	}
	return domain.WrapError(domain.KindInternal, message, err)
}

func conflictMessage(channel domain.Channel) string {
	if channel == domain.ChannelPhone {
		return "Phone already in use by another account"
	}
	return "E-mail already in use by another account"
}

// generateNumericCode returns a uniformly random code in 100000-999999.
func generateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
