package user_services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iyunix/go-dualotp/internal/domain"
)

const (
	testPhone = "+14155550100"
	testEmail = "ada@example.com"
)

func TestPhoneInitiateVerifyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.initiate(t, InitiateRequest{Phone: testPhone})
	expectStatus(t, out, domain.StatusOK)
	if out.OTPSentTo != testPhone || out.AttemptsRemaining != 2 {
		t.Fatalf("unexpected initiate outcome %+v", out)
	}

	code := f.sms.lastCode(t, testPhone)
	challenge, err := f.otps.Fetch(ctx, testPhone, domain.ChannelPhone, domain.PurposeRegistration)
	if err != nil || challenge == nil {
		t.Fatalf("expected one challenge, got %v, %v", challenge, err)
	}
	if challenge.CodeHash == code {
		t.Fatal("code stored in clear text")
	}

	_, err = f.verification.Verify(ctx, VerifyRequest{Phone: testPhone, Code: "000000"})
	expectKind(t, err, domain.KindInvalid)
	if still, _ := f.otps.Fetch(ctx, testPhone, domain.ChannelPhone, domain.PurposeRegistration); still == nil {
		t.Fatal("wrong code must not delete the challenge")
	}

	out = f.verify(t, VerifyRequest{Phone: testPhone, Code: code})
	expectStatus(t, out, domain.StatusPartial)
	if out.VerificationRequired != domain.ChannelEmail || out.CurrentChannelVerified != domain.ChannelPhone {
		t.Fatalf("unexpected partial outcome %+v", out)
	}
	if out.HTTPStatus() != 206 {
		t.Fatalf("expected 206, got %d", out.HTTPStatus())
	}

	_, err = f.verification.Verify(ctx, VerifyRequest{Phone: testPhone, Code: code})
	expectKind(t, err, domain.KindNotFound)
}

func TestDualChannelPhoneFirst(t *testing.T) {
	f := newFixture(t)

	f.initiate(t, InitiateRequest{Phone: testPhone})
	out := f.verify(t, VerifyRequest{Phone: testPhone, Code: f.sms.lastCode(t, testPhone), Name: "Ada"})
	expectStatus(t, out, domain.StatusPartial)

	out = f.initiate(t, InitiateRequest{Email: testEmail, Phone: testPhone})
	expectStatus(t, out, domain.StatusOK)
	if out.OTPSentTo != testEmail {
		t.Fatalf("expected the second code on email, got %+v", out)
	}

	out = f.verify(t, VerifyRequest{Email: testEmail, Phone: testPhone, Code: f.email.lastCode(t, testEmail)})
	expectStatus(t, out, domain.StatusOK)
	assertSession(t, f, out)
	assertFullyVerified(t, f, testEmail, testPhone, "Ada")
}

func TestDualChannelEmailFirst(t *testing.T) {
	f := newFixture(t)

	f.initiate(t, InitiateRequest{Email: testEmail})
	out := f.verify(t, VerifyRequest{Email: testEmail, Code: f.email.lastCode(t, testEmail)})
	expectStatus(t, out, domain.StatusPartial)
	if out.VerificationRequired != domain.ChannelPhone || out.CurrentChannelVerified != domain.ChannelEmail {
		t.Fatalf("unexpected partial outcome %+v", out)
	}

	out = f.initiate(t, InitiateRequest{Email: testEmail, Phone: testPhone})
	if out.OTPSentTo != testPhone {
		t.Fatalf("expected the second code on phone, got %+v", out)
	}
	out = f.verify(t, VerifyRequest{Email: testEmail, Phone: testPhone, Code: f.sms.lastCode(t, testPhone)})
	expectStatus(t, out, domain.StatusOK)
	assertSession(t, f, out)
	assertFullyVerified(t, f, testEmail, testPhone, "")
}

func TestDualChannelBothContactsUpFront(t *testing.T) {
	f := newFixture(t)
	both := InitiateRequest{Email: testEmail, Phone: testPhone}

	out := f.initiate(t, both)
	if out.OTPSentTo != testEmail {
		t.Fatalf("expected email first for a new identity, got %+v", out)
	}
	out = f.verify(t, VerifyRequest{Email: testEmail, Phone: testPhone, Code: f.email.lastCode(t, testEmail)})
	expectStatus(t, out, domain.StatusPartial)
	if out.VerificationRequired != domain.ChannelPhone {
		t.Fatalf("expected phone to be required, got %+v", out)
	}

	out = f.initiate(t, both)
	if out.OTPSentTo != testPhone {
		t.Fatalf("expected phone second, got %+v", out)
	}
	out = f.verify(t, VerifyRequest{Email: testEmail, Phone: testPhone, Code: f.sms.lastCode(t, testPhone)})
	expectStatus(t, out, domain.StatusOK)
	assertFullyVerified(t, f, testEmail, testPhone, "")
}

func TestVerifyExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.initiate(t, InitiateRequest{Phone: testPhone})
	code := f.sms.lastCode(t, testPhone)

	f.clock.Advance(5*time.Minute + time.Second)
	_, err := f.verification.Verify(ctx, VerifyRequest{Phone: testPhone, Code: code})
	expectKind(t, err, domain.KindExpired)

	if still, _ := f.otps.Fetch(ctx, testPhone, domain.ChannelPhone, domain.PurposeRegistration); still == nil {
		t.Fatal("expired code must not delete the challenge")
	}
	if found, _ := f.identities.FindByPhone(ctx, testPhone); found != nil {
		t.Fatal("no identity should exist after a failed verify")
	}
}

func TestInitiateRateLimited(t *testing.T) {
	f := newFixture(t)

	for want := 2; want >= 0; want-- {
		out := f.initiate(t, InitiateRequest{Phone: testPhone})
		expectStatus(t, out, domain.StatusOK)
		if out.AttemptsRemaining != want {
			t.Fatalf("expected %d remaining, got %d", want, out.AttemptsRemaining)
		}
		f.clock.Advance(time.Minute)
	}

	out := f.initiate(t, InitiateRequest{Phone: testPhone})
	expectStatus(t, out, domain.StatusRateLimited)
	if out.RetryAfter != 27*60 {
		t.Fatalf("expected retryAfter 1620, got %d", out.RetryAfter)
	}
	if data := out.Data(); data["maxAttemptsReached"] != true {
		t.Fatalf("expected maxAttemptsReached in data, got %v", data)
	}
	if f.sms.count != 3 {
		t.Fatalf("expected 3 deliveries, got %d", f.sms.count)
	}

	f.clock.Advance(27*time.Minute + time.Second)
	out = f.initiate(t, InitiateRequest{Phone: testPhone})
	expectStatus(t, out, domain.StatusOK)
	if out.AttemptsRemaining != 2 {
		t.Fatalf("expected a fresh window, got %+v", out)
	}
}

func TestLatestCodeWinsWithinWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.initiate(t, InitiateRequest{Phone: testPhone})
	first := f.sms.lastCode(t, testPhone)
	f.initiate(t, InitiateRequest{Phone: testPhone})
	second := f.sms.lastCode(t, testPhone)

	if first != second {
		_, err := f.verification.Verify(ctx, VerifyRequest{Phone: testPhone, Code: first})
		expectKind(t, err, domain.KindInvalid)
	}
	out := f.verify(t, VerifyRequest{Phone: testPhone, Code: second})
	expectStatus(t, out, domain.StatusPartial)
}

func TestInitiateConflictBeforeSending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Identity A owns the email.
	f.initiate(t, InitiateRequest{Email: testEmail})
	f.verify(t, VerifyRequest{Email: testEmail, Code: f.email.lastCode(t, testEmail)})

	// Identity B has proven only its phone.
	other := "+14155550111"
	f.initiate(t, InitiateRequest{Phone: other})
	f.verify(t, VerifyRequest{Phone: other, Code: f.sms.lastCode(t, other)})

	sentBefore := f.email.count
	out := f.initiate(t, InitiateRequest{Email: testEmail, Phone: other})
	expectStatus(t, out, domain.StatusConflict)
	if out.HTTPStatus() != 409 {
		t.Fatalf("expected 409, got %d", out.HTTPStatus())
	}
	if f.email.count != sentBefore {
		t.Fatal("no code may be sent on conflict")
	}

	b, _ := f.identities.FindByPhone(ctx, other)
	if b.Email != nil {
		t.Fatalf("identity B must not gain the email, got %s", *b.Email)
	}
}

func TestVerifyConflictWhenContactClaimedAfterInitiate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.initiate(t, InitiateRequest{Phone: testPhone})
	f.verify(t, VerifyRequest{Phone: testPhone, Code: f.sms.lastCode(t, testPhone)})

	out := f.initiate(t, InitiateRequest{Email: testEmail, Phone: testPhone})
	expectStatus(t, out, domain.StatusOK)
	code := f.email.lastCode(t, testEmail)

	// Another account claims the email between initiate and verify.
	if err := f.identities.Insert(ctx, &domain.Identity{ID: "racer", Email: domain.StringPtr(testEmail)}); err != nil {
		t.Fatalf("insert racer: %v", err)
	}

	_, err := f.verification.Verify(ctx, VerifyRequest{Email: testEmail, Phone: testPhone, Code: code})
	expectKind(t, err, domain.KindConflict)

	owner, _ := f.identities.FindByPhone(ctx, testPhone)
	if owner.EmailVerified || owner.Email != nil {
		t.Fatalf("phone owner must be untouched, got %+v", owner)
	}
}

func TestVerifyNotFoundAcrossChannelAndPurpose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.initiate(t, InitiateRequest{Phone: testPhone})
	code := f.sms.lastCode(t, testPhone)

	_, err := f.verification.Verify(ctx, VerifyRequest{Email: testEmail, Code: code})
	expectKind(t, err, domain.KindNotFound)

	_, err = f.verification.Verify(ctx, VerifyRequest{Phone: testPhone, Code: code, Purpose: domain.PurposeLogin})
	expectKind(t, err, domain.KindNotFound)

	out := f.verify(t, VerifyRequest{Phone: testPhone, Code: code})
	expectStatus(t, out, domain.StatusPartial)
}

func TestFullyVerifiedIdentityLogsInWithOneChannel(t *testing.T) {
	f := newFixture(t)

	f.initiate(t, InitiateRequest{Phone: testPhone})
	f.verify(t, VerifyRequest{Phone: testPhone, Code: f.sms.lastCode(t, testPhone)})
	f.initiate(t, InitiateRequest{Email: testEmail, Phone: testPhone})
	f.verify(t, VerifyRequest{Email: testEmail, Phone: testPhone, Code: f.email.lastCode(t, testEmail)})

	f.initiate(t, InitiateRequest{Phone: testPhone, Purpose: domain.PurposeLogin})
	out := f.verify(t, VerifyRequest{Phone: testPhone, Code: f.sms.lastCode(t, testPhone), Purpose: domain.PurposeLogin})
	expectStatus(t, out, domain.StatusOK)
	assertSession(t, f, out)
}

func TestValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   InitiateRequest
		field string
	}{
		{"no contact", InitiateRequest{}, "phone"},
		{"no country code", InitiateRequest{Phone: "4155550100"}, "phone"},
		{"garbage phone", InitiateRequest{Phone: "+1"}, "phone"},
		{"bad email", InitiateRequest{Email: "not-an-email"}, "email"},
		{"bad purpose", InitiateRequest{Email: testEmail, Purpose: "sideways"}, "purpose"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := f.verification.Initiate(ctx, tc.req)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			expectStatus(t, out, domain.StatusValidationFailed)
			if len(out.Errors) == 0 || out.Errors[0].Field != tc.field {
				t.Fatalf("expected error on %s, got %+v", tc.field, out.Errors)
			}
		})
	}

	out, err := f.verification.Verify(ctx, VerifyRequest{Phone: testPhone})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	expectStatus(t, out, domain.StatusValidationFailed)
	if out.Errors[0].Field != "code" {
		t.Fatalf("expected code error, got %+v", out.Errors)
	}
	if f.sms.count != 0 || f.email.count != 0 {
		t.Fatal("validation failures must not deliver anything")
	}
}

func TestPhoneIsNormalizedToE164(t *testing.T) {
	f := newFixture(t)

	out := f.initiate(t, InitiateRequest{Phone: "+1 (415) 555-0100"})
	expectStatus(t, out, domain.StatusOK)
	if out.OTPSentTo != testPhone {
		t.Fatalf("expected E.164 contact, got %q", out.OTPSentTo)
	}
}

func TestDeliveryFailureIsHard(t *testing.T) {
	f := newFixture(t)
	f.sms.fail = errors.New("provider down")

	_, err := f.verification.Initiate(context.Background(), InitiateRequest{Phone: testPhone})
	expectKind(t, err, domain.KindDeliveryFailure)
	if domain.StatusForKind(domain.KindOf(err)) < 500 {
		t.Fatal("delivery failure must map to a server-side status")
	}
}

func TestGenerateNumericCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateNumericCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 || code[0] == '0' {
			t.Fatalf("code %q outside 100000-999999", code)
		}
	}
}

func assertSession(t *testing.T, f *fixture, out *domain.Outcome) {
	t.Helper()
	if out.Session == nil || out.Session.AccessToken == "" || out.Session.RefreshToken == "" || out.Session.SessionID == "" {
		t.Fatalf("expected session tokens, got %+v", out.Session)
	}
	stored, err := f.sessionRepo.FindByID(context.Background(), out.Session.SessionID)
	if err != nil || stored == nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if stored.RefreshTokenHash == out.Session.RefreshToken {
		t.Fatal("refresh secret stored in clear text")
	}
}

func assertFullyVerified(t *testing.T, f *fixture, email, phone, name string) {
	t.Helper()
	got, err := f.identities.FindByPhone(context.Background(), phone)
	if err != nil || got == nil {
		t.Fatalf("identity not found by phone: %v", err)
	}
	if !got.IsFullyVerified() {
		t.Fatalf("expected both channels verified, got %+v", got)
	}
	if got.Email == nil || *got.Email != email {
		t.Fatalf("expected email %s, got %v", email, got.Email)
	}
	if name != "" && (got.Name == nil || *got.Name != name) {
		t.Fatalf("expected name %s, got %v", name, got.Name)
	}
}
