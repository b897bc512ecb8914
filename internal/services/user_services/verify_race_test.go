package user_services

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/repository/otp"
	"github.com/iyunix/go-dualotp/internal/services"
)

// fetchGate holds every Fetch until `parties` callers have fetched, so all
// of them work from the same challenge snapshot.
type fetchGate struct {
	otp.OTPRepository

	mu      sync.Mutex
	armed   bool
	arrived sync.WaitGroup
}

func (g *fetchGate) arm(parties int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.arrived.Add(parties)
}

func (g *fetchGate) Fetch(ctx context.Context, contactKey string, channel domain.Channel, purpose domain.Purpose) (*domain.OTPChallenge, error) {
	c, err := g.OTPRepository.Fetch(ctx, contactKey, channel, purpose)
	g.mu.Lock()
	armed := g.armed
	g.mu.Unlock()
	if armed {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return c, err
}

func TestSameCodeCannotMintTwoSessions(t *testing.T) {
	stores := map[string]func(t *testing.T, f *fixture) otp.OTPRepository{
		"sql": func(t *testing.T, f *fixture) otp.OTPRepository { return f.otps },
		"redis": func(t *testing.T, f *fixture) otp.OTPRepository {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			policy := otp.DefaultPolicy()
			policy.HashCost = bcrypt.MinCost
			return otp.NewRedisOTPRepository(client, policy, otp.WithRedisClock(f.clock.Now))
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			gate := &fetchGate{OTPRepository: newStore(t, f)}
			svc := NewVerificationService(f.identities, gate, f.sessions, f.sms, f.email, &services.NoOpLogger{},
				WithVerificationClock(f.clock.Now),
			)
			ctx := context.Background()
			mustOutcome := func(out *domain.Outcome, err error) *domain.Outcome {
				t.Helper()
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				return out
			}

			mustOutcome(svc.Initiate(ctx, InitiateRequest{Phone: testPhone}))
			mustOutcome(svc.Verify(ctx, VerifyRequest{Phone: testPhone, Code: f.sms.lastCode(t, testPhone)}))
			mustOutcome(svc.Initiate(ctx, InitiateRequest{Email: testEmail, Phone: testPhone}))
			out := mustOutcome(svc.Verify(ctx, VerifyRequest{Email: testEmail, Phone: testPhone, Code: f.email.lastCode(t, testEmail)}))
			expectStatus(t, out, domain.StatusOK)

			mustOutcome(svc.Initiate(ctx, InitiateRequest{Phone: testPhone, Purpose: domain.PurposeLogin}))
			code := f.sms.lastCode(t, testPhone)

			const callers = 2
			gate.arm(callers)
			var (
				wg       sync.WaitGroup
				outcomes = make([]*domain.Outcome, callers)
				errs     = make([]error, callers)
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					outcomes[i], errs[i] = svc.Verify(ctx, VerifyRequest{Phone: testPhone, Code: code, Purpose: domain.PurposeLogin})
				}(i)
			}
			wg.Wait()

			sessions := 0
			for i := 0; i < callers; i++ {
				switch {
				case errs[i] == nil && outcomes[i].Status == domain.StatusOK:
					sessions++
				case errs[i] != nil:
					expectKind(t, errs[i], domain.KindNotFound)
				default:
					t.Fatalf("unexpected outcome %+v", outcomes[i])
				}
			}
			if sessions != 1 {
				t.Fatalf("one code minted %d sessions", sessions)
			}
		})
	}
}
