package otp

import (
	"context"
	"sync"
	"testing"

	"github.com/iyunix/go-dualotp/internal/domain"
)

// consumeOnceContract checks that a fetched challenge can be consumed by one
// caller only, including callers racing on the same snapshot, and that a
// re-issued code in the same window invalidates the old snapshot.
func consumeOnceContract(t *testing.T, repo OTPRepository) {
	ctx := context.Background()
	fetch := func() *domain.OTPChallenge {
		t.Helper()
		c, err := repo.Fetch(ctx, "+14155550100", domain.ChannelPhone, domain.PurposeRegistration)
		if err != nil || c == nil {
			t.Fatalf("fetch: %v, %v", c, err)
		}
		return c
	}

	if _, err := repo.Issue(ctx, phoneRequest("123456")); err != nil {
		t.Fatalf("issue: %v", err)
	}
	first, second := fetch(), fetch()

	if removed, err := repo.Delete(ctx, first); err != nil || !removed {
		t.Fatalf("first consume: removed=%v err=%v", removed, err)
	}
	if removed, err := repo.Delete(ctx, second); err != nil || removed {
		t.Fatalf("second consume of the same code: removed=%v err=%v", removed, err)
	}

	if _, err := repo.Issue(ctx, phoneRequest("111111")); err != nil {
		t.Fatalf("issue: %v", err)
	}
	stale := fetch()
	if _, err := repo.Issue(ctx, phoneRequest("222222")); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if removed, err := repo.Delete(ctx, stale); err != nil || removed {
		t.Fatalf("superseded code consumed: removed=%v err=%v", removed, err)
	}
	if !fetch().Matches("222222") {
		t.Fatal("latest code must survive")
	}

	snapshot := fetch()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			removed, err := repo.Delete(ctx, snapshot)
			if err != nil {
				t.Errorf("concurrent consume: %v", err)
				return
			}
			if removed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one consumer, got %d", wins)
	}
}
