// File: internal/repository/otp/redis_otp_repository.go
package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iyunix/go-dualotp/internal/domain"
)

// ChallengeKeyPrefix is the Redis key prefix for challenge hashes.
const ChallengeKeyPrefix = "otp:"

// issueScript performs the window/cap decision and the write in one step.
// Returns {1, remaining} on success or {0, retryAfterMillis} when capped.
var issueScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[3])
local window = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])
local max = tonumber(ARGV[6])

local cur = redis.call('HMGET', key, 'attempts', 'window_end')
if (not cur[1]) or (now > tonumber(cur[2])) then
  redis.call('DEL', key)
  redis.call('HSET', key, 'id', ARGV[1], 'code_hash', ARGV[2], 'attempts', 1,
    'window_end', now + window, 'expires_at', now + ttl, 'created_at', now)
  redis.call('PEXPIRE', key, window)
  return {1, max - 1}
end

local attempts = tonumber(cur[1])
if attempts >= max then
  return {0, tonumber(cur[2]) - now}
end

attempts = redis.call('HINCRBY', key, 'attempts', 1)
redis.call('HSET', key, 'code_hash', ARGV[2], 'expires_at', now + ttl)
return {1, max - attempts}
`)

// deleteScript removes the tuple only while it still holds the fetched id
// and code hash. Returns 1 when removed, 0 otherwise.
var deleteScript = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'id', 'code_hash')
if cur[1] == ARGV[1] and cur[2] == ARGV[2] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisOTPRepository implements OTPRepository on Redis hashes. Each tuple
// key expires with its rate-limit window.
type RedisOTPRepository struct {
	client *redis.Client
	policy Policy
	now    func() time.Time
}

// RedisOption configures a RedisOTPRepository.
type RedisOption func(*RedisOTPRepository)

// WithRedisClock overrides the wall clock used for windows and expiry.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *RedisOTPRepository) { r.now = now }
}

func NewRedisOTPRepository(client *redis.Client, policy Policy, opts ...RedisOption) *RedisOTPRepository {
	r := &RedisOTPRepository{client: client, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func challengeKey(contactKey string, channel domain.Channel, purpose domain.Purpose) string {
	return fmt.Sprintf("%s%s:%s:%s", ChallengeKeyPrefix, purpose, channel, contactKey)
}

func (r *RedisOTPRepository) Issue(ctx context.Context, req domain.IssueRequest) (domain.IssueResult, error) {
	hash, err := domain.HashSecret(req.Code, r.policy.HashCost)
	if err != nil {
		return domain.IssueResult{}, fmt.Errorf("hash otp: %w", err)
	}

	id := uuid.NewString()
	now := r.now()
	res, err := issueScript.Run(ctx, r.client,
		[]string{challengeKey(req.ContactKey, req.Channel, req.Purpose)},
		id,
		hash,
		now.UnixMilli(),
		r.policy.Window.Milliseconds(),
		req.TTL.Milliseconds(),
		r.policy.MaxAttempts,
	).Int64Slice()
	if err != nil {
		return domain.IssueResult{}, fmt.Errorf("issue otp: %w", err)
	}
	if len(res) != 2 {
		return domain.IssueResult{}, fmt.Errorf("issue otp: unexpected script reply %v", res)
	}

	if res[0] == 0 {
		secs := int(res[1] / 1000)
		if secs < 0 {
			secs = 0
		}
		return domain.IssueResult{OK: false, RetryAfter: secs}, nil
	}
	return domain.IssueResult{OK: true, Remaining: int(res[1])}, nil
}

func (r *RedisOTPRepository) Fetch(ctx context.Context, contactKey string, channel domain.Channel, purpose domain.Purpose) (*domain.OTPChallenge, error) {
	fields, err := r.client.HGetAll(ctx, challengeKey(contactKey, channel, purpose)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch otp: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	attempts, _ := strconv.Atoi(fields["attempts"])
	return &domain.OTPChallenge{
		ID:         fields["id"],
		ContactKey: contactKey,
		Channel:    channel,
		Purpose:    purpose,
		CodeHash:   fields["code_hash"],
		Attempts:   attempts,
		WindowEnd:  parseMillis(fields["window_end"]),
		ExpiresAt:  parseMillis(fields["expires_at"]),
		CreatedAt:  parseMillis(fields["created_at"]),
	}, nil
}

func (r *RedisOTPRepository) Delete(ctx context.Context, challenge *domain.OTPChallenge) (bool, error) {
	key := challengeKey(challenge.ContactKey, challenge.Channel, challenge.Purpose)
	n, err := deleteScript.Run(ctx, r.client, []string{key}, challenge.ID, challenge.CodeHash).Int64()
	if err != nil {
		return false, fmt.Errorf("delete otp: %w", err)
	}
	return n == 1, nil
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
