package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jobdeck/metering/pkg/plans"
)

// RedisStore implements Store on Redis. Each primitive is a single Lua
// script, which Redis executes atomically, so the limit guard and the
// increment cannot interleave between concurrent clients.
//
// Counters and balances live in hashes:
//
//	metering:usage:<user>:<resource>   period, used
//	metering:credits:<user>:<resource> balance, total, used, expires, last_used
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("ledger: redis client is required")
	}
	return &RedisStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func usageKey(userID uuid.UUID, res plans.ResourceType) string {
	return fmt.Sprintf("metering:usage:%s:%s", userID, res)
}

func creditsKey(userID uuid.UUID, res plans.ResourceType) string {
	return fmt.Sprintf("metering:credits:%s:%s", userID, res)
}

// incrUsageScript resets stale periods, then applies the increment only when
// it stays within the limit (0 = unlimited). Returns -1 on rejection.
var incrUsageScript = redis.NewScript(`
local period = tonumber(ARGV[1])
local amount = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local stored = tonumber(redis.call('HGET', KEYS[1], 'period')) or 0
local used = tonumber(redis.call('HGET', KEYS[1], 'used')) or 0

if stored < period then
	stored = period
	used = 0
end

if limit > 0 and used + amount > limit then
	return -1
end

redis.call('HSET', KEYS[1], 'period', stored, 'used', used + amount)
return used + amount
`)

// consumeCreditsScript decrements the balance only when it covers the amount
// and the validity window is open. Returns the remaining balance, -1 when
// insufficient, -2 when expired.
var consumeCreditsScript = redis.NewScript(`
local amount = tonumber(ARGV[1])
local now = tonumber(ARGV[2])

local balance = tonumber(redis.call('HGET', KEYS[1], 'balance')) or 0
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires')) or 0

if expires > 0 and expires <= now then
	return -2
end
if balance < amount then
	return -1
end

redis.call('HINCRBY', KEYS[1], 'balance', -amount)
redis.call('HINCRBY', KEYS[1], 'used', amount)
redis.call('HSET', KEYS[1], 'last_used', now)
return balance - amount
`)

// addCreditsScript grants credits and merges the expiry window: 0 (never
// expires) wins, otherwise the later of the two.
var addCreditsScript = redis.NewScript(`
local amount = tonumber(ARGV[1])
local expires = tonumber(ARGV[2])

local existed = redis.call('EXISTS', KEYS[1]) == 1
local current = tonumber(redis.call('HGET', KEYS[1], 'expires')) or 0

redis.call('HINCRBY', KEYS[1], 'balance', amount)
redis.call('HINCRBY', KEYS[1], 'total', amount)

local merged = expires
if existed then
	if current == 0 or expires == 0 then
		merged = 0
	elseif current > expires then
		merged = current
	end
end
redis.call('HSET', KEYS[1], 'expires', merged)
return merged
`)

func (s *RedisStore) IncrementUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount, limit int64, periodStart time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	result, err := incrUsageScript.Run(ctx, s.client,
		[]string{usageKey(userID, res)},
		periodStart.Unix(), amount, limit).Int64()
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	if result < 0 {
		return ErrLimitExceeded
	}
	return nil
}

func (s *RedisStore) ConsumeCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	result, err := consumeCreditsScript.Run(ctx, s.client,
		[]string{creditsKey(userID, res)},
		amount, s.now().Unix()).Int64()
	if err != nil {
		return 0, errors.Join(ErrStorageUnavailable, err)
	}
	switch result {
	case -2:
		return 0, ErrExpiredCredits
	case -1:
		return 0, ErrInsufficientCredits
	}
	return result, nil
}

func (s *RedisStore) AddCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64, expiresAt *time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	var expires int64
	if expiresAt != nil {
		expires = expiresAt.Unix()
	}

	if err := addCreditsScript.Run(ctx, s.client,
		[]string{creditsKey(userID, res)},
		amount, expires).Err(); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, periodStart time.Time) (Usage, error) {
	u := Usage{UserID: userID, Resource: res, PeriodStart: periodStart}

	fields, err := s.client.HMGet(ctx, usageKey(userID, res), "period", "used").Result()
	if err != nil {
		return Usage{}, errors.Join(ErrStorageUnavailable, err)
	}

	period := parseInt(fields[0])
	used := parseInt(fields[1])
	if period >= periodStart.Unix() {
		u.PeriodStart = time.Unix(period, 0).UTC()
		u.Used = used
	}
	return u, nil
}

func (s *RedisStore) GetBalance(ctx context.Context, userID uuid.UUID, res plans.ResourceType) (CreditBalance, error) {
	b := CreditBalance{UserID: userID, Resource: res}

	fields, err := s.client.HMGet(ctx, creditsKey(userID, res),
		"balance", "total", "used", "expires", "last_used").Result()
	if err != nil {
		return CreditBalance{}, errors.Join(ErrStorageUnavailable, err)
	}

	b.Balance = parseInt(fields[0])
	b.TotalPurchased = parseInt(fields[1])
	b.UsedCredits = parseInt(fields[2])
	if expires := parseInt(fields[3]); expires > 0 {
		t := time.Unix(expires, 0).UTC()
		b.ExpiresAt = &t
	}
	if lastUsed := parseInt(fields[4]); lastUsed > 0 {
		t := time.Unix(lastUsed, 0).UTC()
		b.LastUsedAt = &t
	}
	return b, nil
}

// parseInt converts an HMGET field to int64, treating nil as zero.
func parseInt(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n int64
	_, _ = fmt.Sscan(s, &n)
	return n
}
