package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	abuseFieldFailures      = "failures"
	abuseFieldLastFailureMs = "last_failure_ms"
	abuseFieldCooldownMs    = "cooldown_until_ms"
)

type RedisAuthAbuseGuard struct {
	client *redis.Client
	prefix string
	policy AuthAbusePolicy
}

func NewRedisAuthAbuseGuard(client *redis.Client, prefix string, policy AuthAbusePolicy) *RedisAuthAbuseGuard {
	return &RedisAuthAbuseGuard{client: client, prefix: prefix, policy: policy}
}

func (g *RedisAuthAbuseGuard) Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	var cooldown time.Duration
	for _, key := range g.keys(scope, identity, ip) {
		raw, err := g.client.HGet(ctx, key, abuseFieldCooldownMs).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read abuse state %s: %w", key, err)
		}
		untilMs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed abuse state %s: %w", key, err)
		}
		if remaining := time.Until(time.UnixMilli(untilMs)); remaining > cooldown {
			cooldown = remaining
		}
	}
	return cooldown, nil
}

func (g *RedisAuthAbuseGuard) RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := time.Now()
	var cooldown time.Duration
	for _, key := range g.keys(scope, identity, ip) {
		state, err := g.client.HGetAll(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("read abuse state %s: %w", key, err)
		}

		failures := int64(0)
		if raw, ok := state[abuseFieldFailures]; ok {
			failures, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("malformed abuse state %s: %w", key, err)
			}
		}
		if raw, ok := state[abuseFieldLastFailureMs]; ok {
			lastMs, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("malformed abuse state %s: %w", key, err)
			}
			if g.policy.ResetWindow > 0 && now.Sub(time.UnixMilli(lastMs)) > g.policy.ResetWindow {
				failures = 0
			}
		}

		failures++
		delay := g.cooldownFor(failures)
		until := now.Add(delay)

		if err := g.client.HSet(ctx, key,
			abuseFieldFailures, failures,
			abuseFieldLastFailureMs, now.UnixMilli(),
			abuseFieldCooldownMs, until.UnixMilli(),
		).Err(); err != nil {
			return 0, fmt.Errorf("write abuse state %s: %w", key, err)
		}
		if g.policy.ResetWindow > 0 {
			_ = g.client.Expire(ctx, key, g.policy.ResetWindow+delay).Err()
		}
		if delay > cooldown {
			cooldown = delay
		}
	}
	return cooldown, nil
}

func (g *RedisAuthAbuseGuard) Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	keys := g.keys(scope, identity, ip)
	if len(keys) == 0 {
		return nil
	}
	return g.client.Del(ctx, keys...).Err()
}

func (g *RedisAuthAbuseGuard) cooldownFor(failures int64) time.Duration {
	over := failures - int64(g.policy.FreeAttempts)
	if over <= 0 {
		return 0
	}
	multiplier := g.policy.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := g.policy.BaseDelay
	for i := int64(1); i < over; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if g.policy.MaxDelay > 0 && delay >= g.policy.MaxDelay {
			return g.policy.MaxDelay
		}
	}
	if g.policy.MaxDelay > 0 && delay > g.policy.MaxDelay {
		return g.policy.MaxDelay
	}
	return delay
}

func (g *RedisAuthAbuseGuard) keys(scope AuthAbuseScope, identity, ip string) []string {
	keys := make([]string, 0, 2)
	if id := normalizeAuthIdentity(identity); id != "" {
		keys = append(keys, g.stateKey(scope, "id", id))
	}
	if ip != "" {
		keys = append(keys, g.stateKey(scope, "ip", ip))
	}
	return keys
}

func (g *RedisAuthAbuseGuard) stateKey(scope AuthAbuseScope, kind, value string) string {
	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, scope, kind, value)
}
