package server

import (
	"context"

	"github.com/juju/ratelimit"
	"golang.org/x/time/rate"

	"github.com/evanmcc/vonnegut/conf"
)

// RateLimiter fronts the produce and fetch paths with the process-wide
// token buckets kafkaratequota applies ahead of request dispatch, plus an
// always-on bucket over the admin surface (ensure_topic/delete_topic),
// which isn't part of the produce/fetch quota but still shouldn't be
// floodable. Disabled-by-default for produce/fetch, matching spec.md's
// framing of backpressure as implicit rather than a primary control; the
// admin bucket has no disable switch since it guards a much rarer path.
type RateLimiter struct {
	enabled bool

	produceRequests *rate.Limiter
	fetchRequests   *rate.Limiter
	adminOps        *ratelimit.Bucket
}

func NewRateLimiter(cfg conf.RateQuota) *RateLimiter {
	rl := &RateLimiter{
		adminOps: ratelimit.NewBucketWithRate(5, 10),
	}
	if !cfg.Enabled {
		return rl
	}
	rl.enabled = true
	rl.produceRequests = rate.NewLimiter(rate.Limit(cfg.ProducePerSec), int(cfg.ProducePerSec))
	rl.fetchRequests = rate.NewLimiter(rate.Limit(cfg.FetchPerSec), int(cfg.FetchPerSec))
	return rl
}

// WaitProduce blocks until a produce request may proceed, or returns
// ctx's error if it's cancelled first. A nil receiver (no RateLimiter
// wired) and a disabled one are both no-ops.
func (rl *RateLimiter) WaitProduce(ctx context.Context) error {
	if rl == nil || !rl.enabled {
		return nil
	}
	return rl.produceRequests.Wait(ctx)
}

func (rl *RateLimiter) WaitFetch(ctx context.Context) error {
	if rl == nil || !rl.enabled {
		return nil
	}
	return rl.fetchRequests.Wait(ctx)
}

// AllowAdmin reports whether the admin token bucket has a token available
// right now; callers reject rather than block, since an admin probe is a
// control-plane call, not a data-plane one waiting its turn.
func (rl *RateLimiter) AllowAdmin() bool {
	if rl == nil || rl.adminOps == nil {
		return true
	}
	return rl.adminOps.TakeAvailable(1) == 1
}
