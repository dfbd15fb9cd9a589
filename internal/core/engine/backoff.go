package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/serpwatch/serpwatch/internal/core"
	"github.com/serpwatch/serpwatch/internal/core/provider"
	"github.com/serpwatch/serpwatch/internal/metrics"
)

// QuotaStore is the slice of the persistent store the retrier needs for
// budget checks and usage accounting.
type QuotaStore interface {
	GetQuota(ctx context.Context, tenantID string, apiType core.APIType, day time.Time) (*core.QuotaCounter, error)
	TrackUsage(ctx context.Context, tenantID string, apiType core.APIType, day time.Time, count, defaultAllocation int) error
}

// QuotaExhaustedError reports a daily budget that stayed blocked through the
// cooldown re-check. NextResetAt is the next UTC midnight.
type QuotaExhaustedError struct {
	TenantID    string
	Remaining   int
	NextResetAt time.Time
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("daily quota exhausted for tenant %s, resets at %s", e.TenantID, e.NextResetAt.Format(time.RFC3339))
}

// Retrier drives provider calls with a quota gate and exponential, jittered
// backoff. Only rate-limit style failures consume the retry budget; any other
// error propagates immediately.
type Retrier struct {
	Quota            QuotaStore
	DailyAllocation  int
	ProceedThreshold int
	QuotaCooldown    time.Duration
	RetryCount       int
	MinDelay         time.Duration
	MaxDelay         time.Duration
	Clock            func() time.Time
	Sleep            func(ctx context.Context, d time.Duration) error
	Logger           *logging.Logger
}

// Status reports the tenant's remaining budget for today. Absent rows count
// as an untouched allocation.
func (r *Retrier) Status(ctx context.Context, tenantID string, apiType core.APIType) (*core.QuotaStatus, error) {
	now := r.now()

	allocated := r.dailyAllocation()
	used, reserved := 0, 0

	if r.Quota != nil {
		counter, err := r.Quota.GetQuota(ctx, tenantID, apiType, now)
		if err != nil {
			return nil, err
		}
		if counter != nil {
			allocated = counter.Allocated
			used = counter.Used
			reserved = counter.Reserved
		}
	}

	// remaining is floored for reporting; can_proceed uses the true deficit.
	deficit := allocated - used - reserved
	remaining := deficit
	if remaining < 0 {
		remaining = 0
	}

	return &core.QuotaStatus{
		Allocated:   allocated,
		Used:        used,
		Reserved:    reserved,
		Remaining:   remaining,
		CanProceed:  deficit >= r.proceedThreshold(),
		NextResetAt: core.NextUTCMidnight(now),
	}, nil
}

// Run executes fn under the quota gate and retry policy. When trackUsage is
// set, a successful call increments today's usage counter by one.
func (r *Retrier) Run(ctx context.Context, tenantID string, apiType core.APIType, trackUsage bool, fn func(ctx context.Context) error) error {
	status, err := r.Status(ctx, tenantID, apiType)
	if err != nil {
		return err
	}

	if !status.CanProceed {
		// One cooldown pause, then a single re-check. The sleep suspends only
		// this operation; other tenants keep running.
		if err := r.sleep(ctx, r.quotaCooldown()); err != nil {
			return err
		}

		status, err = r.Status(ctx, tenantID, apiType)
		if err != nil {
			return err
		}
		if !status.CanProceed {
			return &QuotaExhaustedError{
				TenantID:    tenantID,
				Remaining:   status.Remaining,
				NextResetAt: status.NextResetAt,
			}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= r.retryCount(); attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.delayFor(attempt-1)); err != nil {
				return err
			}
			metrics.RecordRetry(string(apiType))
		}

		err := fn(ctx)
		if err == nil {
			if trackUsage && r.Quota != nil {
				// Usage accounting must not discard a successful call; a
				// persistence hiccup here is logged and the result is kept.
				if trackErr := r.Quota.TrackUsage(ctx, tenantID, apiType, r.now(), 1, r.dailyAllocation()); trackErr != nil {
					r.logWarn("quota tracking failed after successful call",
						zap.String("tenant_id", tenantID),
						zap.String("api_type", string(apiType)),
						zap.Error(trackErr))
				} else if status, statusErr := r.Status(ctx, tenantID, apiType); statusErr == nil {
					metrics.SetQuotaUsed(tenantID, status.Used)
				}
			}
			return nil
		}

		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// retryable reports whether an error is a rate-limit/quota failure worth
// retrying. Everything else fails fast so the retry budget is not burned on
// calls that can never succeed.
func retryable(err error) bool {
	var callErr *provider.CallError
	if errors.As(err, &callErr) {
		return callErr.RateLimited()
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}

// delayFor computes the backoff before retry attempt+1: the exponential base
// capped at MaxDelay, with +/-10% jitter applied to the uncapped base.
func (r *Retrier) delayFor(attempt int) time.Duration {
	base := r.minDelay() * time.Duration(1<<uint(attempt))
	jitter := time.Duration((rand.Float64()*2 - 1) * 0.1 * float64(base))

	delay := base + jitter
	if max := r.maxDelay(); delay > max {
		delay = max
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r != nil && r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Retrier) dailyAllocation() int {
	if r.DailyAllocation > 0 {
		return r.DailyAllocation
	}
	return 25000
}

func (r *Retrier) proceedThreshold() int {
	if r.ProceedThreshold > 0 {
		return r.ProceedThreshold
	}
	return 10
}

func (r *Retrier) quotaCooldown() time.Duration {
	if r.QuotaCooldown > 0 {
		return r.QuotaCooldown
	}
	return 5 * time.Minute
}

func (r *Retrier) retryCount() int {
	if r.RetryCount > 0 {
		return r.RetryCount
	}
	return 5
}

func (r *Retrier) minDelay() time.Duration {
	if r.MinDelay > 0 {
		return r.MinDelay
	}
	return time.Second
}

func (r *Retrier) maxDelay() time.Duration {
	if r.MaxDelay > 0 {
		return r.MaxDelay
	}
	return time.Minute
}

func (r *Retrier) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *Retrier) logWarn(msg string, fields ...zap.Field) {
	if r == nil || r.Logger == nil {
		return
	}
	r.Logger.Warn(msg, fields...)
}
