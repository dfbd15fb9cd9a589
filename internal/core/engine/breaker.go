package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/serpwatch/serpwatch/internal/metrics"
)

// BreakerState is the per-tenant failure accounting for the circuit breaker.
type BreakerState struct {
	Failures        int
	LastFailureTime time.Time
	IsOpen          bool
	OpenedAt        time.Time
}

// TenantStateStore holds breaker state keyed by tenant. Injected so tests can
// isolate instances and a multi-instance deployment can swap in a shared
// backing store without changing call sites.
type TenantStateStore interface {
	GetState(tenantID string) *BreakerState
	SetState(tenantID string, state *BreakerState)
}

// MemoryStateStore is the process-local TenantStateStore. State is not shared
// across service instances and resets on restart.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]*BreakerState
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]*BreakerState)}
}

// GetState returns a copy of the stored state, or nil when unknown.
func (m *MemoryStateStore) GetState(tenantID string) *BreakerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[tenantID]
	if !ok {
		return nil
	}
	copied := *state
	return &copied
}

// SetState stores the state for a tenant.
func (m *MemoryStateStore) SetState(tenantID string, state *BreakerState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state == nil {
		delete(m.states, tenantID)
		return
	}
	copied := *state
	m.states[tenantID] = &copied
}

// CircuitOpenError rejects a call while a tenant is isolated. RetryAfter is
// the remaining cooldown before the next trial call is permitted.
type CircuitOpenError struct {
	TenantID   string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for tenant %s, retry in %s", e.TenantID, e.RetryAfter.Round(time.Second))
}

// Breaker is a per-tenant circuit breaker. After FailureThreshold consecutive
// failures the tenant is isolated for ResetTimeout; the first call after the
// timeout is the half-open trial. A successful trial closes the circuit; a
// failed trial leaves OpenedAt untouched, so the original window keeps
// governing subsequent trials (shorter recovery latency than restarting it).
type Breaker struct {
	States           TenantStateStore
	FailureThreshold int
	ResetTimeout     time.Duration
	Clock            func() time.Time

	mu sync.Mutex
}

// Protect runs fn under the breaker for a tenant.
func (b *Breaker) Protect(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	if b == nil || b.States == nil {
		return fn(ctx)
	}

	if err := b.allow(tenantID); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		b.recordFailure(tenantID)
		return err
	}

	b.recordSuccess(tenantID)
	return nil
}

// allow rejects the call while open and inside the cooldown window. Once the
// window elapses the call is simply permitted; its outcome is the trial.
func (b *Breaker) allow(tenantID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.States.GetState(tenantID)
	if state == nil || !state.IsOpen {
		return nil
	}

	elapsed := b.now().Sub(state.OpenedAt)
	if elapsed >= b.resetTimeout() {
		return nil
	}

	return &CircuitOpenError{
		TenantID:   tenantID,
		RetryAfter: b.resetTimeout() - elapsed,
	}
}

func (b *Breaker) recordFailure(tenantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.States.GetState(tenantID)
	if state == nil {
		state = &BreakerState{}
	}

	state.Failures++
	state.LastFailureTime = b.now()

	if !state.IsOpen && state.Failures >= b.failureThreshold() {
		state.IsOpen = true
		state.OpenedAt = b.now()
		metrics.RecordBreakerTransition("closed", "open")
	}

	b.States.SetState(tenantID, state)
}

func (b *Breaker) recordSuccess(tenantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.States.GetState(tenantID)
	if state == nil {
		return
	}

	if state.IsOpen {
		metrics.RecordBreakerTransition("open", "closed")
	}

	b.States.SetState(tenantID, &BreakerState{})
}

// State exposes the current breaker state for a tenant (status surfaces).
func (b *Breaker) State(tenantID string) *BreakerState {
	if b == nil || b.States == nil {
		return nil
	}
	return b.States.GetState(tenantID)
}

func (b *Breaker) failureThreshold() int {
	if b.FailureThreshold > 0 {
		return b.FailureThreshold
	}
	return 5
}

func (b *Breaker) resetTimeout() time.Duration {
	if b.ResetTimeout > 0 {
		return b.ResetTimeout
	}
	return 5 * time.Minute
}

func (b *Breaker) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}
