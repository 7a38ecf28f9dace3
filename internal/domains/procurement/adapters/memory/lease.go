package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

var _ ports.DrainLease = (*Lease)(nil)

// Lease is a process-local drain lease for single-replica deployments and tests.
type Lease struct {
	mu      sync.Mutex
	held    bool
	gen     uint64
	expires time.Time
	now     func() time.Time
}

func NewLease() *Lease {
	return &Lease{now: time.Now}
}

// WithClock overrides the time source used for expiry.
func (l *Lease) WithClock(now func() time.Time) *Lease {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Lease) TryAcquire(_ context.Context, ttl time.Duration) (ports.HeldLease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if l.held && now.Before(l.expires) {
		return nil, false, nil
	}
	l.gen++
	l.held = true
	l.expires = now.Add(ttl)
	return &heldLease{lease: l, gen: l.gen}, true, nil
}

type heldLease struct {
	lease *Lease
	gen   uint64
}

// owned reports whether h is still the current holder. Callers hold l.mu.
func (h *heldLease) owned() bool {
	return h.lease.held && h.lease.gen == h.gen
}

func (h *heldLease) Renew(_ context.Context, ttl time.Duration) (bool, error) {
	l := h.lease
	l.mu.Lock()
	defer l.mu.Unlock()
	if !h.owned() {
		return false, nil
	}
	l.expires = l.now().Add(ttl)
	return true, nil
}

func (h *heldLease) Release(context.Context) error {
	l := h.lease
	l.mu.Lock()
	defer l.mu.Unlock()
	if h.owned() {
		l.held = false
	}
	return nil
}
