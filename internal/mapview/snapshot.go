package mapview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spothole/spothole-api/internal/dto"
)

// Fetcher loads the full flat report list.
type Fetcher interface {
	ListPotholes(ctx context.Context) ([]dto.PotholeFlat, error)
}

// Ticket identifies one refresh attempt. Tickets are issued in increasing
// order, so a response carrying an older ticket than the snapshot on hand
// is stale.
type Ticket uint64

// Snapshot is an immutable view of the reports held by the aggregator.
type Snapshot struct {
	Version Ticket
	Reports []dto.PotholeFlat
}

// Aggregator holds the client-visible report list. Every refresh replaces
// the list wholesale; a failed refresh leaves the previous list in place.
type Aggregator struct {
	mu      sync.RWMutex
	issued  Ticket
	current Snapshot
	lastErr error
}

// NewAggregator seeds the aggregator with an initial server-rendered list.
func NewAggregator(seed []dto.PotholeFlat) *Aggregator {
	return &Aggregator{current: Snapshot{Reports: copyReports(seed)}}
}

// Begin hands out the ticket for a new refresh.
func (a *Aggregator) Begin() Ticket {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issued++
	return a.issued
}

// Replace installs reports fetched under t. It reports false and keeps the
// current list when a newer refresh has already landed.
func (a *Aggregator) Replace(t Ticket, reports []dto.PotholeFlat) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t <= a.current.Version {
		return false
	}
	a.current = Snapshot{Version: t, Reports: copyReports(reports)}
	a.lastErr = nil
	return true
}

// Fail records a refresh error without touching the list.
func (a *Aggregator) Fail(t Ticket, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t > a.current.Version {
		a.lastErr = err
	}
}

// Refresh fetches the full list and replaces the snapshot.
func (a *Aggregator) Refresh(ctx context.Context, f Fetcher) error {
	t := a.Begin()
	reports, err := f.ListPotholes(ctx)
	if err != nil {
		a.Fail(t, err)
		slog.Warn("map refresh failed, keeping previous markers", "ticket", t, "error", err)
		return err
	}
	if !a.Replace(t, reports) {
		slog.Debug("discarded stale map refresh", "ticket", t)
	}
	return nil
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{Version: a.current.Version, Reports: copyReports(a.current.Reports)}
}

// Err returns the error of the latest failed refresh, cleared by the next
// successful one.
func (a *Aggregator) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Find returns the report with id from the current snapshot.
func (a *Aggregator) Find(id string) (dto.PotholeFlat, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, r := range a.current.Reports {
		if r.ID == id {
			return r, true
		}
	}
	return dto.PotholeFlat{}, false
}

func copyReports(in []dto.PotholeFlat) []dto.PotholeFlat {
	out := make([]dto.PotholeFlat, len(in))
	copy(out, in)
	return out
}
