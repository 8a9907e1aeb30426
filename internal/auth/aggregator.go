// Package auth aggregates connection health across the external providers
// the assistant depends on. A single cached snapshot answers both the tool
// gating question ("is the user's calendar connected?") and the health
// endpoint question ("can this deployment serve requests?").
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// Pinger is a cheap liveness probe against one external provider.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// probeTimeout bounds each individual provider probe so one slow upstream
// cannot stall the whole snapshot.
const probeTimeout = 3 * time.Second

// Report is the health endpoint's payload.
type Report struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// Aggregator probes the providers concurrently and caches the combined
// snapshot for a short TTL. A nil probe means the provider was never
// configured and always reads as disconnected.
type Aggregator struct {
	calendar Pinger
	gmail    Pinger
	bills    Pinger
	llm      Pinger
	ttl      time.Duration

	now func() time.Time

	mu        sync.Mutex
	cached    schema.AuthStatus
	checkedAt time.Time
}

// NewAggregator creates an Aggregator. ttl zero falls back to 30 seconds.
func NewAggregator(calendar, gmail, bills, llm Pinger, ttl time.Duration) *Aggregator {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Aggregator{
		calendar: calendar,
		gmail:    gmail,
		bills:    bills,
		llm:      llm,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Status returns the current provider snapshot, probing only when the cached
// one has aged out.
func (a *Aggregator) Status(ctx context.Context) schema.AuthStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.checkedAt.IsZero() && a.now().Sub(a.checkedAt) < a.ttl {
		return a.cached
	}

	a.cached = a.probeAll(ctx)
	a.checkedAt = a.now()
	return a.cached
}

// Refresh discards the cached snapshot so the next Status call probes again.
// Called after the user connects or disconnects a provider.
func (a *Aggregator) Refresh() {
	a.mu.Lock()
	a.checkedAt = time.Time{}
	a.mu.Unlock()
}

// Health folds the snapshot into the endpoint report. The deployment is
// unhealthy only when the LLM backend is unreachable; a missing calendar or
// inbox merely degrades it.
func (a *Aggregator) Health(ctx context.Context) Report {
	status := a.Status(ctx)

	overall := StatusHealthy
	switch {
	case !status.OpenRouter:
		overall = StatusUnhealthy
	case !status.Calendar || !status.Gmail || !status.Bills:
		overall = StatusDegraded
	}

	a.mu.Lock()
	checkedAt := a.checkedAt
	a.mu.Unlock()

	return Report{
		Status:    overall,
		Providers: map[string]bool{"calendar": status.Calendar, "gmail": status.Gmail, "bills": status.Bills, "openrouter": status.OpenRouter},
		CheckedAt: checkedAt,
	}
}

func (a *Aggregator) probeAll(ctx context.Context) schema.AuthStatus {
	var status schema.AuthStatus

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { status.Calendar = a.probe(gctx, "calendar", a.calendar); return nil })
	g.Go(func() error { status.Gmail = a.probe(gctx, "gmail", a.gmail); return nil })
	g.Go(func() error { status.Bills = a.probe(gctx, "bills", a.bills); return nil })
	g.Go(func() error { status.OpenRouter = a.probe(gctx, "openrouter", a.llm); return nil })
	g.Wait()

	return status
}

func (a *Aggregator) probe(ctx context.Context, name string, p Pinger) bool {
	if p == nil {
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := p.Ping(pctx); err != nil {
		slog.Warn("provider probe failed", "provider", name, "err", err)
		return false
	}
	return true
}
