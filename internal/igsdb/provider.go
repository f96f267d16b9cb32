// Package igsdb resolves NFRC glass identifiers to product metadata from the
// IGSDB glazing catalog, with an on-disk cache and per-run memoization so a
// generation run performs at most one upstream lookup per distinct id.
package igsdb

import (
	"context"

	"go.uber.org/zap"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// Metadata is the resolved record for one glazing product.
type Metadata struct {
	ThicknessMM  float64        `json:"thickness_mm"`
	Manufacturer string         `json:"manufacturer"`
	Coating      *model.Coating `json:"coating,omitempty"`
	Emissivity   *float64       `json:"emissivity,omitempty"`
}

// EffectiveEmissivity resolves emissivity for validation: the catalog value
// wins, then the provider value, then the uncoated-glass default.
func (m Metadata) EffectiveEmissivity(catalog *float64) float64 {
	if catalog != nil {
		return *catalog
	}
	if m.Emissivity != nil {
		return *m.Emissivity
	}
	return model.DefaultEmissivity
}

// Provider looks up glass metadata by NFRC id. found=false with a nil error
// means the catalog genuinely has no usable record for the id; callers treat
// that as a per-combination skip, never a failure.
type Provider interface {
	Resolve(ctx context.Context, id int) (meta Metadata, found bool, err error)
}

// Memo wraps a Provider with per-run memoization. Upstream errors are
// downgraded to misses after being logged once, so a flaky catalog degrades
// a run instead of aborting it.
type Memo struct {
	next Provider
	log  *zap.SugaredLogger

	entries map[int]memoEntry
	misses  int
	calls   int
}

type memoEntry struct {
	meta  Metadata
	found bool
}

// NewMemo wraps next with a fresh per-run cache.
func NewMemo(next Provider, log *zap.SugaredLogger) *Memo {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Memo{next: next, log: log, entries: map[int]memoEntry{}}
}

// Resolve returns the memoized result, consulting the wrapped provider at
// most once per id for the lifetime of the Memo.
func (m *Memo) Resolve(ctx context.Context, id int) (Metadata, bool, error) {
	if e, ok := m.entries[id]; ok {
		return e.meta, e.found, nil
	}
	m.calls++
	meta, found, err := m.next.Resolve(ctx, id)
	if err != nil {
		m.log.Warnw("metadata lookup failed, treating as unknown glass", "nfrc_id", id, "error", err)
		meta, found = Metadata{}, false
	}
	if !found {
		m.misses++
		m.log.Warnw("no metadata for glass", "nfrc_id", id)
	}
	m.entries[id] = memoEntry{meta: meta, found: found}
	return meta, found, nil
}

// Stats reports upstream call and miss counts for the run summary.
func (m *Memo) Stats() (upstreamCalls, misses int) {
	return m.calls, m.misses
}
