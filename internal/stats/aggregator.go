// Package stats computes windowed aggregate metrics over match history.
package stats

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/expanders360/vendor-match/internal/model"
)

// topVendorLimit caps the top-performer ranking in the weekly summary.
const topVendorLimit = 10

// Store is the persistence surface the aggregator needs.
type Store interface {
	MatchStats(ctx context.Context, since time.Time) (*model.MatchStats, error)
	TopVendors(ctx context.Context, since time.Time, limit int) ([]model.VendorPerformance, error)
}

// Summary is the weekly statistics report payload. All figures cover
// matches with CreatedAt >= WindowStart (inclusive boundary).
type Summary struct {
	WindowStart    time.Time                 `json:"window_start"`
	TotalMatches   int                       `json:"total_matches"`
	AverageScore   float64                   `json:"average_score"`
	UniqueProjects int                       `json:"unique_projects"`
	UniqueVendors  int                       `json:"unique_vendors"`
	TopVendors     []model.VendorPerformance `json:"top_vendors"`
}

// Aggregator assembles windowed match statistics.
type Aggregator struct {
	store Store
}

// NewAggregator creates a statistics aggregator.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Weekly computes totals, average score, unique project/vendor counts,
// and the top vendors by average score over matches created at or after
// windowStart.
func (a *Aggregator) Weekly(ctx context.Context, windowStart time.Time) (*Summary, error) {
	matchStats, err := a.store.MatchStats(ctx, windowStart)
	if err != nil {
		return nil, eris.Wrap(err, "stats: aggregate window")
	}

	top, err := a.store.TopVendors(ctx, windowStart, topVendorLimit)
	if err != nil {
		return nil, eris.Wrap(err, "stats: top vendors")
	}

	return &Summary{
		WindowStart:    windowStart,
		TotalMatches:   matchStats.TotalMatches,
		AverageScore:   matchStats.AverageScore,
		UniqueProjects: matchStats.UniqueProjects,
		UniqueVendors:  matchStats.UniqueVendors,
		TopVendors:     top,
	}, nil
}
