package stats

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expanders360/vendor-match/internal/model"
)

type fakeStore struct {
	stats    *model.MatchStats
	top      []model.VendorPerformance
	statsErr error
	topErr   error

	gotSince time.Time
	gotLimit int
}

func (f *fakeStore) MatchStats(_ context.Context, since time.Time) (*model.MatchStats, error) {
	f.gotSince = since
	return f.stats, f.statsErr
}

func (f *fakeStore) TopVendors(_ context.Context, _ time.Time, limit int) ([]model.VendorPerformance, error) {
	f.gotLimit = limit
	return f.top, f.topErr
}

func TestAggregator_Weekly(t *testing.T) {
	windowStart := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	st := &fakeStore{
		stats: &model.MatchStats{TotalMatches: 12, AverageScore: 8.75, UniqueProjects: 4, UniqueVendors: 6},
		top: []model.VendorPerformance{
			{VendorID: 3, VendorName: "Berlin Web Co", AverageScore: 10.2, MatchCount: 2},
		},
	}

	summary, err := NewAggregator(st).Weekly(context.Background(), windowStart)
	require.NoError(t, err)

	assert.True(t, summary.WindowStart.Equal(windowStart))
	assert.Equal(t, 12, summary.TotalMatches)
	assert.InDelta(t, 8.75, summary.AverageScore, 1e-9)
	assert.Equal(t, 4, summary.UniqueProjects)
	assert.Equal(t, 6, summary.UniqueVendors)
	require.Len(t, summary.TopVendors, 1)
	assert.Equal(t, "Berlin Web Co", summary.TopVendors[0].VendorName)

	assert.True(t, st.gotSince.Equal(windowStart), "both queries share the window start")
	assert.Equal(t, 10, st.gotLimit, "top-vendor ranking is capped at ten")
}

func TestAggregator_Weekly_EmptyWindow(t *testing.T) {
	st := &fakeStore{stats: &model.MatchStats{}}

	summary, err := NewAggregator(st).Weekly(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalMatches)
	assert.Zero(t, summary.AverageScore)
	assert.Empty(t, summary.TopVendors)
}

func TestAggregator_Weekly_StoreErrors(t *testing.T) {
	st := &fakeStore{statsErr: eris.New("timeout")}
	_, err := NewAggregator(st).Weekly(context.Background(), time.Now().UTC())
	assert.Error(t, err)

	st = &fakeStore{stats: &model.MatchStats{}, topErr: eris.New("timeout")}
	_, err = NewAggregator(st).Weekly(context.Background(), time.Now().UTC())
	assert.Error(t, err)
}
