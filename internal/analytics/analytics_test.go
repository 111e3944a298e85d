package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expanders360/vendor-match/internal/model"
)

type fakeStore struct {
	scores     []model.CountryVendorScore
	projects   map[string][]int64
	scoresErr  error
	projectErr error
}

func (f *fakeStore) TopVendorsByCountry(_ context.Context, _ time.Time) ([]model.CountryVendorScore, error) {
	return f.scores, f.scoresErr
}

func (f *fakeStore) ListProjectIDsByCountry(_ context.Context, country string) ([]int64, error) {
	if f.projectErr != nil {
		return nil, f.projectErr
	}
	return f.projects[country], nil
}

type fakeDocs struct {
	mu     sync.Mutex
	counts map[int64]int // per first project id, for simplicity
	calls  int
	err    error
}

func (f *fakeDocs) CountByProjectIDs(_ context.Context, ids []int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return f.counts[ids[0]], nil
}

func cv(country string, vendorID int64, score float64) model.CountryVendorScore {
	return model.CountryVendorScore{Country: country, VendorID: vendorID, VendorName: "V", AverageScore: score}
}

func TestTopVendorsWithResearch(t *testing.T) {
	st := &fakeStore{
		// Rows arrive ordered by country then score, as the store query
		// produces them.
		scores: []model.CountryVendorScore{
			cv("DE", 1, 10.2), cv("DE", 2, 9.0), cv("DE", 3, 8.5), cv("DE", 4, 7.0),
			cv("FR", 5, 9.9),
		},
		projects: map[string][]int64{"DE": {10, 11}, "FR": {20}},
	}
	docs := &fakeDocs{counts: map[int64]int{10: 7, 20: 2}}

	result, err := New(st, docs).TopVendorsWithResearch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)

	de := result[0]
	assert.Equal(t, "DE", de.Country)
	require.Len(t, de.TopVendors, 3, "ranking is capped at three per country")
	assert.Equal(t, int64(1), de.TopVendors[0].VendorID)
	assert.Equal(t, 7, de.ResearchDocCount)

	fr := result[1]
	assert.Equal(t, "FR", fr.Country)
	require.Len(t, fr.TopVendors, 1)
	assert.Equal(t, 2, fr.ResearchDocCount)

	assert.Equal(t, 2, docs.calls, "one count fetch per country")
}

func TestTopVendorsWithResearch_NoMatches(t *testing.T) {
	result, err := New(&fakeStore{}, &fakeDocs{}).TopVendorsWithResearch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Zero(t, (&fakeDocs{}).calls)
}

func TestTopVendorsWithResearch_DocstoreError(t *testing.T) {
	st := &fakeStore{
		scores:   []model.CountryVendorScore{cv("DE", 1, 10.2)},
		projects: map[string][]int64{"DE": {10}},
	}
	docs := &fakeDocs{err: eris.New("docs service down")}

	_, err := New(st, docs).TopVendorsWithResearch(context.Background())
	assert.Error(t, err)
}

func TestTopVendorsWithResearch_RankingError(t *testing.T) {
	st := &fakeStore{scoresErr: eris.New("query failed")}
	_, err := New(st, &fakeDocs{}).TopVendorsWithResearch(context.Background())
	assert.Error(t, err)
}
