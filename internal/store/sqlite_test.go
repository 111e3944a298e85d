package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expanders360/vendor-match/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// scenario seeds one active German project requiring web + seo, plus a
// spread of vendors that exercise the country and overlap filters.
type scenario struct {
	client  model.Client
	project model.Project

	webDev int64 // DE, web+seo, rating 4.2, SLA 24h
	slow   int64 // DE, web only, rating 3.0, SLA 100h
	legal  int64 // DE, legal only (no overlap)
	french int64 // FR, web+seo (wrong country)
}

func seedScenario(t *testing.T, st *SQLiteStore) scenario {
	t.Helper()
	ctx := context.Background()

	var sc scenario
	sc.client = model.Client{CompanyName: "Acme GmbH", ContactEmail: "ops@acme.example"}
	require.NoError(t, st.CreateClient(ctx, &sc.client))

	web := model.Service{Name: "Web Development"}
	seo := model.Service{Name: "SEO"}
	legal := model.Service{Name: "Legal"}
	for _, svc := range []*model.Service{&web, &seo, &legal} {
		require.NoError(t, st.CreateService(ctx, svc))
	}

	sc.project = model.Project{
		ClientID: sc.client.ID,
		Country:  "DE",
		Budget:   50000,
		Status:   model.ProjectStatusActive,
	}
	require.NoError(t, st.CreateProject(ctx, &sc.project))
	require.NoError(t, st.SetProjectServices(ctx, sc.project.ID, []int64{web.ID, seo.ID}))

	newVendor := func(name string, rating float64, slaHours int, countries []string, services []int64) int64 {
		v := model.Vendor{Name: name, Rating: rating, ResponseSLAHours: slaHours}
		require.NoError(t, st.CreateVendor(ctx, &v))
		require.NoError(t, st.SetVendorCountries(ctx, v.ID, countries))
		require.NoError(t, st.SetVendorServices(ctx, v.ID, services))
		return v.ID
	}

	sc.webDev = newVendor("Berlin Web Co", 4.2, 24, []string{"DE"}, []int64{web.ID, seo.ID})
	sc.slow = newVendor("Slow & Steady", 3.0, 100, []string{"DE"}, []int64{web.ID})
	sc.legal = newVendor("Kanzlei Nord", 5.0, 12, []string{"DE"}, []int64{legal.ID})
	sc.french = newVendor("Agence Paris", 4.8, 24, []string{"FR"}, []int64{web.ID, seo.ID})

	return sc
}

func TestSQLite_ComputeCandidates_ScoreFormula(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)

	candidates, err := st.ComputeCandidates(context.Background(), &sc.project)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Ordered by vendor id: Berlin Web Co before Slow & Steady.
	first := candidates[0]
	assert.Equal(t, sc.webDev, first.VendorID)
	assert.Equal(t, 2, first.ServicesOverlap)
	// 2 services * 2 + 4.2 rating + 2 SLA bonus (<=24h)
	assert.InDelta(t, 10.2, first.Score, 1e-9)

	second := candidates[1]
	assert.Equal(t, sc.slow, second.VendorID)
	assert.Equal(t, 1, second.ServicesOverlap)
	// 1 service * 2 + 3.0 rating + no SLA bonus (>72h)
	assert.InDelta(t, 5.0, second.Score, 1e-9)
}

func TestSQLite_ComputeCandidates_FiltersCountryAndOverlap(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)

	candidates, err := st.ComputeCandidates(context.Background(), &sc.project)
	require.NoError(t, err)

	for _, c := range candidates {
		assert.NotEqual(t, sc.legal, c.VendorID, "zero-overlap vendor must be excluded")
		assert.NotEqual(t, sc.french, c.VendorID, "wrong-country vendor must be excluded")
	}
}

func TestSQLite_ComputeCandidates_SLABonusTiers(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	client := model.Client{CompanyName: "C", ContactEmail: "c@c.example"}
	require.NoError(t, st.CreateClient(ctx, &client))
	svc := model.Service{Name: "Consulting"}
	require.NoError(t, st.CreateService(ctx, &svc))
	project := model.Project{ClientID: client.ID, Country: "SE", Status: model.ProjectStatusActive}
	require.NoError(t, st.CreateProject(ctx, &project))
	require.NoError(t, st.SetProjectServices(ctx, project.ID, []int64{svc.ID}))

	// Boundary SLAs: 24h earns the full bonus, 72h the partial, 73h none.
	for _, slaHours := range []int{24, 72, 73} {
		v := model.Vendor{Name: "V", Rating: 0, ResponseSLAHours: slaHours}
		require.NoError(t, st.CreateVendor(ctx, &v))
		require.NoError(t, st.SetVendorCountries(ctx, v.ID, []string{"SE"}))
		require.NoError(t, st.SetVendorServices(ctx, v.ID, []int64{svc.ID}))
	}

	candidates, err := st.ComputeCandidates(ctx, &project)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.InDelta(t, 4.0, candidates[0].Score, 1e-9) // 2 + 0 + 2
	assert.InDelta(t, 3.0, candidates[1].Score, 1e-9) // 2 + 0 + 1
	assert.InDelta(t, 2.0, candidates[2].Score, 1e-9) // 2 + 0 + 0
}

func TestSQLite_UpsertMatch_InsertThenRefresh(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	isNew, err := st.UpsertMatch(ctx, sc.project.ID, sc.webDev, 10.2)
	require.NoError(t, err)
	assert.True(t, isNew)

	matches, err := st.ListMatchesByProject(ctx, sc.project.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	created := matches[0].CreatedAt

	isNew, err = st.UpsertMatch(ctx, sc.project.ID, sc.webDev, 11.5)
	require.NoError(t, err)
	assert.False(t, isNew, "refresh of an existing pair is not a new match")

	matches, err = st.ListMatchesByProject(ctx, sc.project.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1, "uniqueness on (project, vendor) must hold")
	assert.InDelta(t, 11.5, matches[0].Score, 1e-9)
	assert.True(t, matches[0].CreatedAt.Equal(created), "created_at must survive refreshes")
	assert.False(t, matches[0].UpdatedAt.Before(created))
}

func TestSQLite_ListLatestMatchPerVendor(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	// Second active project for the same client so the vendor has two
	// matches with distinct creation times.
	p2 := model.Project{ClientID: sc.client.ID, Country: "DE", Status: model.ProjectStatusActive}
	require.NoError(t, st.CreateProject(ctx, &p2))

	_, err := st.UpsertMatch(ctx, sc.project.ID, sc.webDev, 10.2)
	require.NoError(t, err)
	_, err = st.UpsertMatch(ctx, p2.ID, sc.webDev, 8.0)
	require.NoError(t, err)

	old := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	_, err = st.db.ExecContext(ctx, `UPDATE matches SET created_at = ? WHERE project_id = ?`, old, sc.project.ID)
	require.NoError(t, err)
	_, err = st.db.ExecContext(ctx, `UPDATE matches SET created_at = ? WHERE project_id = ?`, recent, p2.ID)
	require.NoError(t, err)

	latest, err := st.ListLatestMatchPerVendor(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1, "one row per vendor with matches")

	assert.Equal(t, sc.webDev, latest[0].Vendor.ID)
	assert.Equal(t, 24, latest[0].Vendor.ResponseSLAHours)
	assert.Equal(t, p2.ID, latest[0].Match.ProjectID, "only the most recent match counts")
	assert.True(t, latest[0].Match.CreatedAt.Equal(recent))
}

func TestSQLite_MatchStats_InclusiveWindowBoundary(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	windowStart := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	_, err := st.UpsertMatch(ctx, sc.project.ID, sc.webDev, 10.0)
	require.NoError(t, err)
	_, err = st.UpsertMatch(ctx, sc.project.ID, sc.slow, 6.0)
	require.NoError(t, err)

	// One match exactly on the boundary, one a second before it.
	_, err = st.db.ExecContext(ctx, `UPDATE matches SET created_at = ? WHERE vendor_id = ?`, windowStart, sc.webDev)
	require.NoError(t, err)
	_, err = st.db.ExecContext(ctx, `UPDATE matches SET created_at = ? WHERE vendor_id = ?`, windowStart.Add(-time.Second), sc.slow)
	require.NoError(t, err)

	stats, err := st.MatchStats(ctx, windowStart)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalMatches, "boundary match counts, earlier one does not")
	assert.InDelta(t, 10.0, stats.AverageScore, 1e-9)
	assert.Equal(t, 1, stats.UniqueProjects)
	assert.Equal(t, 1, stats.UniqueVendors)
}

func TestSQLite_MatchStats_EmptyWindow(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedScenario(t, st)

	stats, err := st.MatchStats(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalMatches)
	assert.Zero(t, stats.AverageScore)
	assert.Equal(t, 0, stats.UniqueProjects)
	assert.Equal(t, 0, stats.UniqueVendors)
}

func TestSQLite_TopVendors_OrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	_, err := st.UpsertMatch(ctx, sc.project.ID, sc.webDev, 10.2)
	require.NoError(t, err)
	_, err = st.UpsertMatch(ctx, sc.project.ID, sc.slow, 5.0)
	require.NoError(t, err)

	since := time.Now().UTC().Add(-time.Hour)

	top, err := st.TopVendors(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Berlin Web Co", top[0].VendorName)
	assert.InDelta(t, 10.2, top[0].AverageScore, 1e-9)
	assert.Equal(t, 1, top[0].MatchCount)

	top, err = st.TopVendors(ctx, since, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, sc.webDev, top[0].VendorID)
}

func TestSQLite_TopVendorsByCountry(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	frProject := model.Project{ClientID: sc.client.ID, Country: "FR", Status: model.ProjectStatusActive}
	require.NoError(t, st.CreateProject(ctx, &frProject))

	_, err := st.UpsertMatch(ctx, sc.project.ID, sc.webDev, 10.2)
	require.NoError(t, err)
	_, err = st.UpsertMatch(ctx, frProject.ID, sc.french, 9.0)
	require.NoError(t, err)

	rows, err := st.TopVendorsByCountry(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Grouped by the vendor's countries, ordered by country then score.
	assert.Equal(t, "DE", rows[0].Country)
	assert.Equal(t, sc.webDev, rows[0].VendorID)
	assert.Equal(t, "FR", rows[1].Country)
	assert.Equal(t, sc.french, rows[1].VendorID)
}

func TestSQLite_GetProject_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetProject(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSQLite_GetClient_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetClient(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestSQLite_ListActiveProjects_SkipsInactive(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	draft := model.Project{ClientID: sc.client.ID, Country: "NL"}
	require.NoError(t, st.CreateProject(ctx, &draft))
	assert.Equal(t, model.ProjectStatusDraft, draft.Status)

	done := model.Project{ClientID: sc.client.ID, Country: "NL", Status: model.ProjectStatusCompleted}
	require.NoError(t, st.CreateProject(ctx, &done))

	active, err := st.ListActiveProjects(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, sc.project.ID, active[0].ID)
}

func TestSQLite_SetProjectServices_Replaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	other := model.Service{Name: "Recruiting"}
	require.NoError(t, st.CreateService(ctx, &other))
	require.NoError(t, st.SetProjectServices(ctx, sc.project.ID, []int64{other.ID}))

	// The old web+seo requirements are gone, so the web vendors no
	// longer overlap.
	candidates, err := st.ComputeCandidates(ctx, &sc.project)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSQLite_ListProjectIDsByCountry(t *testing.T) {
	st := newTestSQLiteStore(t)
	sc := seedScenario(t, st)
	ctx := context.Background()

	ids, err := st.ListProjectIDsByCountry(ctx, "DE")
	require.NoError(t, err)
	assert.Equal(t, []int64{sc.project.ID}, ids)

	ids, err = st.ListProjectIDsByCountry(ctx, "JP")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
