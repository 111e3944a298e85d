// Package analytics joins relational vendor rankings with research
// document counts from the document catalog.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/expanders360/vendor-match/internal/model"
	"github.com/expanders360/vendor-match/pkg/docstore"
)

// lookback is the trailing window for vendor score averages.
const lookback = 30 * 24 * time.Hour

// topPerCountry caps the per-country vendor ranking.
const topPerCountry = 3

// Store is the persistence surface the analytics view needs.
type Store interface {
	TopVendorsByCountry(ctx context.Context, since time.Time) ([]model.CountryVendorScore, error)
	ListProjectIDsByCountry(ctx context.Context, country string) ([]int64, error)
}

// Service assembles the cross-store top-vendors view.
type Service struct {
	store Store
	docs  docstore.Client
}

// New creates the analytics service.
func New(store Store, docs docstore.Client) *Service {
	return &Service{store: store, docs: docs}
}

// TopVendorsWithResearch returns, per country, the top vendors by average
// match score over the trailing 30 days, together with the count of
// research documents linked to that country's projects. Document counts
// for all countries are fetched concurrently.
func (s *Service) TopVendorsWithResearch(ctx context.Context) ([]model.CountryTopVendors, error) {
	since := time.Now().UTC().Add(-lookback)

	scores, err := s.store.TopVendorsByCountry(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: vendor rankings")
	}

	byCountry := make(map[string][]model.CountryVendorScore)
	for _, cv := range scores {
		byCountry[cv.Country] = append(byCountry[cv.Country], cv)
	}

	countries := make([]string, 0, len(byCountry))
	for country := range byCountry {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	result := make([]model.CountryTopVendors, len(countries))
	g, gctx := errgroup.WithContext(ctx)
	for i, country := range countries {
		vendors := byCountry[country]
		if len(vendors) > topPerCountry {
			vendors = vendors[:topPerCountry]
		}
		result[i] = model.CountryTopVendors{Country: country, TopVendors: vendors}

		g.Go(func() error {
			ids, err := s.store.ListProjectIDsByCountry(gctx, country)
			if err != nil {
				return eris.Wrapf(err, "analytics: projects for %s", country)
			}
			count, err := s.docs.CountByProjectIDs(gctx, ids)
			if err != nil {
				return eris.Wrapf(err, "analytics: document count for %s", country)
			}
			result[i].ResearchDocCount = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
