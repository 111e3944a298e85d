package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/expanders360/vendor-match/internal/model"
)

// Sentinel errors for missing entities. Returned unwrapped so callers can
// test with errors.Is.
var (
	ErrProjectNotFound = eris.New("store: project not found")
	ErrClientNotFound  = eris.New("store: client not found")
)

// Store defines the persistence interface for the matching core.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	ListActiveProjects(ctx context.Context) ([]model.Project, error)
	ListProjectIDsByCountry(ctx context.Context, country string) ([]int64, error)
	SetProjectServices(ctx context.Context, projectID int64, serviceIDs []int64) error

	// Clients
	CreateClient(ctx context.Context, c *model.Client) error
	GetClient(ctx context.Context, id int64) (*model.Client, error)

	// Vendors and services
	CreateVendor(ctx context.Context, v *model.Vendor) error
	SetVendorServices(ctx context.Context, vendorID int64, serviceIDs []int64) error
	SetVendorCountries(ctx context.Context, vendorID int64, countries []string) error
	CreateService(ctx context.Context, svc *model.Service) error

	// Matching. ComputeCandidates is a pure read over current vendor,
	// service, and country state; candidates are ordered by vendor id for
	// stable iteration. UpsertMatch inserts or refreshes the single row
	// for the (project, vendor) pair and reports whether it was an insert.
	ComputeCandidates(ctx context.Context, project *model.Project) ([]model.Candidate, error)
	UpsertMatch(ctx context.Context, projectID, vendorID int64, score float64) (isNew bool, err error)
	ListMatchesByProject(ctx context.Context, projectID int64) ([]model.Match, error)

	// SLA: the most recent match per vendor, for vendors that have at
	// least one match.
	ListLatestMatchPerVendor(ctx context.Context) ([]model.VendorLatestMatch, error)

	// Statistics and analytics, windowed on matches.created_at >= since.
	MatchStats(ctx context.Context, since time.Time) (*model.MatchStats, error)
	TopVendors(ctx context.Context, since time.Time, limit int) ([]model.VendorPerformance, error)
	TopVendorsByCountry(ctx context.Context, since time.Time) ([]model.CountryVendorScore, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
