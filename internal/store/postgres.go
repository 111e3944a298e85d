package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/expanders360/vendor-match/internal/db"
	"github.com/expanders360/vendor-match/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests to inject a
// pgxmock pool; Close becomes a no-op for the pool's lifetime.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id            BIGSERIAL PRIMARY KEY,
	company_name  TEXT NOT NULL,
	contact_email TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
	id         BIGSERIAL PRIMARY KEY,
	client_id  BIGINT NOT NULL REFERENCES clients(id),
	country    CHAR(2) NOT NULL,
	budget     NUMERIC(12,2) NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'draft',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS services (
	id   BIGSERIAL PRIMARY KEY,
	name VARCHAR(100) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS vendors (
	id                 BIGSERIAL PRIMARY KEY,
	name               TEXT NOT NULL,
	rating             NUMERIC(3,2) NOT NULL DEFAULT 0,
	response_sla_hours INTEGER NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS project_services (
	project_id BIGINT NOT NULL REFERENCES projects(id),
	service_id BIGINT NOT NULL REFERENCES services(id),
	PRIMARY KEY (project_id, service_id)
);

CREATE TABLE IF NOT EXISTS vendor_services (
	vendor_id  BIGINT NOT NULL REFERENCES vendors(id),
	service_id BIGINT NOT NULL REFERENCES services(id),
	PRIMARY KEY (vendor_id, service_id)
);

CREATE TABLE IF NOT EXISTS vendor_countries (
	vendor_id BIGINT NOT NULL REFERENCES vendors(id),
	country   CHAR(2) NOT NULL,
	PRIMARY KEY (vendor_id, country)
);

CREATE TABLE IF NOT EXISTS matches (
	id         BIGSERIAL PRIMARY KEY,
	project_id BIGINT NOT NULL REFERENCES projects(id),
	vendor_id  BIGINT NOT NULL REFERENCES vendors(id),
	score      NUMERIC(5,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (project_id, vendor_id)
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_country ON projects(country);
CREATE INDEX IF NOT EXISTS idx_matches_vendor_created ON matches(vendor_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches(created_at);
CREATE INDEX IF NOT EXISTS idx_vendor_countries_country ON vendor_countries(country);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, p *model.Project) error {
	if p.Status == "" {
		p.Status = model.ProjectStatusDraft
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (client_id, country, budget, status) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.ClientID, p.Country, p.Budget, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create project")
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, client_id, country, budget, status, created_at, updated_at FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.ClientID, &p.Country, &p.Budget, &status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get project %d", id)
	}
	p.Status = model.ProjectStatus(status)
	return &p, nil
}

func (s *PostgresStore) ListActiveProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, country, budget, status, created_at, updated_at
		 FROM projects WHERE status = $1 ORDER BY id`,
		string(model.ProjectStatusActive),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		var status string
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Country, &p.Budget, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		p.Status = model.ProjectStatus(status)
		projects = append(projects, p)
	}
	return projects, eris.Wrap(rows.Err(), "postgres: list active projects")
}

func (s *PostgresStore) ListProjectIDsByCountry(ctx context.Context, country string) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM projects WHERE country = $1 ORDER BY id`, country)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list project ids for %s", country)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list project ids")
}

func (s *PostgresStore) SetProjectServices(ctx context.Context, projectID int64, serviceIDs []int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM project_services WHERE project_id = $1`, projectID); err != nil {
		return eris.Wrapf(err, "postgres: clear services for project %d", projectID)
	}
	for _, sid := range serviceIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO project_services (project_id, service_id) VALUES ($1, $2)`,
			projectID, sid,
		); err != nil {
			return eris.Wrapf(err, "postgres: attach service %d to project %d", sid, projectID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

func (s *PostgresStore) CreateClient(ctx context.Context, c *model.Client) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO clients (company_name, contact_email) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		c.CompanyName, c.ContactEmail,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create client")
	}
	return nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var c model.Client
	err := s.pool.QueryRow(ctx,
		`SELECT id, company_name, contact_email, created_at, updated_at FROM clients WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.CompanyName, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get client %d", id)
	}
	return &c, nil
}

func (s *PostgresStore) CreateVendor(ctx context.Context, v *model.Vendor) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO vendors (name, rating, response_sla_hours) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		v.Name, v.Rating, v.ResponseSLAHours,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create vendor")
	}
	return nil
}

func (s *PostgresStore) SetVendorServices(ctx context.Context, vendorID int64, serviceIDs []int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM vendor_services WHERE vendor_id = $1`, vendorID); err != nil {
		return eris.Wrapf(err, "postgres: clear services for vendor %d", vendorID)
	}
	for _, sid := range serviceIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO vendor_services (vendor_id, service_id) VALUES ($1, $2)`,
			vendorID, sid,
		); err != nil {
			return eris.Wrapf(err, "postgres: attach service %d to vendor %d", sid, vendorID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

func (s *PostgresStore) SetVendorCountries(ctx context.Context, vendorID int64, countries []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM vendor_countries WHERE vendor_id = $1`, vendorID); err != nil {
		return eris.Wrapf(err, "postgres: clear countries for vendor %d", vendorID)
	}
	for _, country := range countries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO vendor_countries (vendor_id, country) VALUES ($1, $2)`,
			vendorID, country,
		); err != nil {
			return eris.Wrapf(err, "postgres: attach country %s to vendor %d", country, vendorID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

func (s *PostgresStore) CreateService(ctx context.Context, svc *model.Service) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO services (name) VALUES ($1) RETURNING id`,
		svc.Name,
	).Scan(&svc.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: create service %s", svc.Name)
	}
	return nil
}

// candidateQuery selects vendors covering the project's country with at
// least one overlapping service, scored per vendor:
// overlap*2 + rating + sla bonus (2 for <=24h, 1 for <=72h).
const candidateQuery = `
SELECT v.id,
       COUNT(DISTINCT vs.service_id) AS services_overlap,
       v.rating,
       v.response_sla_hours,
       COUNT(DISTINCT vs.service_id) * 2 + v.rating +
         CASE WHEN v.response_sla_hours <= 24 THEN 2
              WHEN v.response_sla_hours <= 72 THEN 1
              ELSE 0 END AS score
FROM vendors v
JOIN vendor_countries vc ON vc.vendor_id = v.id
JOIN vendor_services vs ON vs.vendor_id = v.id
JOIN project_services ps ON ps.service_id = vs.service_id
WHERE vc.country = $1 AND ps.project_id = $2
GROUP BY v.id, v.rating, v.response_sla_hours
HAVING COUNT(DISTINCT vs.service_id) > 0
ORDER BY v.id`

func (s *PostgresStore) ComputeCandidates(ctx context.Context, project *model.Project) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx, candidateQuery, project.Country, project.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: compute candidates for project %d", project.ID)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.VendorID, &c.ServicesOverlap, &c.Rating, &c.SLAHours, &c.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		candidates = append(candidates, c)
	}
	return candidates, eris.Wrap(rows.Err(), "postgres: compute candidates")
}

// UpsertMatch is a single atomic statement; (xmax = 0) distinguishes a
// fresh insert from a conflict-update, so concurrent rebuilds of the same
// project cannot both observe "new" for one pair.
func (s *PostgresStore) UpsertMatch(ctx context.Context, projectID, vendorID int64, score float64) (bool, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO matches (project_id, vendor_id, score) VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, vendor_id)
		 DO UPDATE SET score = EXCLUDED.score, updated_at = now()
		 RETURNING (xmax = 0) AS inserted`,
		projectID, vendorID, score,
	).Scan(&inserted)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: upsert match project=%d vendor=%d", projectID, vendorID)
	}
	return inserted, nil
}

func (s *PostgresStore) ListMatchesByProject(ctx context.Context, projectID int64) ([]model.Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, vendor_id, score, created_at, updated_at
		 FROM matches WHERE project_id = $1 ORDER BY vendor_id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list matches for project %d", projectID)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.VendorID, &m.Score, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		matches = append(matches, m)
	}
	return matches, eris.Wrap(rows.Err(), "postgres: list matches")
}

// latestMatchQuery picks each vendor's single most recent match; ties on
// created_at break toward the higher match id.
const latestMatchQuery = `
SELECT vendor_id, vendor_name, rating, response_sla_hours,
       match_id, project_id, score, match_created_at, match_updated_at
FROM (
	SELECT v.id AS vendor_id, v.name AS vendor_name, v.rating, v.response_sla_hours,
	       m.id AS match_id, m.project_id, m.score,
	       m.created_at AS match_created_at, m.updated_at AS match_updated_at,
	       ROW_NUMBER() OVER (PARTITION BY m.vendor_id ORDER BY m.created_at DESC, m.id DESC) AS rn
	FROM vendors v
	JOIN matches m ON m.vendor_id = v.id
) latest
WHERE rn = 1
ORDER BY vendor_id`

func (s *PostgresStore) ListLatestMatchPerVendor(ctx context.Context) ([]model.VendorLatestMatch, error) {
	rows, err := s.pool.Query(ctx, latestMatchQuery)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list latest matches")
	}
	defer rows.Close()

	var result []model.VendorLatestMatch
	for rows.Next() {
		var vm model.VendorLatestMatch
		if err := rows.Scan(
			&vm.Vendor.ID, &vm.Vendor.Name, &vm.Vendor.Rating, &vm.Vendor.ResponseSLAHours,
			&vm.Match.ID, &vm.Match.ProjectID, &vm.Match.Score, &vm.Match.CreatedAt, &vm.Match.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan latest match")
		}
		vm.Match.VendorID = vm.Vendor.ID
		result = append(result, vm)
	}
	return result, eris.Wrap(rows.Err(), "postgres: list latest matches")
}

func (s *PostgresStore) MatchStats(ctx context.Context, since time.Time) (*model.MatchStats, error) {
	var stats model.MatchStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(id), COALESCE(AVG(score), 0), COUNT(DISTINCT project_id), COUNT(DISTINCT vendor_id)
		 FROM matches WHERE created_at >= $1`,
		since,
	).Scan(&stats.TotalMatches, &stats.AverageScore, &stats.UniqueProjects, &stats.UniqueVendors)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: match stats")
	}
	return &stats, nil
}

func (s *PostgresStore) TopVendors(ctx context.Context, since time.Time, limit int) ([]model.VendorPerformance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT v.id, v.name, AVG(m.score) AS average_score, COUNT(m.id) AS match_count
		 FROM vendors v
		 JOIN matches m ON m.vendor_id = v.id
		 WHERE m.created_at >= $1
		 GROUP BY v.id, v.name
		 ORDER BY average_score DESC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top vendors")
	}
	defer rows.Close()

	var top []model.VendorPerformance
	for rows.Next() {
		var vp model.VendorPerformance
		if err := rows.Scan(&vp.VendorID, &vp.VendorName, &vp.AverageScore, &vp.MatchCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan top vendor")
		}
		top = append(top, vp)
	}
	return top, eris.Wrap(rows.Err(), "postgres: top vendors")
}

func (s *PostgresStore) TopVendorsByCountry(ctx context.Context, since time.Time) ([]model.CountryVendorScore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT vc.country, v.id, v.name, AVG(m.score) AS average_score
		 FROM vendors v
		 JOIN vendor_countries vc ON vc.vendor_id = v.id
		 JOIN matches m ON m.vendor_id = v.id
		 WHERE m.created_at >= $1
		 GROUP BY vc.country, v.id, v.name
		 ORDER BY vc.country, average_score DESC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top vendors by country")
	}
	defer rows.Close()

	var result []model.CountryVendorScore
	for rows.Next() {
		var cv model.CountryVendorScore
		if err := rows.Scan(&cv.Country, &cv.VendorID, &cv.VendorName, &cv.AverageScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan country vendor score")
		}
		result = append(result, cv)
	}
	return result, eris.Wrap(rows.Err(), "postgres: top vendors by country")
}
