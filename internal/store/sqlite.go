package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/expanders360/vendor-match/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local and
// development runs. Unlike the Postgres store it cannot report
// insert-vs-update atomically, so UpsertMatch keeps the documented
// best-effort existence pre-check.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	company_name  TEXT NOT NULL,
	contact_email TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id  INTEGER NOT NULL REFERENCES clients(id),
	country    TEXT NOT NULL,
	budget     REAL NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'draft',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS services (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS vendors (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	name               TEXT NOT NULL,
	rating             REAL NOT NULL DEFAULT 0,
	response_sla_hours INTEGER NOT NULL,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS project_services (
	project_id INTEGER NOT NULL REFERENCES projects(id),
	service_id INTEGER NOT NULL REFERENCES services(id),
	PRIMARY KEY (project_id, service_id)
);

CREATE TABLE IF NOT EXISTS vendor_services (
	vendor_id  INTEGER NOT NULL REFERENCES vendors(id),
	service_id INTEGER NOT NULL REFERENCES services(id),
	PRIMARY KEY (vendor_id, service_id)
);

CREATE TABLE IF NOT EXISTS vendor_countries (
	vendor_id INTEGER NOT NULL REFERENCES vendors(id),
	country   TEXT NOT NULL,
	PRIMARY KEY (vendor_id, country)
);

CREATE TABLE IF NOT EXISTS matches (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id),
	vendor_id  INTEGER NOT NULL REFERENCES vendors(id),
	score      REAL NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (project_id, vendor_id)
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_country ON projects(country);
CREATE INDEX IF NOT EXISTS idx_matches_vendor_created ON matches(vendor_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches(created_at);
CREATE INDEX IF NOT EXISTS idx_vendor_countries_country ON vendor_countries(country);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project) error {
	if p.Status == "" {
		p.Status = model.ProjectStatusDraft
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (client_id, country, budget, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ClientID, p.Country, p.Budget, string(p.Status), now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create project")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: project insert id")
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, country, budget, status, created_at, updated_at FROM projects WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.ClientID, &p.Country, &p.Budget, &status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get project %d", id)
	}
	p.Status = model.ProjectStatus(status)
	return &p, nil
}

func (s *SQLiteStore) ListActiveProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, country, budget, status, created_at, updated_at
		 FROM projects WHERE status = ? ORDER BY id`,
		string(model.ProjectStatusActive),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		var status string
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Country, &p.Budget, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		p.Status = model.ProjectStatus(status)
		projects = append(projects, p)
	}
	return projects, eris.Wrap(rows.Err(), "sqlite: list active projects")
}

func (s *SQLiteStore) ListProjectIDsByCountry(ctx context.Context, country string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects WHERE country = ? ORDER BY id`, country)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list project ids for %s", country)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list project ids")
}

func (s *SQLiteStore) SetProjectServices(ctx context.Context, projectID int64, serviceIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_services WHERE project_id = ?`, projectID); err != nil {
		return eris.Wrapf(err, "sqlite: clear services for project %d", projectID)
	}
	for _, sid := range serviceIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_services (project_id, service_id) VALUES (?, ?)`,
			projectID, sid,
		); err != nil {
			return eris.Wrapf(err, "sqlite: attach service %d to project %d", sid, projectID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) CreateClient(ctx context.Context, c *model.Client) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (company_name, contact_email, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.CompanyName, c.ContactEmail, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create client")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: client insert id")
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var c model.Client
	err := s.db.QueryRowContext(ctx,
		`SELECT id, company_name, contact_email, created_at, updated_at FROM clients WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.CompanyName, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get client %d", id)
	}
	return &c, nil
}

func (s *SQLiteStore) CreateVendor(ctx context.Context, v *model.Vendor) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO vendors (name, rating, response_sla_hours, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		v.Name, v.Rating, v.ResponseSLAHours, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create vendor")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: vendor insert id")
	}
	v.ID = id
	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) SetVendorServices(ctx context.Context, vendorID int64, serviceIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM vendor_services WHERE vendor_id = ?`, vendorID); err != nil {
		return eris.Wrapf(err, "sqlite: clear services for vendor %d", vendorID)
	}
	for _, sid := range serviceIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vendor_services (vendor_id, service_id) VALUES (?, ?)`,
			vendorID, sid,
		); err != nil {
			return eris.Wrapf(err, "sqlite: attach service %d to vendor %d", sid, vendorID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) SetVendorCountries(ctx context.Context, vendorID int64, countries []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM vendor_countries WHERE vendor_id = ?`, vendorID); err != nil {
		return eris.Wrapf(err, "sqlite: clear countries for vendor %d", vendorID)
	}
	for _, country := range countries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vendor_countries (vendor_id, country) VALUES (?, ?)`,
			vendorID, country,
		); err != nil {
			return eris.Wrapf(err, "sqlite: attach country %s to vendor %d", country, vendorID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) CreateService(ctx context.Context, svc *model.Service) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO services (name) VALUES (?)`, svc.Name)
	if err != nil {
		return eris.Wrapf(err, "sqlite: create service %s", svc.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: service insert id")
	}
	svc.ID = id
	return nil
}

const sqliteCandidateQuery = `
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
WHERE vc.country = ? AND ps.project_id = ?
GROUP BY v.id, v.rating, v.response_sla_hours
HAVING COUNT(DISTINCT vs.service_id) > 0
ORDER BY v.id`

func (s *SQLiteStore) ComputeCandidates(ctx context.Context, project *model.Project) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, sqliteCandidateQuery, project.Country, project.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: compute candidates for project %d", project.ID)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.VendorID, &c.ServicesOverlap, &c.Rating, &c.SLAHours, &c.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		candidates = append(candidates, c)
	}
	return candidates, eris.Wrap(rows.Err(), "sqlite: compute candidates")
}

// UpsertMatch checks existence first, then upserts. The check-then-write
// is a documented best-effort: two concurrent rebuilds of the same
// project may both report isNew. The uniqueness constraint still holds.
func (s *SQLiteStore) UpsertMatch(ctx context.Context, projectID, vendorID int64, score float64) (bool, error) {
	var existing int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM matches WHERE project_id = ? AND vendor_id = ?`,
		projectID, vendorID,
	).Scan(&existing)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: check match project=%d vendor=%d", projectID, vendorID)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (project_id, vendor_id, score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, vendor_id)
		 DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		projectID, vendorID, score, now, now,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: upsert match project=%d vendor=%d", projectID, vendorID)
	}
	return existing == 0, nil
}

func (s *SQLiteStore) ListMatchesByProject(ctx context.Context, projectID int64) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, vendor_id, score, created_at, updated_at
		 FROM matches WHERE project_id = ? ORDER BY vendor_id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list matches for project %d", projectID)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.VendorID, &m.Score, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		matches = append(matches, m)
	}
	return matches, eris.Wrap(rows.Err(), "sqlite: list matches")
}

const sqliteLatestMatchQuery = `
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

func (s *SQLiteStore) ListLatestMatchPerVendor(ctx context.Context) ([]model.VendorLatestMatch, error) {
	rows, err := s.db.QueryContext(ctx, sqliteLatestMatchQuery)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list latest matches")
	}
	defer rows.Close()

	var result []model.VendorLatestMatch
	for rows.Next() {
		var vm model.VendorLatestMatch
		if err := rows.Scan(
			&vm.Vendor.ID, &vm.Vendor.Name, &vm.Vendor.Rating, &vm.Vendor.ResponseSLAHours,
			&vm.Match.ID, &vm.Match.ProjectID, &vm.Match.Score, &vm.Match.CreatedAt, &vm.Match.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan latest match")
		}
		vm.Match.VendorID = vm.Vendor.ID
		result = append(result, vm)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: list latest matches")
}

func (s *SQLiteStore) MatchStats(ctx context.Context, since time.Time) (*model.MatchStats, error) {
	var stats model.MatchStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(id), COALESCE(AVG(score), 0), COUNT(DISTINCT project_id), COUNT(DISTINCT vendor_id)
		 FROM matches WHERE created_at >= ?`,
		since,
	).Scan(&stats.TotalMatches, &stats.AverageScore, &stats.UniqueProjects, &stats.UniqueVendors)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: match stats")
	}
	return &stats, nil
}

func (s *SQLiteStore) TopVendors(ctx context.Context, since time.Time, limit int) ([]model.VendorPerformance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.name, AVG(m.score) AS average_score, COUNT(m.id) AS match_count
		 FROM vendors v
		 JOIN matches m ON m.vendor_id = v.id
		 WHERE m.created_at >= ?
		 GROUP BY v.id, v.name
		 ORDER BY average_score DESC
		 LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top vendors")
	}
	defer rows.Close()

	var top []model.VendorPerformance
	for rows.Next() {
		var vp model.VendorPerformance
		if err := rows.Scan(&vp.VendorID, &vp.VendorName, &vp.AverageScore, &vp.MatchCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan top vendor")
		}
		top = append(top, vp)
	}
	return top, eris.Wrap(rows.Err(), "sqlite: top vendors")
}

func (s *SQLiteStore) TopVendorsByCountry(ctx context.Context, since time.Time) ([]model.CountryVendorScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vc.country, v.id, v.name, AVG(m.score) AS average_score
		 FROM vendors v
		 JOIN vendor_countries vc ON vc.vendor_id = v.id
		 JOIN matches m ON m.vendor_id = v.id
		 WHERE m.created_at >= ?
		 GROUP BY vc.country, v.id, v.name
		 ORDER BY vc.country, average_score DESC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top vendors by country")
	}
	defer rows.Close()

	var result []model.CountryVendorScore
	for rows.Next() {
		var cv model.CountryVendorScore
		if err := rows.Scan(&cv.Country, &cv.VendorID, &cv.VendorName, &cv.AverageScore); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan country vendor score")
		}
		result = append(result, cv)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: top vendors by country")
}
