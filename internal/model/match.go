package model

import "time"

// Match is a persisted (project, vendor, score) association. At most one
// row exists per (ProjectID, VendorID) pair, enforced by a uniqueness
// constraint in the store. CreatedAt is set once at first insertion;
// UpdatedAt changes on every recompute.
type Match struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	VendorID  int64     `json:"vendor_id"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VendorLatestMatch pairs a vendor with its most recent match, the unit
// the SLA monitor evaluates.
type VendorLatestMatch struct {
	Vendor Vendor `json:"vendor"`
	Match  Match  `json:"match"`
}

// MatchStats holds aggregate figures over a match window.
type MatchStats struct {
	TotalMatches   int     `json:"total_matches"`
	AverageScore   float64 `json:"average_score"`
	UniqueProjects int     `json:"unique_projects"`
	UniqueVendors  int     `json:"unique_vendors"`
}

// VendorPerformance ranks a vendor by average match score over a window.
type VendorPerformance struct {
	VendorID     int64   `json:"vendor_id"`
	VendorName   string  `json:"vendor_name"`
	AverageScore float64 `json:"average_score"`
	MatchCount   int     `json:"match_count"`
}

// CountryVendorScore is one row of the per-country vendor ranking used
// by the analytics view.
type CountryVendorScore struct {
	Country      string  `json:"country"`
	VendorID     int64   `json:"vendor_id"`
	VendorName   string  `json:"vendor_name"`
	AverageScore float64 `json:"average_score"`
}

// CountryTopVendors joins the top vendors of a country with the number
// of research documents linked to that country's projects.
type CountryTopVendors struct {
	Country          string               `json:"country"`
	ResearchDocCount int                  `json:"research_doc_count"`
	TopVendors       []CountryVendorScore `json:"top_vendors"`
}
