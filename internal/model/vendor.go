package model

import "time"

// Vendor is a local provider in the match pool. Rating is 0-5;
// ResponseSLAHours is the vendor's committed response window.
type Vendor struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Rating           float64   `json:"rating"`
	ResponseSLAHours int       `json:"response_sla_hours"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Candidate is one row of the scoring query: a vendor covering the
// project's country with at least one overlapping service.
//
//	score = overlap*2 + rating + slaBonus
//	slaBonus = 2 if sla <= 24h, 1 if sla <= 72h, 0 otherwise
type Candidate struct {
	VendorID        int64   `json:"vendor_id"`
	ServicesOverlap int     `json:"services_overlap"`
	Rating          float64 `json:"rating"`
	SLAHours        int     `json:"sla_hours"`
	Score           float64 `json:"score"`
}
