package model

import "time"

// ProjectStatus represents the lifecycle state of an expansion project.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// Project is a client's expansion project into a target country.
// Only active projects participate in the scheduled match refresh.
type Project struct {
	ID        int64         `json:"id"`
	ClientID  int64         `json:"client_id"`
	Country   string        `json:"country"` // ISO 3166-1 alpha-2
	Budget    float64       `json:"budget"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Client owns projects and receives match notifications at ContactEmail.
type Client struct {
	ID           int64     `json:"id"`
	CompanyName  string    `json:"company_name"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Service is the join point between project requirements and vendor offerings.
type Service struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
