// Package store persists leads, employees, areas, and the geocode cache
// behind one interface with SQLite and Postgres drivers.
package store

import (
	"context"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// LeadFilter specifies criteria for listing leads. Zero values mean "any".
type LeadFilter struct {
	Division        string           `json:"division,omitempty"`
	PoolStatus      model.PoolStatus `json:"pool_status,omitempty"`
	AssignedToEmail string           `json:"assigned_to_email,omitempty"`
	City            string           `json:"city,omitempty"`
	Limit           int              `json:"limit,omitempty"`
}

// LeadPatch is a partial lead update; nil fields are left untouched.
type LeadPatch struct {
	Status           *model.LeadStatus
	PoolStatus       *model.PoolStatus
	AssignedToName   *string
	AssignedToEmail  *string
	CalendarLink     *string
	AreaID           *string
	PreviousEmployee *string
	ArchiveCategory  *model.ArchiveCategory
	Coordinates      *model.Coordinates
	Notes            *string
	Verified         *bool
}

// EmployeeFilter specifies criteria for listing employees.
type EmployeeFilter struct {
	Division string               `json:"division,omitempty"`
	Status   model.EmployeeStatus `json:"status,omitempty"`
	Role     model.EmployeeRole   `json:"role,omitempty"`
}

// Store is the persistence interface for the acquisition and distribution
// pipeline. The pipeline itself never deletes leads; DeleteLead exists for
// the surrounding CRM's CRUD screens.
type Store interface {
	// Leads
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	BulkCreateLeads(ctx context.Context, leads []model.Lead) (int, error)
	UpdateLead(ctx context.Context, id string, patch LeadPatch) error
	DeleteLead(ctx context.Context, id string) error

	// AssignLead moves a pool lead to the employee with a conditional write:
	// it succeeds only if the lead is still in the pool, so two concurrent
	// distributors can never both take it. Returns false when the lead was
	// already assigned elsewhere.
	AssignLead(ctx context.Context, leadID string, emp model.Employee) (bool, error)

	// Employees
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error)
	UpsertEmployee(ctx context.Context, emp model.Employee) error

	// Areas
	ListAreas(ctx context.Context) ([]model.Area, error)
	CreateArea(ctx context.Context, area model.Area) (*model.Area, error)

	// Geocode cache. Get keys on (street, house number, city) and returns
	// (nil, nil) on a miss; Upsert keys on the full composite including
	// postal code, last write wins.
	GetGeocodeEntry(ctx context.Context, street, houseNumber, city string) (*model.GeocodeCacheEntry, error)
	UpsertGeocodeEntry(ctx context.Context, entry model.GeocodeCacheEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
