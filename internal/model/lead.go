package model

import "time"

// PoolStatus tracks where a lead sits in the distribution lifecycle.
type PoolStatus string

const (
	PoolStatusInPool    PoolStatus = "in_pool"
	PoolStatusAssigned  PoolStatus = "assigned"
	PoolStatusProcessed PoolStatus = "processed"
)

// LeadStatus represents the funnel stage of a lead.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusOpportunity LeadStatus = "opportunity"
	LeadStatusWon         LeadStatus = "won"
	LeadStatusLost        LeadStatus = "lost"
)

// ArchiveCategory is a terminal bucket that removes a lead from active-load
// counting and can block further top-up for its owner.
type ArchiveCategory string

const (
	ArchiveProcessed    ArchiveCategory = "processed"
	ArchiveAddressPoint ArchiveCategory = "address_point"
	ArchiveUnreachable  ArchiveCategory = "unreachable"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Lead is a prospective company discovered by the directory crawler and moved
// through geocoding, territory assignment, and distribution. A lead in the
// pool has no assignee; an assigned lead has both assignee fields set.
type Lead struct {
	ID               string           `json:"id"`
	Company          string           `json:"company"`
	Street           string           `json:"street"` // street incl. house number
	PostalCode       string           `json:"postal_code,omitempty"`
	City             string           `json:"city,omitempty"`
	Phone            string           `json:"phone,omitempty"`
	SecondaryPhone   string           `json:"secondary_phone,omitempty"`
	Email            string           `json:"email,omitempty"`
	Website          string           `json:"website,omitempty"`
	Industry         string           `json:"industry,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	Status           LeadStatus       `json:"status"`
	PoolStatus       PoolStatus       `json:"pool_status"`
	AssignedToName   string           `json:"assigned_to_name,omitempty"`
	AssignedToEmail  string           `json:"assigned_to_email,omitempty"`
	CalendarLink     string           `json:"calendar_link,omitempty"`
	AreaID           *string          `json:"area_id,omitempty"`
	Division         string           `json:"division"`
	PreviousEmployee string           `json:"previous_employee,omitempty"` // email; blocks re-assignment to the same employee
	ArchiveCategory  *ArchiveCategory `json:"archive_category,omitempty"`
	Source           string           `json:"source"`
	Coordinates      *Coordinates     `json:"coordinates,omitempty"`
	Verified         bool             `json:"verified"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// InActiveLoad reports whether the lead counts toward its owner's active load.
// Archived, opportunity, and lost leads are excluded.
func (l Lead) InActiveLoad() bool {
	if l.PoolStatus != PoolStatusAssigned {
		return false
	}
	if l.ArchiveCategory != nil {
		return false
	}
	if l.Status == LeadStatusOpportunity || l.Status == LeadStatusLost {
		return false
	}
	return true
}
