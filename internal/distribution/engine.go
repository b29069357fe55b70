// Package distribution moves pooled leads to employees under capacity quotas
// and exclusion rules.
package distribution

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
)

const (
	// DefaultTarget is the assigned-lead count a top-up aims for.
	DefaultTarget = 50

	// DefaultTrigger is the active-load threshold below which the batch
	// sweep tops an employee up. Employees at or above it are left alone
	// even when below target.
	DefaultTrigger = 40

	maxArchivedProcessed    = 10
	maxArchivedAddressPoint = 10
	maxArchivedUnreachable  = 50
)

// AssignResult is the outcome of a direct top-up. No-op outcomes (pool
// empty, already at target) are successes with Assigned == 0.
type AssignResult struct {
	Success      bool   `json:"success"`
	Assigned     int    `json:"assigned"`
	Message      string `json:"message"`
	CurrentCount int    `json:"current_count"`
}

// SweepEntry reports one employee that received leads during a batch sweep.
type SweepEntry struct {
	Employee string `json:"employee"`
	HadLeads int    `json:"had_leads"`
	Assigned int    `json:"assigned"`
	NowHas   int    `json:"now_has"`
}

// SweepResult aggregates a batch sweep.
type SweepResult struct {
	Results []SweepEntry `json:"results"`
}

// Engine schedules pool leads onto employees.
type Engine struct {
	store   store.Store
	target  int
	trigger int
}

// Option configures the Engine.
type Option func(*Engine)

// WithTarget overrides the top-up target.
func WithTarget(n int) Option { return func(e *Engine) { e.target = n } }

// WithTrigger overrides the sweep trigger threshold.
func WithTrigger(n int) Option { return func(e *Engine) { e.trigger = n } }

// NewEngine creates an Engine over the given store.
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{store: s, target: DefaultTarget, trigger: DefaultTrigger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DirectTopUp fills one employee up to the target. The current count is every
// assigned lead for that employee and division, with no archive or activity
// filtering, and pool leads are pulled in insertion order with no
// previous-employee exclusion.
func (e *Engine) DirectTopUp(ctx context.Context, employeeEmail, division string) (*AssignResult, error) {
	emp, err := e.findEmployee(ctx, employeeEmail)
	if err != nil {
		return nil, err
	}

	assigned, err := e.store.ListLeads(ctx, store.LeadFilter{
		Division:        division,
		PoolStatus:      model.PoolStatusAssigned,
		AssignedToEmail: emp.Email,
	})
	if err != nil {
		return nil, eris.Wrap(err, "distribution: count assigned leads")
	}
	current := len(assigned)

	needed := e.target - current
	if needed <= 0 {
		return &AssignResult{
			Success:      true,
			Message:      "employee already has the target number of leads",
			CurrentCount: current,
		}, nil
	}

	pool, err := e.store.ListLeads(ctx, store.LeadFilter{
		Division:   division,
		PoolStatus: model.PoolStatusInPool,
	})
	if err != nil {
		return nil, eris.Wrap(err, "distribution: list pool")
	}
	if len(pool) == 0 {
		return &AssignResult{
			Success:      true,
			Message:      "no leads available in the pool",
			CurrentCount: current,
		}, nil
	}

	got, err := e.assignFromPool(ctx, pool, *emp, needed, false)
	if err != nil {
		return nil, err
	}

	zap.L().Info("direct top-up complete",
		zap.String("employee", emp.Email),
		zap.Int("assigned", got),
		zap.Int("now_has", current+got),
	)

	return &AssignResult{
		Success:      true,
		Assigned:     got,
		Message:      "leads assigned",
		CurrentCount: current + got,
	}, nil
}

// BatchSweep tops up every eligible employee of the division whose active
// load is under the trigger threshold. Employees past an archive exclusion
// threshold are skipped entirely.
func (e *Engine) BatchSweep(ctx context.Context, division string) (*SweepResult, error) {
	employees, err := e.store.ListEmployees(ctx, store.EmployeeFilter{
		Division: division,
		Status:   model.EmployeeActive,
		Role:     model.RoleStaff,
	})
	if err != nil {
		return nil, eris.Wrap(err, "distribution: list employees")
	}

	leads, err := e.store.ListLeads(ctx, store.LeadFilter{Division: division})
	if err != nil {
		return nil, eris.Wrap(err, "distribution: list leads")
	}

	var pool []model.Lead
	for _, l := range leads {
		if l.PoolStatus == model.PoolStatusInPool {
			pool = append(pool, l)
		}
	}

	result := &SweepResult{Results: []SweepEntry{}}
	taken := make(map[string]struct{})

	for _, emp := range employees {
		if excluded, reason := archiveExcluded(leads, emp.Email); excluded {
			zap.L().Info("employee excluded from sweep",
				zap.String("employee", emp.Email),
				zap.String("reason", reason),
			)
			continue
		}

		active := activeLoad(leads, emp.Email)
		if active >= e.trigger {
			continue
		}
		needed := e.target - active

		remaining := make([]model.Lead, 0, len(pool))
		for _, l := range pool {
			if _, gone := taken[l.ID]; !gone {
				remaining = append(remaining, l)
			}
		}

		got, assignedIDs, err := e.assignSweep(ctx, remaining, emp, needed)
		if err != nil {
			return nil, err
		}
		for _, id := range assignedIDs {
			taken[id] = struct{}{}
		}

		if got > 0 {
			result.Results = append(result.Results, SweepEntry{
				Employee: emp.Email,
				HadLeads: active,
				Assigned: got,
				NowHas:   active + got,
			})
		}
	}

	zap.L().Info("batch sweep complete",
		zap.String("division", division),
		zap.Int("employees_topped_up", len(result.Results)),
	)
	return result, nil
}

// assignFromPool assigns up to needed leads to emp. A failed conditional
// write means another distributor took the lead; it is skipped, not an error.
func (e *Engine) assignFromPool(ctx context.Context, pool []model.Lead, emp model.Employee, needed int, excludePrevious bool) (int, error) {
	got, _, err := e.assign(ctx, pool, emp, needed, excludePrevious)
	return got, err
}

func (e *Engine) assignSweep(ctx context.Context, pool []model.Lead, emp model.Employee, needed int) (int, []string, error) {
	return e.assign(ctx, pool, emp, needed, true)
}

func (e *Engine) assign(ctx context.Context, pool []model.Lead, emp model.Employee, needed int, excludePrevious bool) (int, []string, error) {
	var assignedIDs []string
	for _, lead := range pool {
		if len(assignedIDs) >= needed {
			break
		}
		if excludePrevious && strings.EqualFold(lead.PreviousEmployee, emp.Email) {
			continue
		}

		ok, err := e.store.AssignLead(ctx, lead.ID, emp)
		if err != nil {
			return len(assignedIDs), assignedIDs, eris.Wrapf(err, "distribution: assign lead %s", lead.ID)
		}
		if !ok {
			// Taken by a concurrent distributor between list and write.
			zap.L().Debug("lead no longer in pool, skipping", zap.String("lead_id", lead.ID))
			continue
		}
		assignedIDs = append(assignedIDs, lead.ID)
	}
	return len(assignedIDs), assignedIDs, nil
}

func (e *Engine) findEmployee(ctx context.Context, email string) (*model.Employee, error) {
	employees, err := e.store.ListEmployees(ctx, store.EmployeeFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "distribution: list employees")
	}
	for i := range employees {
		if strings.EqualFold(employees[i].Email, email) {
			return &employees[i], nil
		}
	}
	return nil, eris.Errorf("distribution: employee %s not found", email)
}

// activeLoad counts the employee's assigned leads that still demand work:
// archived, opportunity, and lost leads do not count.
func activeLoad(leads []model.Lead, email string) int {
	n := 0
	for _, l := range leads {
		if strings.EqualFold(l.AssignedToEmail, email) && l.InActiveLoad() {
			n++
		}
	}
	return n
}

// archiveExcluded applies the sweep exclusion thresholds. Archive counts are
// by category alone, independent of the active-load exclusions.
func archiveExcluded(leads []model.Lead, email string) (bool, string) {
	counts := map[model.ArchiveCategory]int{}
	for _, l := range leads {
		if l.ArchiveCategory != nil && strings.EqualFold(l.AssignedToEmail, email) {
			counts[*l.ArchiveCategory]++
		}
	}
	switch {
	case counts[model.ArchiveProcessed] >= maxArchivedProcessed:
		return true, "archived processed threshold"
	case counts[model.ArchiveAddressPoint] >= maxArchivedAddressPoint:
		return true, "archived address-point threshold"
	case counts[model.ArchiveUnreachable] >= maxArchivedUnreachable:
		return true, "archived unreachable threshold"
	}
	return false, ""
}
