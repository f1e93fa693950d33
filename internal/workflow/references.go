package workflow

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/grievance-service/internal/api/dto"
)

// ReferenceSource loads the reference lists.
type ReferenceSource interface {
	Units(ctx context.Context) ([]dto.UnitResponse, error)
	Employees(ctx context.Context, unitID string) ([]dto.EmployeeResponse, error)
}

// References is a read-only snapshot of units and employees. It only changes through
// Refresh and Clear.
type References struct {
	source ReferenceSource
	now    func() time.Time

	mu        sync.RWMutex
	unitID    string
	units     []dto.UnitResponse
	employees []dto.EmployeeResponse
	loadedAt  time.Time
}

// NewReferences builds an empty cache.
func NewReferences(source ReferenceSource) *References {
	return &References{source: source, now: time.Now}
}

// Refresh reloads both lists for unitID. The previous snapshot stays in place on error.
func (r *References) Refresh(ctx context.Context, unitID string) error {
	var (
		units     []dto.UnitResponse
		employees []dto.EmployeeResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		units, err = r.source.Units(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		employees, err = r.source.Employees(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.unitID = unitID
	r.units = units
	r.employees = employees
	r.loadedAt = r.now()
	return nil
}

// Clear drops the snapshot.
func (r *References) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unitID = ""
	r.units = nil
	r.employees = nil
	r.loadedAt = time.Time{}
}

// UnitID is the unit the snapshot was loaded for.
func (r *References) UnitID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unitID
}

// LoadedAt is zero until the first successful Refresh.
func (r *References) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// Units returns a copy of the unit list.
func (r *References) Units() []dto.UnitResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]dto.UnitResponse(nil), r.units...)
}

// Employees returns a copy of the employee list.
func (r *References) Employees() []dto.EmployeeResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]dto.EmployeeResponse(nil), r.employees...)
}

// Employee looks up one employee by user code.
func (r *References) Employee(userCode string) (dto.EmployeeResponse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.employees {
		if e.UserCode == userCode {
			return e, true
		}
	}
	return dto.EmployeeResponse{}, false
}

// UnitEmployees lists the employees of one unit.
func (r *References) UnitEmployees(unitID string) []dto.EmployeeResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]dto.EmployeeResponse, 0)
	for _, e := range r.employees {
		if e.UnitID == unitID {
			out = append(out, e)
		}
	}
	return out
}
