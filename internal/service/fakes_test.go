package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/routing"
	"github.com/spec-kit/grievance-service/internal/trajectory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

type fakeGrievanceRepo struct {
	mu        sync.Mutex
	seq       int
	items     map[string]domain.Grievance
	history   map[string][]domain.HistoryEntry
	mutations int
}

func newFakeGrievanceRepo() *fakeGrievanceRepo {
	return &fakeGrievanceRepo{
		items:   map[string]domain.Grievance{},
		history: map[string][]domain.HistoryEntry{},
	}
}

func (r *fakeGrievanceRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeGrievanceRepo) appendHistory(gid, changedBy string, changes []domain.FieldChange) {
	entry := domain.HistoryEntry{
		ID:          r.nextID("h"),
		GrievanceID: gid,
		ChangedBy:   changedBy,
		ChangeList:  append([]domain.FieldChange(nil), changes...),
	}
	r.history[gid] = append([]domain.HistoryEntry{entry}, r.history[gid]...)
}

func (r *fakeGrievanceRepo) Create(_ context.Context, g *domain.Grievance, changedBy string, changes []domain.FieldChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g.ID == "" {
		g.ID = r.nextID("g")
	}
	r.items[g.ID] = *g
	r.appendHistory(g.ID, changedBy, changes)
	return nil
}

func (r *fakeGrievanceRepo) GetByID(_ context.Context, id string) (*domain.Grievance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &g, nil
}

func (r *fakeGrievanceRepo) GetByReferenceNo(_ context.Context, referenceNo string) (*domain.Grievance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.items {
		if g.ReferenceNo == referenceNo {
			return &g, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeGrievanceRepo) ListWithFilter(_ context.Context, filter repository.GrievanceFilter) ([]domain.Grievance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Grievance
	for _, g := range r.items {
		if filter.CreatedBy != nil && g.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedUserCode != nil && g.AssignedUserCode != *filter.AssignedUserCode {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeGrievanceRepo) Mutate(_ context.Context, id, changedBy string, fn repository.MutateFunc) (*domain.Grievance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	next, changes, err := fn(current)
	if err != nil {
		return nil, err
	}
	r.mutations++
	r.items[id] = next
	if len(changes) > 0 {
		r.appendHistory(id, changedBy, changes)
	}
	return &next, nil
}

func (r *fakeGrievanceRepo) ListByGrievance(_ context.Context, grievanceID string) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.HistoryEntry(nil), r.history[grievanceID]...), nil
}

func (r *fakeGrievanceRepo) put(g domain.Grievance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[g.ID] = g
}

func (r *fakeGrievanceRepo) mutationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutations
}

type fakeUnitRepo struct {
	units []domain.Unit
}

func (r *fakeUnitRepo) GetByID(_ context.Context, id string) (*domain.Unit, error) {
	for _, u := range r.units {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUnitRepo) GetHQ(_ context.Context) (*domain.Unit, error) {
	for _, u := range r.units {
		if u.IsHQ {
			u := u
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUnitRepo) List(_ context.Context) ([]domain.Unit, error) {
	return append([]domain.Unit(nil), r.units...), nil
}

type fakeEmployeeRepo struct {
	mu        sync.Mutex
	employees map[string]domain.Employee
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *domain.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[e.UserCode] = *e
	return nil
}

func (r *fakeEmployeeRepo) GetByUserCode(_ context.Context, userCode string) (*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.employees[userCode]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter repository.EmployeeFilter) ([]domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Employee
	for _, e := range r.employees {
		if filter.UnitID != nil && e.UnitID != *filter.UnitID {
			continue
		}
		if filter.ActiveOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserCode < out[j].UserCode })
	return out, nil
}

type fakeGroupRepo struct {
	mu       sync.Mutex
	groups   []domain.Group
	mappings []domain.GroupMember
	created  int
}

func (r *fakeGroupRepo) Create(_ context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	g.ID = fmt.Sprintf("new-%d", r.created)
	r.groups = append(r.groups, *g)
	return nil
}

func (r *fakeGroupRepo) Update(_ context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.groups {
		if r.groups[i].ID == g.ID {
			r.groups[i] = *g
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeGroupRepo) find(id string) (domain.Group, bool) {
	for _, g := range r.groups {
		if g.ID == id {
			return g, true
		}
	}
	return domain.Group{}, false
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id string) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.find(id)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &g, nil
}

func (r *fakeGroupRepo) List(_ context.Context) ([]domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Group(nil), r.groups...), nil
}

func (r *fakeGroupRepo) FindByKindForUnit(_ context.Context, kind domain.GroupKind, unitID string) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.Kind != kind || !g.IsActive {
			continue
		}
		for _, m := range r.mappings {
			if m.GroupID == g.ID && m.UnitID == unitID {
				g := g
				return &g, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeGroupRepo) withKind(m domain.GroupMember) domain.GroupMember {
	if g, ok := r.find(m.GroupID); ok {
		m.GroupKind = g.Kind
	}
	return m
}

func (r *fakeGroupRepo) Members(_ context.Context, groupID string) ([]domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GroupMember
	for _, m := range r.mappings {
		if m.GroupID == groupID {
			out = append(out, r.withKind(m))
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) MembershipsByUser(_ context.Context, userCode string) ([]domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GroupMember
	for _, m := range r.mappings {
		if m.UserCode == userCode {
			out = append(out, r.withKind(m))
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) MapUser(_ context.Context, member domain.GroupMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.mappings {
		if m.GroupID == member.GroupID && m.UnitID == member.UnitID && m.UserCode == member.UserCode {
			r.mappings[i].Position = member.Position
			return nil
		}
	}
	r.mappings = append(r.mappings, member)
	return nil
}

func (r *fakeGroupRepo) UnmapUser(_ context.Context, groupID, unitID, userCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.mappings {
		if m.GroupID == groupID && m.UnitID == unitID && m.UserCode == userCode {
			r.mappings = append(r.mappings[:i], r.mappings[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type recordedTransition struct {
	kind    string
	outcome string
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedTransition
}

func (r *fakeRecorder) RecordTransition(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedTransition{kind: kind, outcome: outcome})
}

func (r *fakeRecorder) last() recordedTransition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return recordedTransition{}
	}
	return r.records[len(r.records)-1]
}

func ptr(s string) *string { return &s }

// fixture is a two-unit organisation: unit U1 with Nodal Officer N1 and CGM C1, and
// headquarters HQ with HOD H1 whose child department group holds D1.
type fixture struct {
	grievances *fakeGrievanceRepo
	units      *fakeUnitRepo
	employees  *fakeEmployeeRepo
	groups     *fakeGroupRepo
	org        *OrgService
	links      *ResolutionLinks
	recorder   *fakeRecorder
	published  []events.Event
	svc        *GrievanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		grievances: newFakeGrievanceRepo(),
		units: &fakeUnitRepo{units: []domain.Unit{
			{ID: "U1", Code: "U1", Name: "Plant One"},
			{ID: "HQ", Code: "HQ", Name: "Head Office", IsHQ: true},
		}},
		employees: &fakeEmployeeRepo{employees: map[string]domain.Employee{}},
		groups: &fakeGroupRepo{
			groups: []domain.Group{
				{ID: "g-nodal", Name: "Nodal", Kind: domain.GroupKindNodal, IsActive: true},
				{ID: "g-cgm", Name: "CGM", Kind: domain.GroupKindCGM, IsActive: true},
				{ID: "g-hod", Name: "Finance HOD", Kind: domain.GroupKindHOD, Department: "Finance", IsActive: true},
				{ID: "g-child", ParentID: ptr("g-hod"), Name: "Accounts", Kind: domain.GroupKindDepartment, Department: "Finance", IsActive: true},
			},
			mappings: []domain.GroupMember{
				{GroupID: "g-nodal", UnitID: "U1", UserCode: "N1", UserDetails: "Nina (Nodal)", Position: 1},
				{GroupID: "g-cgm", UnitID: "U1", UserCode: "C1", UserDetails: "Carl (CGM)", Position: 1},
				{GroupID: "g-hod", UnitID: "HQ", UserCode: "H1", UserDetails: "Hana (HOD)", Position: 1},
				{GroupID: "g-child", UnitID: "HQ", UserCode: "D1", UserDetails: "Dev (Accountant)", Position: 1},
			},
		},
		links:    NewResolutionLinks("link-secret", "http://grievance.test", time.Hour),
		recorder: &fakeRecorder{},
	}
	for _, e := range []domain.Employee{
		{UserCode: "E1", Name: "Ravi", Designation: "Fitter", UnitID: "U1", Department: "Maintenance", Active: true},
		{UserCode: "R2", Name: "Asha", Designation: "Clerk", UnitID: "U1", Department: "Stores", Active: true},
		{UserCode: "N1", Name: "Nina", Designation: "Nodal", UnitID: "U1", Department: "HR", Active: true},
		{UserCode: "C1", Name: "Carl", Designation: "CGM", UnitID: "U1", Department: "Operations", Active: true},
		{UserCode: "H1", Name: "Hana", Designation: "HOD", UnitID: "HQ", Department: "Finance", Active: true},
		{UserCode: "D1", Name: "Dev", Designation: "Accountant", UnitID: "HQ", Department: "Finance", Active: true},
		{UserCode: "A1", Name: "Root", UnitID: "HQ", IsAdmin: true, Active: true},
		{UserCode: "X9", Name: "Gone", UnitID: "U1", Active: false},
	} {
		f.employees.employees[e.UserCode] = e
	}

	f.org = NewOrgService(OrgDependencies{
		UnitRepo:     f.units,
		GroupRepo:    f.groups,
		EmployeeRepo: f.employees,
	})

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			f.published = append(f.published, event)
			return nil
		})
	}

	f.svc = NewGrievanceService(GrievanceDependencies{
		GrievanceRepo: f.grievances,
		HistoryRepo:   f.grievances,
		EmployeeRepo:  f.employees,
		Org:           f.org,
		Engine:        routing.NewEngine("HQ"),
		Projector:     trajectory.NewProjector(trajectory.DedupLegacy),
		Links:         f.links,
		Dispatcher:    dispatcher,
		Metrics:       f.recorder,
	})
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	seq := 0
	f.svc.reference = func() string {
		seq++
		return fmt.Sprintf("GRV-TEST-%d", seq)
	}
	return f
}

func (f *fixture) principal(t *testing.T, userCode string) *auth.Principal {
	t.Helper()
	e, ok := f.employees.employees[userCode]
	require.True(t, ok, "unknown employee %s", userCode)
	return &auth.Principal{Employee: &e, UnitID: e.UnitID, IsAdmin: e.IsAdmin}
}

func (f *fixture) history(id string) []domain.HistoryEntry {
	entries, _ := f.grievances.ListByGrievance(context.Background(), id)
	return entries
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, code, de.Code, "error: %v", err)
}

func linkToken(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, VerifyPath, parsed.Path)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token, link)
	return token
}
