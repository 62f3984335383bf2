package scheduler

import (
	"context"
	"database/sql"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

// memStore 内存中的 Store，按照仓储层的语义过滤数据
type memStore struct {
	employees   []*domain.Employee
	locations   []string
	assignments []domain.TeamAssignment
	history     []domain.TeamHistory
	leaves      []domain.Leave
	marks       []domain.AbsenceMark
	overrides   []domain.ShiftOverride
	rules       []domain.CoverageRule

	err   error
	calls map[string]int
}

func (s *memStore) called(name string) error {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
	return s.err
}

func inRange(d, from, to time.Time) bool {
	d = Day(d)
	return !d.Before(Day(from)) && !d.After(Day(to))
}

func (s *memStore) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	if err := s.called("GetEmployee"); err != nil {
		return nil, err
	}
	for _, emp := range s.employees {
		if emp.ID == id {
			return emp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore) GetEmployeesByIDs(ctx context.Context, ids []int64) ([]*domain.Employee, error) {
	if err := s.called("GetEmployeesByIDs"); err != nil {
		return nil, err
	}
	var out []*domain.Employee
	for _, emp := range s.employees {
		if slices.Contains(ids, emp.ID) {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (s *memStore) ListRosterEmployees(ctx context.Context, location string) ([]*domain.Employee, error) {
	if err := s.called("ListRosterEmployees"); err != nil {
		return nil, err
	}
	var out []*domain.Employee
	for _, emp := range s.employees {
		if emp.OnRoster() && (location == "" || emp.HomeLocation == location) {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (s *memStore) LocationExists(ctx context.Context, code string) (bool, error) {
	if err := s.called("LocationExists"); err != nil {
		return false, err
	}
	return slices.Contains(s.locations, code), nil
}

func (s *memStore) ListTeamAssignments(ctx context.Context, ids []int64, until time.Time) ([]domain.TeamAssignment, error) {
	if err := s.called("ListTeamAssignments"); err != nil {
		return nil, err
	}
	var out []domain.TeamAssignment
	for _, a := range s.assignments {
		if slices.Contains(ids, a.EmployeeID) && !Day(a.EffectiveFrom).After(Day(until)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) ListTeamHistory(ctx context.Context, ids []int64, until time.Time) ([]domain.TeamHistory, error) {
	if err := s.called("ListTeamHistory"); err != nil {
		return nil, err
	}
	var out []domain.TeamHistory
	for _, h := range s.history {
		if slices.Contains(ids, h.EmployeeID) && !Day(h.EffectiveFrom).After(Day(until)) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memStore) ListApprovedLeaves(ctx context.Context, ids []int64, from, to time.Time) ([]domain.Leave, error) {
	if err := s.called("ListApprovedLeaves"); err != nil {
		return nil, err
	}
	var out []domain.Leave
	for _, l := range s.leaves {
		if !slices.Contains(ids, l.EmployeeID) || l.Status != domain.LeaveStatusApproved {
			continue
		}
		if Day(l.EndDate).Before(Day(from)) || Day(l.StartDate).After(Day(to)) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *memStore) ListAbsenceMarks(ctx context.Context, ids []int64, from, to time.Time) ([]domain.AbsenceMark, error) {
	if err := s.called("ListAbsenceMarks"); err != nil {
		return nil, err
	}
	var out []domain.AbsenceMark
	for _, m := range s.marks {
		if slices.Contains(ids, m.EmployeeID) && inRange(m.Date, from, to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ListActiveOverrides(ctx context.Context, ids []int64, from, to time.Time) ([]domain.ShiftOverride, error) {
	if err := s.called("ListActiveOverrides"); err != nil {
		return nil, err
	}
	var out []domain.ShiftOverride
	for _, ov := range s.overrides {
		if ov.IsActive && slices.Contains(ids, ov.EmployeeID) && inRange(ov.Date, from, to) {
			out = append(out, ov)
		}
	}
	return out, nil
}

func (s *memStore) ListGuestOverrides(ctx context.Context, location string, from, to time.Time) ([]domain.ShiftOverride, error) {
	if err := s.called("ListGuestOverrides"); err != nil {
		return nil, err
	}
	home := make(map[int64]string, len(s.employees))
	for _, emp := range s.employees {
		home[emp.ID] = emp.HomeLocation
	}

	var out []domain.ShiftOverride
	for _, ov := range s.overrides {
		if !ov.IsActive || ov.Location != location || home[ov.EmployeeID] == location {
			continue
		}
		if ov.Shift != domain.ShiftMorning && ov.Shift != domain.ShiftEvening {
			continue
		}
		if inRange(ov.Date, from, to) {
			out = append(out, ov)
		}
	}
	return out, nil
}

func (s *memStore) CountActiveOverrides(ctx context.Context, ids []int64, from, to time.Time) (map[int64]int, error) {
	if err := s.called("CountActiveOverrides"); err != nil {
		return nil, err
	}
	out := make(map[int64]int)
	for _, ov := range s.overrides {
		if ov.IsActive && slices.Contains(ids, ov.EmployeeID) && inRange(ov.Date, from, to) {
			out[ov.EmployeeID]++
		}
	}
	return out, nil
}

func (s *memStore) ListCoverageRules(ctx context.Context) ([]domain.CoverageRule, error) {
	if err := s.called("ListCoverageRules"); err != nil {
		return nil, err
	}
	return s.rules, nil
}

// fakeCache 记录调用次数的 ValidationCache
type fakeCache struct {
	entries     map[string][]ValidationResult
	loads       int
	invalidated []string
}

func (c *fakeCache) key(date time.Time, scope string) string {
	return DateKey(date) + ":" + scope
}

func (c *fakeCache) GetOrLoad(ctx context.Context, date time.Time, scope string, load func(ctx context.Context) ([]ValidationResult, error)) ([]ValidationResult, error) {
	if c.entries == nil {
		c.entries = make(map[string][]ValidationResult)
	}
	if v, ok := c.entries[c.key(date, scope)]; ok {
		return v, nil
	}
	c.loads++
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.entries[c.key(date, scope)] = v
	return v, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, date time.Time, scopes ...string) error {
	for _, scope := range scopes {
		delete(c.entries, c.key(date, scope))
		c.invalidated = append(c.invalidated, c.key(date, scope))
	}
	return nil
}

func (c *fakeCache) InvalidateAll(ctx context.Context) error {
	c.entries = nil
	return nil
}

func mustDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestEngine(t *testing.T, store Store, cache ValidationCache) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig(), store, cache)
	require.NoError(t, err)
	return e
}

func employee(id int64, name string, team domain.Team, offDay time.Weekday) *domain.Employee {
	return &domain.Employee{
		ID:           id,
		Name:         name,
		WeeklyOffDay: int(offDay),
		DefaultTeam:  team,
		HomeLocation: "DXB",
		IsActive:     true,
	}
}

func override(id, employeeID int64, date string, shift domain.Shift) domain.ShiftOverride {
	return domain.ShiftOverride{
		ID:         id,
		EmployeeID: employeeID,
		Date:       mustDate(date),
		Shift:      shift,
		IsActive:   true,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
