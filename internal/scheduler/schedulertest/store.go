// Package schedulertest 提供内存中的 scheduler.Store，供其他包的测试构建排班表
package schedulertest

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

var _ scheduler.Store = (*Store)(nil)

// Store 按照仓储层的语义过滤数据，Err 不为 nil 时所有读取都返回 Err
type Store struct {
	mu sync.Mutex

	Employees   []*domain.Employee
	Locations   []string
	Assignments []domain.TeamAssignment
	History     []domain.TeamHistory
	Leaves      []domain.Leave
	Marks       []domain.AbsenceMark
	Overrides   []domain.ShiftOverride
	Rules       []domain.CoverageRule

	Err error
}

func inRange(d, from, to time.Time) bool {
	d = scheduler.Day(d)
	return !d.Before(scheduler.Day(from)) && !d.After(scheduler.Day(to))
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, emp := range s.Employees {
		if emp.ID == id {
			return emp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *Store) GetEmployeesByIDs(ctx context.Context, ids []int64) ([]*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*domain.Employee
	for _, emp := range s.Employees {
		if slices.Contains(ids, emp.ID) {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (s *Store) ListRosterEmployees(ctx context.Context, location string) ([]*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*domain.Employee
	for _, emp := range s.Employees {
		if emp.OnRoster() && (location == "" || emp.HomeLocation == location) {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (s *Store) LocationExists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return slices.Contains(s.Locations, code), nil
}

func (s *Store) ListTeamAssignments(ctx context.Context, ids []int64, until time.Time) ([]domain.TeamAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []domain.TeamAssignment
	for _, a := range s.Assignments {
		if slices.Contains(ids, a.EmployeeID) && !scheduler.Day(a.EffectiveFrom).After(scheduler.Day(until)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListTeamHistory(ctx context.Context, ids []int64, until time.Time) ([]domain.TeamHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []domain.TeamHistory
	for _, h := range s.History {
		if slices.Contains(ids, h.EmployeeID) && !scheduler.Day(h.EffectiveFrom).After(scheduler.Day(until)) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) ListApprovedLeaves(ctx context.Context, ids []int64, from, to time.Time) ([]domain.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []domain.Leave
	for _, l := range s.Leaves {
		if !slices.Contains(ids, l.EmployeeID) || l.Status != domain.LeaveStatusApproved {
			continue
		}
		if scheduler.Day(l.EndDate).Before(scheduler.Day(from)) || scheduler.Day(l.StartDate).After(scheduler.Day(to)) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) ListAbsenceMarks(ctx context.Context, ids []int64, from, to time.Time) ([]domain.AbsenceMark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []domain.AbsenceMark
	for _, m := range s.Marks {
		if slices.Contains(ids, m.EmployeeID) && inRange(m.Date, from, to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListActiveOverrides(ctx context.Context, ids []int64, from, to time.Time) ([]domain.ShiftOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []domain.ShiftOverride
	for _, ov := range s.Overrides {
		if ov.IsActive && slices.Contains(ids, ov.EmployeeID) && inRange(ov.Date, from, to) {
			out = append(out, ov)
		}
	}
	return out, nil
}

func (s *Store) ListGuestOverrides(ctx context.Context, location string, from, to time.Time) ([]domain.ShiftOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	home := make(map[int64]string, len(s.Employees))
	for _, emp := range s.Employees {
		home[emp.ID] = emp.HomeLocation
	}

	var out []domain.ShiftOverride
	for _, ov := range s.Overrides {
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

func (s *Store) CountActiveOverrides(ctx context.Context, ids []int64, from, to time.Time) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[int64]int)
	for _, ov := range s.Overrides {
		if ov.IsActive && slices.Contains(ids, ov.EmployeeID) && inRange(ov.Date, from, to) {
			out[ov.EmployeeID]++
		}
	}
	return out, nil
}

func (s *Store) ListCoverageRules(ctx context.Context) ([]domain.CoverageRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return slices.Clone(s.Rules), nil
}

// Lock 供嵌入 Store 的写操作替身在修改数据时使用
func (s *Store) Lock() {
	s.mu.Lock()
}

func (s *Store) Unlock() {
	s.mu.Unlock()
}

// Employee 构造一个在 DXB 门店在职的员工
func Employee(id int64, name string, team domain.Team, offDay time.Weekday) *domain.Employee {
	return &domain.Employee{
		ID:           id,
		Name:         name,
		WeeklyOffDay: int(offDay),
		DefaultTeam:  team,
		HomeLocation: "DXB",
		IsActive:     true,
	}
}

func MustDate(s string) time.Time {
	d, err := scheduler.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
