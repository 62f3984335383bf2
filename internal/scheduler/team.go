package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

type datedTeam struct {
	id   int64
	team domain.Team
	from time.Time
}

// TeamTimeline 某员工的班组时间线，构建后不再修改
type TeamTimeline struct {
	defaultTeam domain.Team
	assignments []datedTeam // 按生效日期升序
	history     []datedTeam
}

func sortDatedTeams(ts []datedTeam) {
	// 同一天生效的多条记录，以后写入（ID 更大）的为准
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].from.Equal(ts[j].from) {
			return ts[i].from.Before(ts[j].from)
		}
		return ts[i].id < ts[j].id
	})
}

func latestAt(ts []datedTeam, date time.Time) (domain.Team, bool) {
	// 找到最后一条 from <= date 的记录
	i := sort.Search(len(ts), func(i int) bool { return ts[i].from.After(date) })
	if i == 0 {
		return "", false
	}
	return ts[i-1].team, true
}

// At 返回员工在 date 当天所在的班组
func (tl TeamTimeline) At(date time.Time) domain.Team {
	date = Day(date)
	if team, ok := latestAt(tl.assignments, date); ok {
		return team
	}
	if team, ok := latestAt(tl.history, date); ok {
		return team
	}
	return tl.defaultTeam
}

// ChangesWithin 在 (from, to] 之间是否有新的班组变更生效
func (tl TeamTimeline) ChangesWithin(from, to time.Time) bool {
	from, to = Day(from), Day(to)
	for _, ts := range [][]datedTeam{tl.assignments, tl.history} {
		for _, t := range ts {
			if t.from.After(from) && !t.from.After(to) {
				return true
			}
		}
	}
	return false
}

// TeamTimelines employeeID -> 时间线，一次排班表构建只生成一次
type TeamTimelines map[int64]TeamTimeline

// BuildTeamTimelines 把批量查询得到的班组记录整理成每个员工的时间线
func BuildTeamTimelines(emps []*domain.Employee, assignments []domain.TeamAssignment, history []domain.TeamHistory) (TeamTimelines, error) {
	timelines := make(TeamTimelines, len(emps))
	for _, emp := range emps {
		if !emp.DefaultTeam.Valid() {
			return nil, fmt.Errorf("%w: 员工 %d 的默认班组 %q 无效", ErrInvalidInput, emp.ID, emp.DefaultTeam)
		}
		timelines[emp.ID] = TeamTimeline{defaultTeam: emp.DefaultTeam}
	}

	for _, a := range assignments {
		tl, ok := timelines[a.EmployeeID]
		if !ok {
			continue
		}
		if !a.Team.Valid() {
			return nil, fmt.Errorf("%w: 班组变更记录 %d 的班组 %q 无效", ErrInvalidInput, a.ID, a.Team)
		}
		tl.assignments = append(tl.assignments, datedTeam{id: a.ID, team: a.Team, from: Day(a.EffectiveFrom)})
		timelines[a.EmployeeID] = tl
	}

	for _, h := range history {
		tl, ok := timelines[h.EmployeeID]
		if !ok {
			continue
		}
		if !h.Team.Valid() {
			return nil, fmt.Errorf("%w: 历史班组记录 %d 的班组 %q 无效", ErrInvalidInput, h.ID, h.Team)
		}
		tl.history = append(tl.history, datedTeam{id: h.ID, team: h.Team, from: Day(h.EffectiveFrom)})
		timelines[h.EmployeeID] = tl
	}

	for id, tl := range timelines {
		sortDatedTeams(tl.assignments)
		sortDatedTeams(tl.history)
		timelines[id] = tl
	}

	return timelines, nil
}

// loadTeamTimelines 批量读取一组员工截至 until 的所有班组记录
func (e *Engine) loadTeamTimelines(ctx context.Context, emps []*domain.Employee, until time.Time) (TeamTimelines, error) {
	ids := employeeIDs(emps)

	assignments, err := e.store.ListTeamAssignments(ctx, ids, until)
	if err != nil {
		return nil, err
	}
	history, err := e.store.ListTeamHistory(ctx, ids, until)
	if err != nil {
		return nil, err
	}

	return BuildTeamTimelines(emps, assignments, history)
}

// ResolveTeam 返回员工在 date 当天的有效班组
func (e *Engine) ResolveTeam(ctx context.Context, employeeID int64, date time.Time) (domain.Team, error) {
	emp, err := e.employee(ctx, employeeID)
	if err != nil {
		return "", err
	}

	date = Day(date)
	timelines, err := e.loadTeamTimelines(ctx, []*domain.Employee{emp}, date)
	if err != nil {
		return "", err
	}

	return timelines[emp.ID].At(date), nil
}

func employeeIDs(emps []*domain.Employee) []int64 {
	ids := make([]int64, len(emps))
	for i, emp := range emps {
		ids[i] = emp.ID
	}
	return ids
}
