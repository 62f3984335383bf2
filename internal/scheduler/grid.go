package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

const DaysPerWeek = 7

// Filters 排班表的筛选条件，零值表示不筛选
type Filters struct {
	EmployeeID       *int64       `json:"employeeID,omitempty"`
	Team             *domain.Team `json:"team,omitempty"`
	LocationScope    string       `json:"locationScope,omitempty"`
	IncludeGuestRows bool         `json:"includeGuestRows,omitempty"`
}

// Cell 某员工某天的排班结果
type Cell struct {
	Date           time.Time           `json:"date"`
	Availability   domain.Availability `json:"availabilityStatus"`
	BaseShift      domain.Shift        `json:"baseShift"`
	EffectiveShift domain.Shift        `json:"effectiveShift"`
	OverrideID     *int64              `json:"overrideID"`
	Guest          bool                `json:"guest,omitempty"`  // 外店员工来本店支援的班次
	AwayAt         string              `json:"awayAt,omitempty"` // 当天被调去其他门店上班
	Team           domain.Team         `json:"team,omitempty"`
}

type Row struct {
	EmployeeID int64       `json:"employeeID"`
	Name       string      `json:"name"`
	Team       domain.Team `json:"team"` // 本周第一天所在的班组
	Guest      bool        `json:"guest,omitempty"`
	Cells      []Cell      `json:"cells"`

	sortKey string
}

type WarningKind string

const (
	// 特殊日出现了早班（只可能来自手动调班）
	WarningSpecialDayAM WarningKind = "SPECIAL_DAY_AM"
	// 调班落在了不上班的日子，不会生效
	WarningOverrideIgnored WarningKind = "OVERRIDE_IGNORED"
)

// IntegrityWarning 已有数据中的不一致，只作为输出数据，不会中断构建
type IntegrityWarning struct {
	Kind       WarningKind `json:"kind"`
	EmployeeID int64       `json:"employeeID"`
	Date       time.Time   `json:"date"`
	OverrideID *int64      `json:"overrideID"`
	Message    string      `json:"message"`
}

// Grid 一周的排班表，是所有视图、校验和建议的唯一数据来源
type Grid struct {
	WeekStart time.Time              `json:"weekStart"`
	Days      []time.Time            `json:"days"`
	Rows      []Row                  `json:"rows"`
	Counts    []DayCounts            `json:"counts"`
	Rules     []*domain.CoverageRule `json:"rules"` // 每天生效的排班规则，没有启用的规则时为 nil
	Warnings  []IntegrityWarning     `json:"warnings"`
	Filters   Filters                `json:"filters"`

	cfg Config
}

// DayIndex 返回 date 在本周中的下标，不在本周时返回 -1
func (g *Grid) DayIndex(date time.Time) int {
	i := daysBetween(g.WeekStart, Day(date))
	if i < 0 || i >= len(g.Days) {
		return -1
	}
	return i
}

// Cells 返回第 i 天所有行的格子
func (g *Grid) Cells(i int) []Cell {
	cells := make([]Cell, 0, len(g.Rows))
	for _, row := range g.Rows {
		cells = append(cells, row.Cells[i])
	}
	return cells
}

// gridInput 一次构建所需的全部数据，全部批量读取
type gridInput struct {
	members   []*domain.Employee
	guests    []*domain.Employee
	timelines TeamTimelines
	leaves    map[int64][]domain.Leave
	marks     map[int64][]domain.AbsenceMark
	overrides map[int64]map[string]*domain.ShiftOverride // employeeID -> 日期 -> 调班
	guestOvs  map[int64]map[string]*domain.ShiftOverride
	rules     map[int]*domain.CoverageRule
}

// BuildGrid 构建 weekStart 所在周的排班表，要么完整成功，要么返回错误
func (e *Engine) BuildGrid(ctx context.Context, weekStart time.Time, f Filters) (*Grid, error) {
	if err := e.checkFilters(ctx, f); err != nil {
		return nil, err
	}

	start := e.cfg.WeekStartOf(weekStart)
	end := start.AddDate(0, 0, DaysPerWeek-1)

	in, err := e.loadGridInput(ctx, start, end, f)
	if err != nil {
		return nil, err
	}

	return buildGrid(e.cfg, start, f, in), nil
}

func (e *Engine) checkFilters(ctx context.Context, f Filters) error {
	if f.Team != nil && !f.Team.Valid() {
		return fmt.Errorf("%w: 未知的班组 %q", ErrInvalidInput, *f.Team)
	}

	if f.LocationScope != "" {
		exists, err := e.store.LocationExists(ctx, f.LocationScope)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: 未知的门店 %q", ErrInvalidInput, f.LocationScope)
		}
	}

	return nil
}

func (e *Engine) loadGridInput(ctx context.Context, start, end time.Time, f Filters) (*gridInput, error) {
	var members []*domain.Employee

	if f.EmployeeID != nil {
		emp, err := e.employee(ctx, *f.EmployeeID)
		if err != nil {
			return nil, err
		}
		if emp.OnRoster() && (f.LocationScope == "" || emp.HomeLocation == f.LocationScope) {
			members = append(members, emp)
		}
	} else {
		emps, err := e.store.ListRosterEmployees(ctx, f.LocationScope)
		if err != nil {
			return nil, err
		}
		for _, emp := range emps {
			if !emp.OnRoster() {
				continue
			}
			if err := checkEmployee(emp); err != nil {
				return nil, err
			}
			members = append(members, emp)
		}
	}

	in := &gridInput{members: members}

	// 外店支援只在指定门店、且不按单个员工筛选时才有意义
	var guestOverrides []domain.ShiftOverride
	if f.LocationScope != "" && f.EmployeeID == nil {
		ovs, err := e.store.ListGuestOverrides(ctx, f.LocationScope, start, end)
		if err != nil {
			return nil, err
		}

		memberIDs := make(map[int64]bool, len(members))
		for _, m := range members {
			memberIDs[m.ID] = true
		}

		var guestIDs []int64
		seen := map[int64]bool{}
		for _, ov := range ovs {
			if memberIDs[ov.EmployeeID] || !ov.IsActive {
				continue
			}
			if ov.Shift != domain.ShiftMorning && ov.Shift != domain.ShiftEvening {
				continue
			}
			guestOverrides = append(guestOverrides, ov)
			if !seen[ov.EmployeeID] {
				seen[ov.EmployeeID] = true
				guestIDs = append(guestIDs, ov.EmployeeID)
			}
		}

		if len(guestIDs) > 0 {
			emps, err := e.store.GetEmployeesByIDs(ctx, guestIDs)
			if err != nil {
				return nil, err
			}
			for _, emp := range emps {
				if !emp.OnRoster() || emp.HomeLocation == f.LocationScope {
					continue
				}
				if err := checkEmployee(emp); err != nil {
					return nil, err
				}
				in.guests = append(in.guests, emp)
			}
		}
	}

	all := append(append([]*domain.Employee{}, in.members...), in.guests...)
	ids := employeeIDs(all)

	timelines, err := e.loadTeamTimelines(ctx, all, end)
	if err != nil {
		return nil, err
	}
	in.timelines = timelines

	leaves, err := e.store.ListApprovedLeaves(ctx, ids, start, end)
	if err != nil {
		return nil, err
	}
	in.leaves = make(map[int64][]domain.Leave)
	for _, l := range leaves {
		in.leaves[l.EmployeeID] = append(in.leaves[l.EmployeeID], l)
	}

	marks, err := e.store.ListAbsenceMarks(ctx, ids, start, end)
	if err != nil {
		return nil, err
	}
	in.marks = make(map[int64][]domain.AbsenceMark)
	for _, m := range marks {
		in.marks[m.EmployeeID] = append(in.marks[m.EmployeeID], m)
	}

	overrides, err := e.store.ListActiveOverrides(ctx, employeeIDs(in.members), start, end)
	if err != nil {
		return nil, err
	}
	in.overrides = indexOverrides(overrides)
	in.guestOvs = indexOverrides(guestOverrides)

	rules, err := e.store.ListCoverageRules(ctx)
	if err != nil {
		return nil, err
	}
	in.rules = indexRules(rules)

	return in, nil
}

func indexOverrides(ovs []domain.ShiftOverride) map[int64]map[string]*domain.ShiftOverride {
	idx := make(map[int64]map[string]*domain.ShiftOverride)
	for i := range ovs {
		ov := &ovs[i]
		if !ov.IsActive {
			continue
		}
		if _, exists := idx[ov.EmployeeID]; !exists {
			idx[ov.EmployeeID] = make(map[string]*domain.ShiftOverride)
		}
		key := DateKey(ov.Date)
		// 理论上同一天只有一条有效调班，出现多条时以 ID 最大的为准
		if cur, exists := idx[ov.EmployeeID][key]; !exists || ov.ID > cur.ID {
			idx[ov.EmployeeID][key] = ov
		}
	}
	return idx
}

func indexRules(rules []domain.CoverageRule) map[int]*domain.CoverageRule {
	idx := make(map[int]*domain.CoverageRule)
	for i := range rules {
		r := &rules[i]
		if !r.Enabled {
			continue
		}
		if cur, exists := idx[r.DayOfWeek]; !exists || r.ID > cur.ID {
			idx[r.DayOfWeek] = r
		}
	}
	return idx
}

func buildGrid(cfg Config, start time.Time, f Filters, in *gridInput) *Grid {
	g := &Grid{
		WeekStart: start,
		Days:      make([]time.Time, DaysPerWeek),
		Counts:    make([]DayCounts, DaysPerWeek),
		Rules:     make([]*domain.CoverageRule, DaysPerWeek),
		Warnings:  []IntegrityWarning{},
		Filters:   f,
		cfg:       cfg,
	}
	end := start.AddDate(0, 0, DaysPerWeek-1)
	for i := range g.Days {
		g.Days[i] = start.AddDate(0, 0, i)
		g.Rules[i] = in.rules[int(g.Days[i].Weekday())]
	}

	members := make([]Row, 0, len(in.members))
	for _, emp := range in.members {
		row := buildRow(cfg, g.Days, emp, in, f.LocationScope, end)
		if f.Team != nil && row.Team != *f.Team {
			continue
		}
		members = append(members, row)
	}

	guests := make([]Row, 0, len(in.guests))
	for _, emp := range in.guests {
		row := buildGuestRow(cfg, g.Days, emp, in, f.LocationScope)
		if f.Team != nil && row.Team != *f.Team {
			continue
		}
		guests = append(guests, row)
	}

	sortRows(members)
	sortRows(guests)

	for i := range g.Days {
		cells := make([]Cell, 0, len(members)+len(guests))
		for _, row := range members {
			cells = append(cells, row.Cells[i])
		}
		for _, row := range guests {
			cells = append(cells, row.Cells[i])
		}
		g.Counts[i] = CountDay(cells)
	}

	g.Rows = members
	if f.IncludeGuestRows {
		g.Rows = append(g.Rows, guests...)
	}

	for _, row := range append(append([]Row{}, members...), guests...) {
		for _, cell := range row.Cells {
			if w, ok := integrityWarning(cfg, row, cell); ok {
				g.Warnings = append(g.Warnings, w)
				slog.Warn("排班数据存在不一致", "kind", w.Kind, "employeeID", w.EmployeeID, "date", DateKey(w.Date), "message", w.Message)
			}
		}
	}

	return g
}

func buildRow(cfg Config, days []time.Time, emp *domain.Employee, in *gridInput, scope string, end time.Time) Row {
	tl := in.timelines[emp.ID]
	weekTeam := tl.At(days[0])
	// 班组变更很少，只有本周内有变更生效时才逐天计算
	perDay := tl.ChangesWithin(days[0], end)

	row := Row{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Team:       weekTeam,
		Cells:      make([]Cell, len(days)),
		sortKey:    nameKey(emp.Name),
	}

	for i, d := range days {
		team := weekTeam
		if perDay {
			team = tl.At(d)
		}

		cell := Cell{
			Date:         d,
			Availability: ResolveAvailability(emp, d, in.leaves[emp.ID], in.marks[emp.ID], scope),
			BaseShift:    domain.ShiftNone,
			Team:         team,
		}
		if cell.Availability == domain.AvailabilityWork {
			cell.BaseShift = BaseShift(cfg, team, d)
		}

		ov := in.overrides[emp.ID][DateKey(d)]
		if ov != nil {
			id := ov.ID
			cell.OverrideID = &id
		}

		// 在本店视图中，被调去其他门店的那天不算本店的班次
		if ov != nil && scope != "" && ov.Location != "" && ov.Location != scope {
			cell.EffectiveShift = domain.ShiftNone
			if cell.Availability == domain.AvailabilityWork {
				cell.AwayAt = ov.Location
			}
		} else {
			cell.EffectiveShift = EffectiveShift(cell.Availability, cell.BaseShift, ov)
		}

		row.Cells[i] = cell
	}

	return row
}

func buildGuestRow(cfg Config, days []time.Time, emp *domain.Employee, in *gridInput, scope string) Row {
	tl := in.timelines[emp.ID]

	row := Row{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Team:       tl.At(days[0]),
		Guest:      true,
		Cells:      make([]Cell, len(days)),
		sortKey:    nameKey(emp.Name),
	}

	for i, d := range days {
		cell := Cell{
			Date:           d,
			Availability:   ResolveAvailability(emp, d, in.leaves[emp.ID], in.marks[emp.ID], scope),
			BaseShift:      domain.ShiftNone, // 外店员工不参与本店轮换
			EffectiveShift: domain.ShiftNone,
			Team:           tl.At(d),
		}

		if ov := in.guestOvs[emp.ID][DateKey(d)]; ov != nil {
			id := ov.ID
			cell.OverrideID = &id
			cell.EffectiveShift = EffectiveShift(cell.Availability, cell.BaseShift, ov)
			cell.Guest = cell.EffectiveShift != domain.ShiftNone
		}

		row.Cells[i] = cell
	}

	return row
}

// sortRows A 组在前，然后按姓名、员工 ID 排序，保证相同输入得到相同顺序
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Team != b.Team {
			return a.Team == domain.TeamA
		}
		if a.sortKey != b.sortKey {
			return a.sortKey < b.sortKey
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.EmployeeID < b.EmployeeID
	})
}

func integrityWarning(cfg Config, row Row, cell Cell) (IntegrityWarning, bool) {
	if cell.OverrideID == nil {
		return IntegrityWarning{}, false
	}

	w := IntegrityWarning{
		EmployeeID: row.EmployeeID,
		Date:       cell.Date,
		OverrideID: cell.OverrideID,
	}

	switch {
	case cell.Availability != domain.AvailabilityWork:
		w.Kind = WarningOverrideIgnored
		w.Message = fmt.Sprintf("%s 在 %s 的出勤状态为 %s，调班不生效", row.Name, DateKey(cell.Date), cell.Availability)
	case cell.EffectiveShift == domain.ShiftMorning && cfg.IsSpecialDay(cell.Date):
		w.Kind = WarningSpecialDayAM
		w.Message = fmt.Sprintf("%s 在 %s 被调为早班，但当天只允许晚班", row.Name, DateKey(cell.Date))
	default:
		return IntegrityWarning{}, false
	}

	return w, true
}
