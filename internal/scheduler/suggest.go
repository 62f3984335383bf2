package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

type SuggestionType string

const (
	SuggestionMove           SuggestionType = "MOVE"
	SuggestionSwap           SuggestionType = "SWAP"
	SuggestionRemoveCoverage SuggestionType = "REMOVE_COVERAGE"
	SuggestionAssign         SuggestionType = "ASSIGN"
)

// Change 采纳建议时需要写入的一条调班，OverrideID 是计算建议时该格子上的有效调班
type Change struct {
	EmployeeID int64        `json:"employeeID"`
	Date       time.Time    `json:"date"`
	From       domain.Shift `json:"from"`
	To         domain.Shift `json:"to"`
	OverrideID *int64       `json:"overrideID"`
}

// Suggestion 只是建议，引擎不会保存也不会自动采纳
type Suggestion struct {
	ID                string         `json:"id"`
	Type              SuggestionType `json:"type"`
	Cause             ValidationType `json:"cause"`
	Date              time.Time      `json:"date"`
	AffectedEmployees []int64        `json:"affectedEmployees"`
	BeforeCounts      DayCounts      `json:"beforeCounts"`
	AfterCounts       DayCounts      `json:"afterCounts"`
	Reason            string         `json:"reason"`
	HighlightKeys     []string       `json:"highlightKeys"`
	Changes           []Change       `json:"changes"`
}

// Fairness 员工在某个自然月内的有效调班次数，key 为 YYYY-MM
type Fairness map[string]map[int64]int

func (f Fairness) count(date time.Time, employeeID int64) int {
	return f[date.Format(MonthLayout)][employeeID]
}

var suggestionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("boutique-shift/suggestion"))

// suggestionID 相同的调整总是得到相同的 ID，方便调用方自行记录忽略过的建议
func suggestionID(t SuggestionType, date time.Time, changes []Change) string {
	key := fmt.Sprintf("%s|%s", t, DateKey(date))
	for _, c := range changes {
		key += fmt.Sprintf("|%d:%s>%s", c.EmployeeID, c.From, c.To)
	}
	return uuid.NewSHA1(suggestionNamespace, []byte(key)).String()
}

func HighlightKey(employeeID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", employeeID, DateKey(date))
}

var shiftNames = map[domain.Shift]string{
	domain.ShiftNone:       "休息",
	domain.ShiftMorning:    "早班",
	domain.ShiftEvening:    "晚班",
	domain.ShiftCoverExtAM: "外派早班",
	domain.ShiftCoverExtPM: "外派晚班",
}

type candidate struct {
	row  Row
	cell Cell
}

type daySuggester struct {
	grid     *Grid
	fairness Fairness
	i        int
	date     time.Time
	counts   DayCounts
	mins     Minimums
	used     map[int64]bool
}

// candidates 当天满足条件的本店员工，按当月调班次数从少到多排列，次数相同按行顺序
func (ds *daySuggester) candidates(match func(Cell) bool) []candidate {
	var cs []candidate
	for _, row := range ds.grid.Rows {
		if row.Guest || ds.used[row.EmployeeID] {
			continue
		}
		cell := row.Cells[ds.i]
		if cell.Availability != domain.AvailabilityWork || cell.AwayAt != "" || !match(cell) {
			continue
		}
		cs = append(cs, candidate{row: row, cell: cell})
	}

	sort.SliceStable(cs, func(a, b int) bool {
		return ds.fairness.count(ds.date, cs[a].row.EmployeeID) < ds.fairness.count(ds.date, cs[b].row.EmployeeID)
	})
	return cs
}

func shiftIs(s domain.Shift) func(Cell) bool {
	return func(c Cell) bool { return c.EffectiveShift == s }
}

func (ds *daySuggester) propose(t SuggestionType, cause ValidationType, c candidate, to domain.Shift, after DayCounts) *Suggestion {
	change := Change{
		EmployeeID: c.row.EmployeeID,
		Date:       ds.date,
		From:       c.cell.EffectiveShift,
		To:         to,
		OverrideID: c.cell.OverrideID,
	}
	changes := []Change{change}

	return &Suggestion{
		ID:                suggestionID(t, ds.date, changes),
		Type:              t,
		Cause:             cause,
		Date:              ds.date,
		AffectedEmployees: []int64{c.row.EmployeeID},
		BeforeCounts:      ds.counts,
		AfterCounts:       after,
		Reason: fmt.Sprintf("将 %s 在 %s 的%s改为%s：早班 %d→%d，晚班 %d→%d，外派早班 %d→%d，外派晚班 %d→%d",
			c.row.Name, DateKey(ds.date), shiftNames[change.From], shiftNames[to],
			ds.counts.AM, after.AM, ds.counts.PM, after.PM,
			ds.counts.ExternalAM, after.ExternalAM, ds.counts.ExternalPM, after.ExternalPM),
		HighlightKeys: []string{HighlightKey(c.row.EmployeeID, ds.date)},
		Changes:       changes,
	}
}

// moveMorningToEvening 调一名早班到晚班，要求调整后早班不低于下限且不再多于晚班
func (ds *daySuggester) moveMorningToEvening() *Suggestion {
	after := ds.counts
	after.AM--
	after.PM++
	if after.AM < ds.mins.AM || after.AM > after.PM {
		return nil
	}

	cs := ds.candidates(shiftIs(domain.ShiftMorning))
	if len(cs) == 0 {
		return nil
	}
	return ds.propose(SuggestionMove, ValidationAMExceedsPM, cs[0], domain.ShiftEvening, after)
}

// reclaimCoverage 取消一名外派支援，改回本店对应的班次
func (ds *daySuggester) reclaimCoverage(cause ValidationType, from domain.Shift) *Suggestion {
	cs := ds.candidates(shiftIs(from))
	if len(cs) == 0 {
		return nil
	}

	after := ds.counts
	var to domain.Shift
	switch from {
	case domain.ShiftCoverExtAM:
		after.ExternalAM--
		after.AM++
		to = domain.ShiftMorning
	case domain.ShiftCoverExtPM:
		after.ExternalPM--
		after.PM++
		to = domain.ShiftEvening
	default:
		return nil
	}

	if (cause == ValidationAMExceedsPM || to == domain.ShiftMorning) && after.AM > after.PM {
		return nil
	}
	return ds.propose(SuggestionRemoveCoverage, cause, cs[0], to, after)
}

// assignIdle 当天上班但被调成休息的员工，安排到 to 班次
func (ds *daySuggester) assignIdle(cause ValidationType, to domain.Shift) *Suggestion {
	cs := ds.candidates(shiftIs(domain.ShiftNone))
	if len(cs) == 0 {
		return nil
	}

	after := ds.counts
	switch to {
	case domain.ShiftMorning:
		after.AM++
	case domain.ShiftEvening:
		after.PM++
	default:
		return nil
	}

	// 补早班不能让早班多于晚班
	if to == domain.ShiftMorning && after.AM > after.PM {
		return nil
	}
	return ds.propose(SuggestionAssign, cause, cs[0], to, after)
}

// specialDayMove 特殊日的早班无条件调到晚班
func (ds *daySuggester) specialDayMove() *Suggestion {
	cs := ds.candidates(shiftIs(domain.ShiftMorning))
	if len(cs) == 0 {
		return nil
	}

	after := ds.counts
	after.AM--
	after.PM++
	return ds.propose(SuggestionMove, ValidationSpecialDayAMPresent, cs[0], domain.ShiftEvening, after)
}

func (ds *daySuggester) suggest() []Suggestion {
	has := map[ValidationType]bool{}
	for _, v := range ds.grid.ValidateDay(ds.i) {
		has[v.Type] = true
	}

	out := []Suggestion{}
	emit := func(s *Suggestion) {
		if s == nil {
			return
		}
		for _, id := range s.AffectedEmployees {
			ds.used[id] = true
		}
		out = append(out, *s)
	}

	// 每个根因最多给出一条建议，按优先级依次尝试。
	// 晚班不足是警告，早班不足只是提示，两者争用同一个空闲员工时先补晚班
	if has[ValidationAMExceedsPM] {
		s := ds.moveMorningToEvening()
		if s == nil {
			s = ds.reclaimCoverage(ValidationAMExceedsPM, domain.ShiftCoverExtPM)
		}
		emit(s)
	}
	if has[ValidationMinPM] {
		s := ds.reclaimCoverage(ValidationMinPM, domain.ShiftCoverExtPM)
		if s == nil {
			s = ds.assignIdle(ValidationMinPM, domain.ShiftEvening)
		}
		emit(s)
	}
	if has[ValidationMinAM] {
		s := ds.reclaimCoverage(ValidationMinAM, domain.ShiftCoverExtAM)
		if s == nil {
			s = ds.assignIdle(ValidationMinAM, domain.ShiftMorning)
		}
		emit(s)
	}
	if has[ValidationSpecialDayAMPresent] {
		emit(ds.specialDayMove())
	}

	return out
}

// Suggest 根据排班表给出调整建议，不会修改排班表
func Suggest(g *Grid, fairness Fairness) []Suggestion {
	out := []Suggestion{}
	for i := range g.Days {
		ds := &daySuggester{
			grid:     g,
			fairness: fairness,
			i:        i,
			date:     g.Days[i],
			counts:   g.Counts[i],
			mins:     EffectiveMinimums(g.cfg, g.Days[i], g.Rules[i]),
			used:     map[int64]bool{},
		}
		out = append(out, ds.suggest()...)
	}
	return out
}

// Suggestions 每次调用都基于最新数据重新计算
func (e *Engine) Suggestions(ctx context.Context, weekStart time.Time, f Filters) (*Grid, []Suggestion, error) {
	g, err := e.BuildGrid(ctx, weekStart, f)
	if err != nil {
		return nil, nil, err
	}

	fairness, err := e.loadFairness(ctx, g)
	if err != nil {
		return nil, nil, err
	}

	return g, Suggest(g, fairness), nil
}

func (e *Engine) loadFairness(ctx context.Context, g *Grid) (Fairness, error) {
	ids := make([]int64, 0, len(g.Rows))
	for _, row := range g.Rows {
		if !row.Guest {
			ids = append(ids, row.EmployeeID)
		}
	}

	fairness := Fairness{}
	if len(ids) == 0 {
		return fairness, nil
	}

	for _, d := range g.Days {
		key := d.Format(MonthLayout)
		if _, exists := fairness[key]; exists {
			continue
		}
		first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)

		counts, err := e.store.CountActiveOverrides(ctx, ids, first, last)
		if err != nil {
			return nil, err
		}
		if counts == nil {
			counts = map[int64]int{}
		}
		fairness[key] = counts
	}

	return fairness, nil
}

// FindSuggestion 基于当前数据重新计算，确认建议依然成立；写入前必须调用
func (e *Engine) FindSuggestion(ctx context.Context, weekStart time.Time, f Filters, id string) (*Suggestion, error) {
	_, suggestions, err := e.Suggestions(ctx, weekStart, f)
	if err != nil {
		return nil, err
	}

	for i := range suggestions {
		if suggestions[i].ID == id {
			return &suggestions[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrStaleSuggestion, id)
}
