package scheduler

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

type DayEntry struct {
	EmployeeID int64       `json:"employeeID"`
	Name       string      `json:"name"`
	Team       domain.Team `json:"team"`
	Guest      bool        `json:"guest,omitempty"`
	Cell       Cell        `json:"cell"`
}

// DayRow 月视图中的一天，数据直接取自所在周的排班表
type DayRow struct {
	Date        time.Time          `json:"date"`
	Weekday     int                `json:"weekday"`
	Special     bool               `json:"special"`
	Counts      DayCounts          `json:"counts"`
	Entries     []DayEntry         `json:"entries"`
	Validations []ValidationResult `json:"validations"`
}

// DayRow 从排班表中切出某一天
func (g *Grid) DayRow(i int) DayRow {
	d := g.Days[i]
	row := DayRow{
		Date:        d,
		Weekday:     int(d.Weekday()),
		Special:     g.cfg.IsSpecialDay(d),
		Counts:      g.Counts[i],
		Entries:     make([]DayEntry, 0, len(g.Rows)),
		Validations: g.ValidateDay(i),
	}

	for _, r := range g.Rows {
		row.Entries = append(row.Entries, DayEntry{
			EmployeeID: r.EmployeeID,
			Name:       r.Name,
			Team:       r.Cells[i].Team,
			Guest:      r.Guest,
			Cell:       r.Cells[i],
		})
	}

	return row
}

// BuildMonth 按周构建排班表再切出每一天，保证周视图和月视图的数字永远一致
func (e *Engine) BuildMonth(ctx context.Context, month time.Time, f Filters) ([]DayRow, error) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	grids := make(map[string]*Grid)
	rows := make([]DayRow, 0, last.Day())

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := DateKey(e.cfg.WeekStartOf(d))

		g, exists := grids[key]
		if !exists {
			var err error
			g, err = e.BuildGrid(ctx, d, f)
			if err != nil {
				return nil, err
			}
			grids[key] = g
		}

		rows = append(rows, g.DayRow(g.DayIndex(d)))
	}

	return rows, nil
}
