package export

import (
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
	"github.com/xuri/excelize/v2"
)

const (
	WeekSheet        = "排班表"
	ValidationSheet  = "排班提醒"
	MonthSheet       = "月度汇总"
	ContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSheetName = "Sheet1"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
}

func (sw *sheetWriter) write(values ...any) error {
	sw.row++
	cell, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		return err
	}
	return sw.f.SetSheetRow(sw.sheet, cell, &values)
}

// header 写入一行加粗的表头
func (sw *sheetWriter) header(values ...any) error {
	if err := sw.write(values...); err != nil {
		return err
	}
	first, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), sw.row)
	if err != nil {
		return err
	}
	return sw.f.SetCellStyle(sw.sheet, first, last, sw.bold)
}

func newWorkbook(first string) (*excelize.File, int, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheetName, first); err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, bold, nil
}

func dayHeader(d scheduler.DayRow) string {
	return fmt.Sprintf("%s %s", d.Date.Format("01-02"), weekdayNames[d.Weekday])
}

// WeekWorkbook 导出一周的排班表，第一个工作表是排班格子和每天的人数，第二个是每天的排班提醒
func WeekWorkbook(g *scheduler.Grid) (*excelize.File, error) {
	f, bold, err := newWorkbook(WeekSheet)
	if err != nil {
		return nil, err
	}

	if err := writeWeek(f, bold, g); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeWeek(f *excelize.File, bold int, g *scheduler.Grid) error {
	days := make([]scheduler.DayRow, len(g.Days))
	for i := range g.Days {
		days[i] = g.DayRow(i)
	}

	sw := &sheetWriter{f: f, sheet: WeekSheet, bold: bold}
	header := []any{"姓名", "班组"}
	for _, d := range days {
		header = append(header, dayHeader(d))
	}
	if err := sw.header(header...); err != nil {
		return err
	}

	for _, r := range g.Rows {
		name := r.Name
		if r.Guest {
			name += "（外店）"
		}
		values := []any{name, string(r.Team)}
		for _, c := range r.Cells {
			values = append(values, CellLabel(c))
		}
		if err := sw.write(values...); err != nil {
			return err
		}
	}

	totals := []struct {
		label string
		count func(scheduler.DayCounts) int
	}{
		{"早班人数", func(c scheduler.DayCounts) int { return c.AM }},
		{"晚班人数", func(c scheduler.DayCounts) int { return c.PM }},
		{"外派早班", func(c scheduler.DayCounts) int { return c.ExternalAM }},
		{"外派晚班", func(c scheduler.DayCounts) int { return c.ExternalPM }},
	}
	for _, t := range totals {
		values := []any{t.label, ""}
		for _, c := range g.Counts {
			values = append(values, t.count(c))
		}
		if err := sw.write(values...); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(WeekSheet, "A", "A", 14); err != nil {
		return err
	}

	if _, err := f.NewSheet(ValidationSheet); err != nil {
		return err
	}
	vw := &sheetWriter{f: f, sheet: ValidationSheet, bold: bold}
	if err := vw.header("日期", "级别", "类型", "说明"); err != nil {
		return err
	}
	for _, d := range days {
		for _, v := range d.Validations {
			if err := vw.write(dayHeader(d), severityLabels[v.Severity], string(v.Type), v.Message); err != nil {
				return err
			}
		}
	}
	for _, w := range g.Warnings {
		if err := vw.write(w.Date.Format("01-02"), "数据", string(w.Kind), w.Message); err != nil {
			return err
		}
	}

	return nil
}

// MonthWorkbook 导出月度汇总，每天一行
func MonthWorkbook(days []scheduler.DayRow) (*excelize.File, error) {
	f, bold, err := newWorkbook(MonthSheet)
	if err != nil {
		return nil, err
	}

	if err := writeMonth(f, bold, days); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeMonth(f *excelize.File, bold int, days []scheduler.DayRow) error {
	sw := &sheetWriter{f: f, sheet: MonthSheet, bold: bold}
	if err := sw.header("日期", "星期", "早班", "晚班", "外派早班", "外派晚班", "早班人员", "晚班人员", "提醒"); err != nil {
		return err
	}

	for _, d := range days {
		var am, pm, notes []string
		for _, e := range d.Entries {
			if e.Cell.Availability != domain.AvailabilityWork || e.Cell.AwayAt != "" {
				continue
			}
			switch e.Cell.EffectiveShift {
			case domain.ShiftMorning:
				am = append(am, e.Name)
			case domain.ShiftEvening:
				pm = append(pm, e.Name)
			}
		}
		for _, v := range d.Validations {
			notes = append(notes, v.Message)
		}

		values := []any{
			d.Date.Format(scheduler.DateLayout),
			weekdayNames[d.Weekday],
			d.Counts.AM,
			d.Counts.PM,
			d.Counts.ExternalAM,
			d.Counts.ExternalPM,
			strings.Join(am, "、"),
			strings.Join(pm, "、"),
			strings.Join(notes, "；"),
		}
		if err := sw.write(values...); err != nil {
			return err
		}
	}

	return f.SetColWidth(MonthSheet, "G", "I", 30)
}
