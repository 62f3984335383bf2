package export

import (
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

var weekdayNames = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

var shiftLabels = map[domain.Shift]string{
	domain.ShiftNone:       "-",
	domain.ShiftMorning:    "早班",
	domain.ShiftEvening:    "晚班",
	domain.ShiftCoverExtAM: "外派早",
	domain.ShiftCoverExtPM: "外派晚",
}

var availabilityLabels = map[domain.Availability]string{
	domain.AvailabilityLeave:  "请假",
	domain.AvailabilityOff:    "休息",
	domain.AvailabilityAbsent: "缺勤",
}

var severityLabels = map[scheduler.Severity]string{
	scheduler.SeverityWarning: "警告",
	scheduler.SeverityInfo:    "提示",
}

// CellLabel 表格中一个格子显示的文字，带 * 表示来自手动调班
func CellLabel(c scheduler.Cell) string {
	if label, ok := availabilityLabels[c.Availability]; ok {
		return label
	}

	label := shiftLabels[c.EffectiveShift]
	if c.AwayAt != "" {
		label = "外店(" + c.AwayAt + ")"
	}
	if c.OverrideID != nil {
		label += "*"
	}
	return label
}
