package scheduler

import (
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

// WeekIndex 从 date 所在年份第一个每周起始日开始计算的完整周数，从 0 开始；
// 年初第一个起始日之前的几天算作第 -1 周
func WeekIndex(cfg Config, date time.Time) int {
	date = Day(date)
	jan1 := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(cfg.WeekStart) - int(jan1.Weekday()) + 7) % 7
	first := jan1.AddDate(0, 0, offset)
	return floorDiv(daysBetween(first, date), 7)
}

// BaseShift 轮换规则：
//  1. 特殊日一律晚班，与班组无关
//  2. 偶数周 A 早 B 晚，奇数周 A 晚 B 早
func BaseShift(cfg Config, team domain.Team, date time.Time) domain.Shift {
	if cfg.IsSpecialDay(date) {
		return domain.ShiftEvening
	}

	even := WeekIndex(cfg, date)%2 == 0

	switch team {
	case domain.TeamA:
		if even {
			return domain.ShiftMorning
		}
		return domain.ShiftEvening
	case domain.TeamB:
		if even {
			return domain.ShiftEvening
		}
		return domain.ShiftMorning
	default:
		return domain.ShiftNone
	}
}
