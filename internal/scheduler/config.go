package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// DateRange 闭区间日期范围
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(Day(r.From)) && !d.After(Day(r.To))
}

// ParseDateRange 解析形如 2026-02-18~2026-03-19 的日期范围
func ParseDateRange(s string) (DateRange, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "~")
	if !ok {
		return DateRange{}, fmt.Errorf("%w: 日期范围 %q 缺少分隔符 ~", ErrInvalidInput, s)
	}

	fromDate, err := ParseDate(from)
	if err != nil {
		return DateRange{}, err
	}
	toDate, err := ParseDate(to)
	if err != nil {
		return DateRange{}, err
	}

	if toDate.Before(fromDate) {
		return DateRange{}, fmt.Errorf("%w: 日期范围 %q 的结束日期早于开始日期", ErrInvalidInput, s)
	}

	return DateRange{From: fromDate, To: toDate}, nil
}

// Config 排班引擎的全部可调参数，每个入口都显式传入，不使用全局常量
type Config struct {
	WeekStart  time.Weekday // 每周从星期几开始
	SpecialDay time.Weekday // 只允许晚班的日子
	FloorAM    int          // 内置的早班最低人数
	FloorPM    int          // 内置的晚班最低人数

	// 例外日历（例如斋月），处于其中的特殊日按普通日子处理
	ExceptionWindows []DateRange
}

func DefaultConfig() Config {
	return Config{
		WeekStart:  time.Saturday,
		SpecialDay: time.Friday,
		FloorAM:    2,
		FloorPM:    2,
	}
}

func (c Config) Validate() error {
	if c.WeekStart < time.Sunday || c.WeekStart > time.Saturday {
		return fmt.Errorf("%w: 每周起始日 %d 超出范围", ErrInvalidInput, c.WeekStart)
	}
	if c.SpecialDay < time.Sunday || c.SpecialDay > time.Saturday {
		return fmt.Errorf("%w: 特殊日 %d 超出范围", ErrInvalidInput, c.SpecialDay)
	}
	if c.FloorAM < 0 || c.FloorPM < 0 {
		return fmt.Errorf("%w: 最低人数不能为负数", ErrInvalidInput)
	}
	for _, w := range c.ExceptionWindows {
		if Day(w.To).Before(Day(w.From)) {
			return fmt.Errorf("%w: 例外日历 %s~%s 的结束日期早于开始日期", ErrInvalidInput, DateKey(w.From), DateKey(w.To))
		}
	}
	return nil
}

func (c Config) InExceptionWindow(d time.Time) bool {
	for _, w := range c.ExceptionWindows {
		if w.Contains(d) {
			return true
		}
	}
	return false
}

// IsSpecialDay 是否为只允许晚班的特殊日（例外日历内不算）
func (c Config) IsSpecialDay(d time.Time) bool {
	if d.Weekday() != c.SpecialDay {
		return false
	}
	return !c.InExceptionWindow(d)
}

// WeekStartOf 返回 d 所在周的起始日期
func (c Config) WeekStartOf(d time.Time) time.Time {
	d = Day(d)
	back := (int(d.Weekday()) - int(c.WeekStart) + 7) % 7
	return d.AddDate(0, 0, -back)
}
