package scheduler

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Day 去掉时间部分，统一成 UTC 零点，保证日期之间可以直接比较
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: 日期 %q 格式错误，应为 YYYY-MM-DD", ErrInvalidInput, s)
	}
	return d, nil
}

func ParseMonth(s string) (time.Time, error) {
	m, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: 月份 %q 格式错误，应为 YYYY-MM", ErrInvalidInput, s)
	}
	return m, nil
}

// daysBetween 返回 to - from 相差的天数，两者都必须是 Day 处理过的日期
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
