package domain

import "time"

type Employee struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	WeeklyOffDay int       `json:"weeklyOffDay"` // 0 表示周日，6 表示周六，与 time.Weekday 一致
	DefaultTeam  Team      `json:"defaultTeam"`
	HomeLocation string    `json:"homeLocation"`
	IsActive     bool      `json:"isActive"`
	IsSystemOnly bool      `json:"isSystemOnly"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// OnRoster 是否应该出现在排班表中
func (e *Employee) OnRoster() bool {
	return e.IsActive && !e.IsSystemOnly
}

type Location struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
