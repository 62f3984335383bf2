package domain

import "time"

// TeamAssignment 按生效日期记录的班组变更，不追溯既往
type TeamAssignment struct {
	ID            int64     `json:"id"`
	EmployeeID    int64     `json:"employeeID"`
	Team          Team      `json:"team"`
	EffectiveFrom time.Time `json:"effectiveFrom"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TeamHistory 旧系统迁移过来的班组记录，仅在没有 TeamAssignment 时使用
type TeamHistory struct {
	ID            int64     `json:"id"`
	EmployeeID    int64     `json:"employeeID"`
	Team          Team      `json:"team"`
	EffectiveFrom time.Time `json:"effectiveFrom"`
}
