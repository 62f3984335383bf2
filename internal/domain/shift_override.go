package domain

import "time"

// ShiftOverride 手动调班，同一员工同一天最多只有一条 IsActive 的记录
type ShiftOverride struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employeeID"`
	Date       time.Time `json:"date"`
	Shift      Shift     `json:"overrideShift"`
	Location   string    `json:"location,omitempty"` // 实际上班的门店，为空表示员工所属门店
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	Version    int32     `json:"-"`
}

// OverrideChange 一次写入调班的请求，ExpectedOverrideID 用于检测写入期间数据是否已被他人修改
type OverrideChange struct {
	EmployeeID         int64
	Date               time.Time
	Shift              Shift
	Location           string
	ExpectedOverrideID *int64
}
