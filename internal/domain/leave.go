package domain

import "time"

type LeaveStatus string

const (
	LeaveStatusPending   LeaveStatus = "PENDING"
	LeaveStatusApproved  LeaveStatus = "APPROVED"
	LeaveStatusRejected  LeaveStatus = "REJECTED"
	LeaveStatusCancelled LeaveStatus = "CANCELLED"
)

type Leave struct {
	ID         int64       `json:"id"`
	EmployeeID int64       `json:"employeeID"`
	StartDate  time.Time   `json:"startDate"`
	EndDate    time.Time   `json:"endDate"` // 闭区间
	Status     LeaveStatus `json:"status"`
}

// AbsenceMark 单日缺勤记录，Location 为空表示不限门店
type AbsenceMark struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employeeID"`
	Date       time.Time `json:"date"`
	Location   string    `json:"location,omitempty"`
}
