package scheduler

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

// Store 引擎唯一的数据来源，所有日期参数均为闭区间。
// 找不到单条记录时返回 sql.ErrNoRows
type Store interface {
	GetEmployee(ctx context.Context, id int64) (*domain.Employee, error)
	GetEmployeesByIDs(ctx context.Context, ids []int64) ([]*domain.Employee, error)
	// ListRosterEmployees 返回在职且非系统账户的员工，location 为空时返回所有门店
	ListRosterEmployees(ctx context.Context, location string) ([]*domain.Employee, error)
	LocationExists(ctx context.Context, code string) (bool, error)

	ListTeamAssignments(ctx context.Context, employeeIDs []int64, until time.Time) ([]domain.TeamAssignment, error)
	ListTeamHistory(ctx context.Context, employeeIDs []int64, until time.Time) ([]domain.TeamHistory, error)

	ListApprovedLeaves(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]domain.Leave, error)
	ListAbsenceMarks(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]domain.AbsenceMark, error)
	ListActiveOverrides(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]domain.ShiftOverride, error)
	// ListGuestOverrides 返回其他门店员工在 location 上早班或晚班的有效调班
	ListGuestOverrides(ctx context.Context, location string, from, to time.Time) ([]domain.ShiftOverride, error)
	CountActiveOverrides(ctx context.Context, employeeIDs []int64, from, to time.Time) (map[int64]int, error)

	ListCoverageRules(ctx context.Context) ([]domain.CoverageRule, error)
}

// ValidationCache 校验结果的短期缓存，按 (日期, 门店) 存取，实现必须支持并发读取和失效
type ValidationCache interface {
	GetOrLoad(ctx context.Context, date time.Time, scope string, load func(ctx context.Context) ([]ValidationResult, error)) ([]ValidationResult, error)
	Invalidate(ctx context.Context, date time.Time, scopes ...string) error
	InvalidateAll(ctx context.Context) error
}
