package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

// ResolveAvailability 计算员工某天的出勤状态，按顺序匹配，先命中者优先：
// 已批准的请假 > 每周固定休息日 > 缺勤记录 > 正常上班
func ResolveAvailability(emp *domain.Employee, date time.Time, leaves []domain.Leave, marks []domain.AbsenceMark, scope string) domain.Availability {
	date = Day(date)

	for _, l := range leaves {
		if l.EmployeeID != emp.ID || l.Status != domain.LeaveStatusApproved {
			continue
		}
		if !date.Before(Day(l.StartDate)) && !date.After(Day(l.EndDate)) {
			return domain.AvailabilityLeave
		}
	}

	if int(date.Weekday()) == emp.WeeklyOffDay {
		return domain.AvailabilityOff
	}

	for _, m := range marks {
		if m.EmployeeID != emp.ID || !Day(m.Date).Equal(date) {
			continue
		}
		// 指定门店时，只认该门店的缺勤记录和不限门店的记录
		if scope == "" || m.Location == "" || m.Location == scope {
			return domain.AvailabilityAbsent
		}
	}

	return domain.AvailabilityWork
}

// Availability 读取数据并计算某员工某天的出勤状态
func (e *Engine) Availability(ctx context.Context, employeeID int64, date time.Time, scope string) (domain.Availability, error) {
	emp, err := e.employee(ctx, employeeID)
	if err != nil {
		return "", err
	}

	date = Day(date)
	ids := []int64{employeeID}

	leaves, err := e.store.ListApprovedLeaves(ctx, ids, date, date)
	if err != nil {
		return "", err
	}
	marks, err := e.store.ListAbsenceMarks(ctx, ids, date, date)
	if err != nil {
		return "", err
	}

	return ResolveAvailability(emp, date, leaves, marks, scope), nil
}

func (e *Engine) employee(ctx context.Context, id int64) (*domain.Employee, error) {
	emp, err := e.store.GetEmployee(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: 员工 %d", ErrNotFound, id)
		}
		return nil, err
	}
	if err := checkEmployee(emp); err != nil {
		return nil, err
	}
	return emp, nil
}

func checkEmployee(emp *domain.Employee) error {
	if emp.WeeklyOffDay < 0 || emp.WeeklyOffDay > 6 {
		return fmt.Errorf("%w: 员工 %d 的每周休息日 %d 超出范围", ErrInvalidInput, emp.ID, emp.WeeklyOffDay)
	}
	if !emp.DefaultTeam.Valid() {
		return fmt.Errorf("%w: 员工 %d 的默认班组 %q 无效", ErrInvalidInput, emp.ID, emp.DefaultTeam)
	}
	return nil
}
