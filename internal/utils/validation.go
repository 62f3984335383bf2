package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

var weekdayNames = map[string]time.Weekday{
	"周日": time.Sunday, "星期日": time.Sunday, "周天": time.Sunday,
	"周一": time.Monday, "星期一": time.Monday,
	"周二": time.Tuesday, "星期二": time.Tuesday,
	"周三": time.Wednesday, "星期三": time.Wednesday,
	"周四": time.Thursday, "星期四": time.Thursday,
	"周五": time.Friday, "星期五": time.Friday,
	"周六": time.Saturday, "星期六": time.Saturday,
}

// ParseWeekday 接受 0 到 6 的数字（0 表示周日）或者中文星期
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("无法识别的星期 %q", s)
	}
	return time.Weekday(n), nil
}

// ValidateEmployee 写入数据库前检查员工信息是否完整
func ValidateEmployee(emp *domain.Employee) error {
	if strings.TrimSpace(emp.Name) == "" {
		return fmt.Errorf("员工姓名不能为空")
	}
	if emp.WeeklyOffDay < 0 || emp.WeeklyOffDay > 6 {
		return fmt.Errorf("员工 %s 的休息日 %d 超出范围", emp.Name, emp.WeeklyOffDay)
	}
	if !emp.DefaultTeam.Valid() {
		return fmt.Errorf("员工 %s 的班组 %q 无效", emp.Name, emp.DefaultTeam)
	}
	if emp.HomeLocation == "" {
		return fmt.Errorf("员工 %s 没有所属门店", emp.Name)
	}
	return nil
}

func ValidateLeave(l *domain.Leave) error {
	if l.EndDate.Before(l.StartDate) {
		return fmt.Errorf("请假结束日期不能早于开始日期")
	}

	switch l.Status {
	case domain.LeaveStatusPending, domain.LeaveStatusApproved, domain.LeaveStatusRejected, domain.LeaveStatusCancelled:
		return nil
	default:
		return fmt.Errorf("未知的请假状态 %q", l.Status)
	}
}
