package utils

import (
	"math/rand"
	"strings"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName(r *rand.Rand) string {
	surname := commonSurnames[r.Intn(len(commonSurnames))]
	nameLength := r.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[r.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var teams = []domain.Team{domain.TeamA, domain.TeamB}

func GenerateRandomTeam(r *rand.Rand) domain.Team {
	return teams[r.Intn(len(teams))]
}

// GenerateRandomOffDay 特殊日通常人手最紧，随机休息日避开 specialDay
func GenerateRandomOffDay(r *rand.Rand, specialDay time.Weekday) time.Weekday {
	for {
		d := time.Weekday(r.Intn(7))
		if d != specialDay {
			return d
		}
	}
}

func GenerateRandomEmployee(r *rand.Rand, location string, specialDay time.Weekday) *domain.Employee {
	return &domain.Employee{
		Name:         GenerateRandomChineseName(r),
		WeeklyOffDay: int(GenerateRandomOffDay(r, specialDay)),
		DefaultTeam:  GenerateRandomTeam(r),
		HomeLocation: location,
		IsActive:     true,
	}
}

// GenerateRandomLeave 在 [from, from+days) 内生成一段 1 到 4 天的请假
func GenerateRandomLeave(r *rand.Rand, employeeID int64, from time.Time, days int) *domain.Leave {
	start := from.AddDate(0, 0, r.Intn(days))
	end := start.AddDate(0, 0, r.Intn(4))

	statuses := []domain.LeaveStatus{
		domain.LeaveStatusApproved,
		domain.LeaveStatusApproved,
		domain.LeaveStatusPending,
		domain.LeaveStatusRejected,
	}

	return &domain.Leave{
		EmployeeID: employeeID,
		StartDate:  start,
		EndDate:    end,
		Status:     statuses[r.Intn(len(statuses))],
	}
}

// 使用 Fisher-Yates 洗牌算法来生成一个随机子集，不修改原数组
func GenerateRandomSubset[T any](r *rand.Rand, arr []T, n int) []T {
	arrCopy := append([]T{}, arr...)
	n = min(n, len(arrCopy))

	for i := 0; i < n; i++ {
		j := r.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	return arrCopy[:n]
}

// LocationCode 用门店名称的拼音首字母生成门店代码，例如 "迪拜商场" -> "DBSC"
func LocationCode(name string) string {
	a := pinyin.NewArgs()
	a.Style = pinyin.FirstLetter
	a.Fallback = func(r rune, a pinyin.Args) []string {
		if r < 128 {
			return []string{string(r)}
		}
		return nil
	}

	code := ""
	for _, p := range pinyin.Pinyin(name, a) {
		if len(p) > 0 {
			code += p[0]
		}
	}
	return strings.ToUpper(strings.ReplaceAll(code, " ", ""))
}
