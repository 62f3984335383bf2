package seed

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/utils"
	"github.com/xuri/excelize/v2"
)

// Writer 导入数据需要用到的写操作，由 repository.Repository 实现
type Writer interface {
	LocationExists(ctx context.Context, code string) (bool, error)
	CreateLocation(ctx context.Context, l *domain.Location) error
	CreateEmployee(ctx context.Context, emp *domain.Employee) error
	CreateTeamAssignment(ctx context.Context, a *domain.TeamAssignment) error
	CreateLeave(ctx context.Context, l *domain.Leave) error
	UpsertCoverageRule(ctx context.Context, rule *domain.CoverageRule) error
}

const (
	colName          = "姓名"
	colTeam          = "班组"
	colOffDay        = "休息日"
	colLocation      = "门店"
	colLocationName  = "门店名称"
	colEffectiveFrom = "生效日期"
)

var requiredColumns = []string{colName, colTeam, colOffDay, colLocation}

// RosterRecord 花名册中的一行
type RosterRecord struct {
	Row           int
	Employee      domain.Employee
	Location      domain.Location
	EffectiveFrom *time.Time
}

// ReadRosterFile 读取 csv 或者 xlsx 格式的花名册
func ReadRosterFile(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadRows(path, file)
}

// ReadRows 根据文件扩展名决定解析方式，xlsx 只读取第一个工作表
func ReadRows(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		// Excel 导出的 csv 通常带有 BOM
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("文件内容为空")
		}
		return rows, nil
	case ".xlsx":
		file, err := excelize.OpenReader(r)
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("没有找到工作表")
		}

		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("工作表内容为空")
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("不支持的文件格式 %q", filepath.Ext(filename))
	}
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// ParseRoster 把表格内容转换为员工记录，任意一行有误都不会返回结果
func ParseRoster(rows [][]string) ([]RosterRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("没有找到表头")
	}

	index := make(map[string]int)
	for i, header := range rows[0] {
		index[strings.TrimSpace(header)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("缺少 %s 列", col)
		}
	}
	col := func(row []string, name string) string {
		idx, ok := index[name]
		if !ok {
			return ""
		}
		return cellValue(row, idx)
	}

	var records []RosterRecord
	var errs []error
	for i, row := range rows[1:] {
		line := i + 2
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}

		record, err := parseRosterRow(line, func(name string) string { return col(row, name) })
		if err != nil {
			errs = append(errs, fmt.Errorf("第 %d 行: %w", line, err))
			continue
		}
		records = append(records, record)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return records, nil
}

func parseRosterRow(line int, col func(string) string) (RosterRecord, error) {
	team, err := domain.ParseTeam(strings.ToUpper(col(colTeam)))
	if err != nil {
		return RosterRecord{}, err
	}

	offDay, err := utils.ParseWeekday(col(colOffDay))
	if err != nil {
		return RosterRecord{}, err
	}

	// 门店列可以填代码，也可以直接填中文名称
	location := domain.Location{Code: strings.ToUpper(col(colLocation)), Name: col(colLocationName)}
	if !isASCII(location.Code) {
		if location.Name == "" {
			location.Name = col(colLocation)
		}
		location.Code = utils.LocationCode(col(colLocation))
	}
	if location.Name == "" {
		location.Name = location.Code
	}

	record := RosterRecord{
		Row: line,
		Employee: domain.Employee{
			Name:         col(colName),
			WeeklyOffDay: int(offDay),
			DefaultTeam:  team,
			HomeLocation: location.Code,
			IsActive:     true,
		},
		Location: location,
	}
	if err := utils.ValidateEmployee(&record.Employee); err != nil {
		return RosterRecord{}, err
	}

	if s := col(colEffectiveFrom); s != "" {
		d, err := scheduler.ParseDate(s)
		if err != nil {
			return RosterRecord{}, fmt.Errorf("生效日期 %q 格式错误", s)
		}
		record.EffectiveFrom = &d
	}

	return record, nil
}

// ImportRoster 依次写入门店、员工以及班组变更，返回成功写入的员工数量
func ImportRoster(ctx context.Context, w Writer, records []RosterRecord) (int, error) {
	known := make(map[string]bool)
	for i := range records {
		record := &records[i]

		if err := ensureLocation(ctx, w, &record.Location, known); err != nil {
			return i, fmt.Errorf("第 %d 行: %w", record.Row, err)
		}

		emp := record.Employee
		if err := w.CreateEmployee(ctx, &emp); err != nil {
			return i, fmt.Errorf("第 %d 行: %w", record.Row, err)
		}
		record.Employee = emp

		if record.EffectiveFrom != nil {
			a := &domain.TeamAssignment{
				EmployeeID:    emp.ID,
				Team:          emp.DefaultTeam,
				EffectiveFrom: *record.EffectiveFrom,
			}
			if err := w.CreateTeamAssignment(ctx, a); err != nil {
				return i + 1, fmt.Errorf("第 %d 行: %w", record.Row, err)
			}
		}
	}

	return len(records), nil
}

func ensureLocation(ctx context.Context, w Writer, l *domain.Location, known map[string]bool) error {
	if known[l.Code] {
		return nil
	}

	exists, err := w.LocationExists(ctx, l.Code)
	if err != nil {
		return err
	}
	if !exists {
		if err := w.CreateLocation(ctx, l); err != nil {
			return err
		}
	}

	known[l.Code] = true
	return nil
}

// SeedEmployees 在指定门店生成 n 个随机员工
func SeedEmployees(ctx context.Context, w Writer, r *rand.Rand, n int, location string, specialDay time.Weekday) ([]*domain.Employee, error) {
	if err := ensureLocation(ctx, w, &domain.Location{Code: location, Name: location}, map[string]bool{}); err != nil {
		return nil, err
	}

	employees := make([]*domain.Employee, 0, n)
	for i := 0; i < n; i++ {
		emp := utils.GenerateRandomEmployee(r, location, specialDay)
		if err := w.CreateEmployee(ctx, emp); err != nil {
			return employees, err
		}
		employees = append(employees, emp)
	}

	return employees, nil
}

// SeedLeaves 从 employeeIDs 中随机挑选 n 个人，在 [from, from+days) 内各生成一段请假
func SeedLeaves(ctx context.Context, w Writer, r *rand.Rand, employeeIDs []int64, n int, from time.Time, days int) ([]*domain.Leave, error) {
	if days <= 0 {
		return nil, fmt.Errorf("天数必须大于 0")
	}

	leaves := []*domain.Leave{}
	for _, id := range utils.GenerateRandomSubset(r, employeeIDs, n) {
		l := utils.GenerateRandomLeave(r, id, from, days)
		if err := w.CreateLeave(ctx, l); err != nil {
			return leaves, err
		}
		leaves = append(leaves, l)
	}

	return leaves, nil
}

// DefaultCoverageRules 每天的最低人数等于引擎的下限，特殊日没有早班
func DefaultCoverageRules(cfg scheduler.Config) []domain.CoverageRule {
	rules := make([]domain.CoverageRule, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		rule := domain.CoverageRule{
			DayOfWeek: int(d),
			MinAM:     cfg.FloorAM,
			MinPM:     cfg.FloorPM,
			Enabled:   true,
		}
		if d == cfg.SpecialDay {
			rule.MinAM = 0
		}
		rules = append(rules, rule)
	}
	return rules
}

func SeedCoverageRules(ctx context.Context, w Writer, rules []domain.CoverageRule) error {
	for i := range rules {
		if err := w.UpsertCoverageRule(ctx, &rules[i]); err != nil {
			return fmt.Errorf("写入 day_of_week=%d 的人数规则失败: %w", rules[i].DayOfWeek, err)
		}
	}
	return nil
}
