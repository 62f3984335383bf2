package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/config"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/repository"
)

// passthrough pgx 可以直接接收 []int64 等参数，sqlmock 默认的转换器不支持
type passthrough struct{}

func (passthrough) ConvertValue(v any) (driver.Value, error) {
	return v, nil
}

func newRepo(t *testing.T) (*repository.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 10
	return repository.NewRepository(cfg, db), mock
}

var (
	employeeCols = []string{"id", "name", "weekly_off_day", "default_team", "home_location", "is_active", "is_system_only", "created_at", "version"}
	overrideCols = []string{"id", "employee_id", "date", "shift", "location", "is_active", "created_at", "version"}

	jan6 = time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	now  = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
)

func TestGetEmployee(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM employees WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(employeeCols).AddRow(1, "李娜", 4, "A", "DXB", true, false, now, 1))

	emp, err := repo.GetEmployee(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "李娜", emp.Name)
	assert.Equal(t, 4, emp.WeeklyOffDay)
	assert.Equal(t, domain.TeamA, emp.DefaultTeam)
	assert.True(t, emp.OnRoster())

	mock.ExpectQuery(`FROM employees WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(employeeCols))

	_, err = repo.GetEmployee(ctx, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmployees(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM employees\s+WHERE is_active AND NOT is_system_only`).
		WithArgs("DXB").
		WillReturnRows(sqlmock.NewRows(employeeCols).
			AddRow(1, "李娜", 4, "A", "DXB", true, false, now, 1).
			AddRow(2, "王芳", 5, "B", "DXB", true, false, now, 3))

	emps, err := repo.ListRosterEmployees(ctx, "DXB")
	require.NoError(t, err)
	require.Len(t, emps, 2)
	assert.Equal(t, domain.TeamB, emps[1].DefaultTeam)
	assert.Equal(t, int32(3), emps[1].Version)

	mock.ExpectQuery(`FROM employees WHERE id = ANY\(\$1\)`).
		WithArgs([]int64{3, 4}).
		WillReturnRows(sqlmock.NewRows(employeeCols).AddRow(3, "张伟", 0, "A", "AUH", true, false, now, 1))

	emps, err = repo.GetEmployeesByIDs(ctx, []int64{3, 4})
	require.NoError(t, err)
	require.Len(t, emps, 1)
	assert.Equal(t, "AUH", emps[0].HomeLocation)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationExists(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("DXB").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.LocationExists(context.Background(), "DXB")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveOverrides(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	from, to := jan6, jan6.AddDate(0, 0, 6)

	mock.ExpectQuery(`FROM shift_overrides\s+WHERE employee_id = ANY\(\$1\) AND is_active`).
		WithArgs([]int64{1, 2}, from, to).
		WillReturnRows(sqlmock.NewRows(overrideCols).
			AddRow(10, 1, jan6, "COVER_EXT_PM", "", true, now, 1).
			AddRow(11, 2, jan6, "MORNING", "AUH", true, now, 2))

	ovs, err := repo.ListActiveOverrides(ctx, []int64{1, 2}, from, to)
	require.NoError(t, err)
	require.Len(t, ovs, 2)
	assert.Equal(t, domain.ShiftCoverExtPM, ovs[0].Shift)
	assert.Equal(t, "AUH", ovs[1].Location)

	mock.ExpectQuery(`FROM shift_overrides`).
		WithArgs([]int64{1}, from, to).
		WillReturnRows(sqlmock.NewRows(overrideCols).AddRow(12, 1, jan6, "NIGHT", "", true, now, 1))

	_, err = repo.ListActiveOverrides(ctx, []int64{1}, from, to)
	assert.Error(t, err, "未知的班次类型不能进入排班计算")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActiveOverrides(t *testing.T) {
	repo, mock := newRepo(t)
	from, to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT employee_id, COUNT\(\*\)`).
		WithArgs([]int64{1, 2, 3}, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "count"}).AddRow(1, 3).AddRow(3, 1))

	counts, err := repo.CountActiveOverrides(context.Background(), []int64{1, 2, 3}, from, to)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 3, 3: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectCurrentOverride(mock sqlmock.Sqlmock, employeeID int64, date time.Time, current *int64) {
	rows := sqlmock.NewRows([]string{"id"})
	if current != nil {
		rows.AddRow(*current)
	}
	mock.ExpectQuery(`SELECT id FROM shift_overrides\s+WHERE employee_id = \$1 AND date = \$2 AND is_active\s+FOR UPDATE`).
		WithArgs(employeeID, date).
		WillReturnRows(rows)
}

func TestApplyOverrideChanges(t *testing.T) {
	ctx := context.Background()
	current := int64(7)

	t.Run("当前调班与预期一致时替换", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectBegin()
		expectCurrentOverride(mock, 1, jan6, &current)
		mock.ExpectExec(`UPDATE shift_overrides SET is_active = FALSE`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO shift_overrides`).
			WithArgs(int64(1), jan6, domain.ShiftEvening, "").
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "created_at", "version"}).AddRow(8, true, now, 1))
		mock.ExpectCommit()

		ovs, err := repo.ApplyOverrideChanges(ctx, []domain.OverrideChange{{
			EmployeeID:         1,
			Date:               jan6,
			Shift:              domain.ShiftEvening,
			ExpectedOverrideID: &current,
		}})
		require.NoError(t, err)
		require.Len(t, ovs, 1)
		assert.Equal(t, int64(8), ovs[0].ID)
		assert.True(t, ovs[0].IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("当天已被他人调班时整体回滚", func(t *testing.T) {
		repo, mock := newRepo(t)
		jan7 := jan6.AddDate(0, 0, 1)

		mock.ExpectBegin()
		expectCurrentOverride(mock, 1, jan6, nil)
		mock.ExpectQuery(`INSERT INTO shift_overrides`).
			WithArgs(int64(1), jan6, domain.ShiftMorning, "").
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "created_at", "version"}).AddRow(9, true, now, 1))
		expectCurrentOverride(mock, 2, jan7, &current)
		mock.ExpectRollback()

		_, err := repo.ApplyOverrideChanges(ctx, []domain.OverrideChange{
			{EmployeeID: 1, Date: jan6, Shift: domain.ShiftMorning},
			{EmployeeID: 2, Date: jan7, Shift: domain.ShiftEvening},
		})
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("手动调班不检查预期", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectBegin()
		expectCurrentOverride(mock, 1, jan6, &current)
		mock.ExpectExec(`UPDATE shift_overrides SET is_active = FALSE`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO shift_overrides`).
			WithArgs(int64(1), jan6, domain.ShiftMorning, "AUH").
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "created_at", "version"}).AddRow(8, true, now, 1))
		mock.ExpectCommit()

		ov, err := repo.UpsertOverride(ctx, domain.OverrideChange{EmployeeID: 1, Date: jan6, Shift: domain.ShiftMorning, Location: "AUH"})
		require.NoError(t, err)
		assert.Equal(t, "AUH", ov.Location)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("数据库错误时回滚", func(t *testing.T) {
		repo, mock := newRepo(t)
		boom := errors.New("connection reset")

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM shift_overrides`).WillReturnError(boom)
		mock.ExpectRollback()

		_, err := repo.UpsertOverride(ctx, domain.OverrideChange{EmployeeID: 1, Date: jan6, Shift: domain.ShiftMorning})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeactivateOverride(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE shift_overrides\s+SET is_active = FALSE, version = version \+ 1\s+WHERE id = \$1 AND is_active`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(overrideCols).AddRow(10, 1, jan6, "MORNING", "", false, now, 2))

	ov, err := repo.DeactivateOverride(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ov.IsActive)
	assert.Equal(t, jan6, ov.Date)

	mock.ExpectQuery(`UPDATE shift_overrides`).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(overrideCols))

	_, err = repo.DeactivateOverride(ctx, 11)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRules(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM coverage_rules`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "day_of_week", "min_am", "min_pm", "enforce_min_am", "enabled", "updated_at", "version"}).
			AddRow(1, 2, 3, 3, false, true, now, 1))

	rules, err := repo.ListCoverageRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 2, rules[0].DayOfWeek)
	assert.Equal(t, 3, rules[0].MinPM)

	mock.ExpectQuery(`(?s)INSERT INTO coverage_rules.*ON CONFLICT \(day_of_week\) DO UPDATE`).
		WithArgs(5, 0, 4, false, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "updated_at", "version"}).AddRow(6, now, 2))

	rule := &domain.CoverageRule{DayOfWeek: 5, MinAM: 0, MinPM: 4, Enabled: true}
	require.NoError(t, repo.UpsertCoverageRule(ctx, rule))
	assert.Equal(t, int64(6), rule.ID)
	assert.Equal(t, int32(2), rule.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
