package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

const overrideColumns = `id, employee_id, date, shift, COALESCE(location, ''), is_active, created_at, version`

func (r *Repository) queryOverrides(ctx context.Context, query string, args ...any) ([]domain.ShiftOverride, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := []domain.ShiftOverride{}
	for rows.Next() {
		var ov domain.ShiftOverride
		dst := []any{
			&ov.ID,
			&ov.EmployeeID,
			&ov.Date,
			&ov.Shift,
			&ov.Location,
			&ov.IsActive,
			&ov.CreatedAt,
			&ov.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if !ov.Shift.Valid() {
			return nil, fmt.Errorf("调班记录 %d 的班次类型 %q 无效", ov.ID, ov.Shift)
		}
		overrides = append(overrides, ov)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

func (r *Repository) ListActiveOverrides(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]domain.ShiftOverride, error) {
	query := `
		SELECT ` + overrideColumns + `
		FROM shift_overrides
		WHERE employee_id = ANY($1) AND is_active AND date BETWEEN $2 AND $3
		ORDER BY employee_id, date, id
	`
	return r.queryOverrides(ctx, query, employeeIDs, from, to)
}

// ListGuestOverrides 其他门店的员工被调到 location 上早班或晚班
func (r *Repository) ListGuestOverrides(ctx context.Context, location string, from, to time.Time) ([]domain.ShiftOverride, error) {
	query := `
		SELECT ` + overrideColumns + `
		FROM shift_overrides
		WHERE location = $1
			AND is_active
			AND shift IN ('MORNING', 'EVENING')
			AND date BETWEEN $2 AND $3
			AND employee_id IN (SELECT id FROM employees WHERE home_location <> $1)
		ORDER BY employee_id, date, id
	`
	return r.queryOverrides(ctx, query, location, from, to)
}

func (r *Repository) CountActiveOverrides(ctx context.Context, employeeIDs []int64, from, to time.Time) (map[int64]int, error) {
	query := `
		SELECT employee_id, COUNT(*)
		FROM shift_overrides
		WHERE employee_id = ANY($1) AND is_active AND date BETWEEN $2 AND $3
		GROUP BY employee_id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, employeeIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// UpsertOverride 写入一条手动调班，同时停用该员工当天原有的调班
func (r *Repository) UpsertOverride(ctx context.Context, change domain.OverrideChange) (*domain.ShiftOverride, error) {
	ovs, err := r.replaceOverrides(ctx, []domain.OverrideChange{change}, false)
	if err != nil {
		return nil, err
	}
	return &ovs[0], nil
}

// ApplyOverrideChanges 在一个事务中写入多条调班，任何一条的当前调班与 ExpectedOverrideID 不一致都会整体回滚
func (r *Repository) ApplyOverrideChanges(ctx context.Context, changes []domain.OverrideChange) ([]domain.ShiftOverride, error) {
	return r.replaceOverrides(ctx, changes, true)
}

func (r *Repository) replaceOverrides(ctx context.Context, changes []domain.OverrideChange, checkExpected bool) ([]domain.ShiftOverride, error) {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	created := make([]domain.ShiftOverride, 0, len(changes))
	for _, c := range changes {
		// 锁住当天的有效调班，防止两个请求同时替换
		query := `
			SELECT id FROM shift_overrides
			WHERE employee_id = $1 AND date = $2 AND is_active
			FOR UPDATE
		`
		var current *int64
		var id int64
		switch err := tx.QueryRowContext(ctx, query, c.EmployeeID, c.Date).Scan(&id); {
		case err == nil:
			current = &id
		case errors.Is(err, sql.ErrNoRows):
		default:
			return nil, err
		}

		if checkExpected && !sameOverride(current, c.ExpectedOverrideID) {
			return nil, ErrVersionConflict
		}

		if current != nil {
			query = `UPDATE shift_overrides SET is_active = FALSE, version = version + 1 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, query, *current); err != nil {
				return nil, err
			}
		}

		query = `
			INSERT INTO shift_overrides (employee_id, date, shift, location)
			VALUES ($1, $2, $3, NULLIF($4, ''))
			RETURNING id, is_active, created_at, version
		`
		ov := domain.ShiftOverride{
			EmployeeID: c.EmployeeID,
			Date:       c.Date,
			Shift:      c.Shift,
			Location:   c.Location,
		}
		dst := []any{&ov.ID, &ov.IsActive, &ov.CreatedAt, &ov.Version}
		if err := tx.QueryRowContext(ctx, query, c.EmployeeID, c.Date, c.Shift, c.Location).Scan(dst...); err != nil {
			return nil, err
		}
		created = append(created, ov)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return created, nil
}

func sameOverride(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DeactivateOverride 停用一条调班，返回停用后的记录，调班不存在或已停用时返回 sql.ErrNoRows
func (r *Repository) DeactivateOverride(ctx context.Context, id int64) (*domain.ShiftOverride, error) {
	query := `
		UPDATE shift_overrides
		SET is_active = FALSE, version = version + 1
		WHERE id = $1 AND is_active
		RETURNING ` + overrideColumns

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var ov domain.ShiftOverride
	dst := []any{
		&ov.ID,
		&ov.EmployeeID,
		&ov.Date,
		&ov.Shift,
		&ov.Location,
		&ov.IsActive,
		&ov.CreatedAt,
		&ov.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return &ov, nil
}
