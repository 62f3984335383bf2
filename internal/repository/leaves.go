package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

// ListApprovedLeaves 返回与 [from, to] 有交集的已批准请假
func (r *Repository) ListApprovedLeaves(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]domain.Leave, error) {
	query := `
		SELECT id, employee_id, start_date, end_date, status
		FROM leaves
		WHERE employee_id = ANY($1) AND status = 'APPROVED' AND start_date <= $3 AND end_date >= $2
		ORDER BY employee_id, start_date, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, employeeIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leaves := []domain.Leave{}
	for rows.Next() {
		var l domain.Leave
		if err := rows.Scan(&l.ID, &l.EmployeeID, &l.StartDate, &l.EndDate, &l.Status); err != nil {
			return nil, err
		}
		leaves = append(leaves, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return leaves, nil
}

func (r *Repository) ListAbsenceMarks(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]domain.AbsenceMark, error) {
	query := `
		SELECT id, employee_id, date, COALESCE(location, '')
		FROM absence_marks
		WHERE employee_id = ANY($1) AND date BETWEEN $2 AND $3
		ORDER BY employee_id, date, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, employeeIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := []domain.AbsenceMark{}
	for rows.Next() {
		var m domain.AbsenceMark
		if err := rows.Scan(&m.ID, &m.EmployeeID, &m.Date, &m.Location); err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return marks, nil
}

func (r *Repository) CreateLeave(ctx context.Context, l *domain.Leave) error {
	query := `
		INSERT INTO leaves (employee_id, start_date, end_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, l.EmployeeID, l.StartDate, l.EndDate, l.Status).Scan(&l.ID)
}

func (r *Repository) CreateAbsenceMark(ctx context.Context, m *domain.AbsenceMark) error {
	query := `
		INSERT INTO absence_marks (employee_id, date, location)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, m.EmployeeID, m.Date, m.Location).Scan(&m.ID)
}
