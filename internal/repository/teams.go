package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

func (r *Repository) ListTeamAssignments(ctx context.Context, employeeIDs []int64, until time.Time) ([]domain.TeamAssignment, error) {
	query := `
		SELECT id, employee_id, team, effective_from, created_at
		FROM team_assignments
		WHERE employee_id = ANY($1) AND effective_from <= $2
		ORDER BY employee_id, effective_from, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, employeeIDs, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []domain.TeamAssignment{}
	for rows.Next() {
		var a domain.TeamAssignment
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.Team, &a.EffectiveFrom, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) ListTeamHistory(ctx context.Context, employeeIDs []int64, until time.Time) ([]domain.TeamHistory, error) {
	query := `
		SELECT id, employee_id, team, effective_from
		FROM team_history
		WHERE employee_id = ANY($1) AND effective_from <= $2
		ORDER BY employee_id, effective_from, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, employeeIDs, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []domain.TeamHistory{}
	for rows.Next() {
		var h domain.TeamHistory
		if err := rows.Scan(&h.ID, &h.EmployeeID, &h.Team, &h.EffectiveFrom); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

func (r *Repository) CreateTeamAssignment(ctx context.Context, a *domain.TeamAssignment) error {
	query := `
		INSERT INTO team_assignments (employee_id, team, effective_from)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, a.EmployeeID, a.Team, a.EffectiveFrom).Scan(&a.ID, &a.CreatedAt)
}
