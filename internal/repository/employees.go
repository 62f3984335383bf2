package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

const employeeColumns = `
	id,
	name,
	weekly_off_day,
	default_team,
	home_location,
	is_active,
	is_system_only,
	created_at,
	version
`

func scanEmployee(row interface{ Scan(...any) error }) (*domain.Employee, error) {
	var emp domain.Employee
	dst := []any{
		&emp.ID,
		&emp.Name,
		&emp.WeeklyOffDay,
		&emp.DefaultTeam,
		&emp.HomeLocation,
		&emp.IsActive,
		&emp.IsSystemOnly,
		&emp.CreatedAt,
		&emp.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *Repository) queryEmployees(ctx context.Context, query string, args ...any) ([]*domain.Employee, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emps := []*domain.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		emps = append(emps, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return emps, nil
}

func (r *Repository) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanEmployee(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetEmployeesByIDs(ctx context.Context, ids []int64) ([]*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ANY($1) ORDER BY id`
	return r.queryEmployees(ctx, query, ids)
}

func (r *Repository) ListRosterEmployees(ctx context.Context, location string) ([]*domain.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE is_active AND NOT is_system_only AND ($1 = '' OR home_location = $1)
		ORDER BY id
	`
	return r.queryEmployees(ctx, query, location)
}

func (r *Repository) CreateEmployee(ctx context.Context, emp *domain.Employee) error {
	query := `
		INSERT INTO employees (
			name,
			weekly_off_day,
			default_team,
			home_location,
			is_active,
			is_system_only
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		emp.Name,
		emp.WeeklyOffDay,
		emp.DefaultTeam,
		emp.HomeLocation,
		emp.IsActive,
		emp.IsSystemOnly,
	}
	dst := []any{&emp.ID, &emp.CreatedAt, &emp.Version}
	return r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...)
}

func (r *Repository) LocationExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM locations WHERE code = $1)`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var exists bool
	if err := r.dbpool.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repository) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	query := `SELECT code, name FROM locations ORDER BY code`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := []*domain.Location{}
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.Code, &l.Name); err != nil {
			return nil, err
		}
		locations = append(locations, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locations, nil
}

// CreateLocation 门店已存在时不做任何修改
func (r *Repository) CreateLocation(ctx context.Context, l *domain.Location) error {
	query := `INSERT INTO locations (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, l.Code, l.Name)
	return err
}
