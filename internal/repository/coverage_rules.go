package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

func (r *Repository) ListCoverageRules(ctx context.Context) ([]domain.CoverageRule, error) {
	query := `
		SELECT id, day_of_week, min_am, min_pm, enforce_min_am, enabled, updated_at, version
		FROM coverage_rules
		ORDER BY day_of_week
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []domain.CoverageRule{}
	for rows.Next() {
		var rule domain.CoverageRule
		dst := []any{
			&rule.ID,
			&rule.DayOfWeek,
			&rule.MinAM,
			&rule.MinPM,
			&rule.EnforceMinAM,
			&rule.Enabled,
			&rule.UpdatedAt,
			&rule.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}

// UpsertCoverageRule 每个星期几只有一条规则，已存在时覆盖
func (r *Repository) UpsertCoverageRule(ctx context.Context, rule *domain.CoverageRule) error {
	query := `
		INSERT INTO coverage_rules (day_of_week, min_am, min_pm, enforce_min_am, enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day_of_week) DO UPDATE
		SET
			min_am = EXCLUDED.min_am,
			min_pm = EXCLUDED.min_pm,
			enforce_min_am = EXCLUDED.enforce_min_am,
			enabled = EXCLUDED.enabled,
			updated_at = NOW(),
			version = coverage_rules.version + 1
		RETURNING id, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		rule.DayOfWeek,
		rule.MinAM,
		rule.MinPM,
		rule.EnforceMinAM,
		rule.Enabled,
	}
	dst := []any{&rule.ID, &rule.UpdatedAt, &rule.Version}
	return r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...)
}
