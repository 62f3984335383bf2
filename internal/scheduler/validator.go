package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

type ValidationType string

const (
	ValidationMinAM               ValidationType = "MIN_AM"
	ValidationMinPM               ValidationType = "MIN_PM"
	ValidationAMExceedsPM         ValidationType = "AM_EXCEEDS_PM"
	ValidationSpecialDayAMPresent ValidationType = "SPECIAL_DAY_AM_PRESENT"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationResult 只是提醒，永远不会阻止保存，也不会自动修正
type ValidationResult struct {
	Type     ValidationType `json:"type"`
	Severity Severity       `json:"severity"`
	Date     time.Time      `json:"date"`
	Message  string         `json:"message"`
	AMCount  int            `json:"amCount"`
	PMCount  int            `json:"pmCount"`
	MinAM    int            `json:"minAm"`
	MinPM    int            `json:"minPm"`
}

type Minimums struct {
	AM int `json:"am"`
	PM int `json:"pm"`
}

// EffectiveMinimums 特殊日早班最低为 0、晚班取规则值，其余日子取规则与内置下限的较大值
func EffectiveMinimums(cfg Config, date time.Time, rule *domain.CoverageRule) Minimums {
	ruleAM, rulePM := cfg.FloorAM, cfg.FloorPM
	if rule != nil && rule.Enabled {
		ruleAM, rulePM = rule.MinAM, rule.MinPM
	}

	if cfg.IsSpecialDay(date) {
		return Minimums{AM: 0, PM: rulePM}
	}
	return Minimums{AM: max(ruleAM, cfg.FloorAM), PM: max(rulePM, cfg.FloorPM)}
}

// Validate 各条规则互相独立，同一天可以同时出现多条提醒，结果顺序固定
func Validate(cfg Config, date time.Time, counts DayCounts, rule *domain.CoverageRule) []ValidationResult {
	date = Day(date)
	special := cfg.IsSpecialDay(date)
	mins := EffectiveMinimums(cfg, date, rule)

	results := []ValidationResult{}
	add := func(t ValidationType, severity Severity, msg string) {
		results = append(results, ValidationResult{
			Type:     t,
			Severity: severity,
			Date:     date,
			Message:  msg,
			AMCount:  counts.AM,
			PMCount:  counts.PM,
			MinAM:    mins.AM,
			MinPM:    mins.PM,
		})
	}

	if special {
		if counts.AM > 0 {
			add(ValidationSpecialDayAMPresent, SeverityWarning, fmt.Sprintf("%s 只允许晚班，但早班有 %d 人", DateKey(date), counts.AM))
		}
		return results
	}

	if mins.AM > 0 && counts.AM < mins.AM {
		// 早班不足默认只作提示，除非规则明确要求
		severity := SeverityInfo
		if rule != nil && rule.Enabled && rule.EnforceMinAM {
			severity = SeverityWarning
		}
		add(ValidationMinAM, severity, fmt.Sprintf("%s 早班 %d 人，低于最低要求 %d 人", DateKey(date), counts.AM, mins.AM))
	}

	if mins.PM > 0 && counts.PM < mins.PM {
		add(ValidationMinPM, SeverityWarning, fmt.Sprintf("%s 晚班 %d 人，低于最低要求 %d 人", DateKey(date), counts.PM, mins.PM))
	}

	if counts.AM > counts.PM {
		add(ValidationAMExceedsPM, SeverityWarning, fmt.Sprintf("%s 早班 %d 人多于晚班 %d 人", DateKey(date), counts.AM, counts.PM))
	}

	return results
}

// ValidateDay 返回 i 天的校验结果
func (g *Grid) ValidateDay(i int) []ValidationResult {
	return Validate(g.cfg, g.Days[i], g.Counts[i], g.Rules[i])
}

// ValidateDate 校验 date 当天在 scope 门店的排班，结果会被短期缓存
func (e *Engine) ValidateDate(ctx context.Context, date time.Time, scope string) ([]ValidationResult, error) {
	date = Day(date)

	load := func(ctx context.Context) ([]ValidationResult, error) {
		g, err := e.BuildGrid(ctx, date, Filters{LocationScope: scope})
		if err != nil {
			return nil, err
		}
		return g.ValidateDay(g.DayIndex(date)), nil
	}

	if e.cache == nil {
		return load(ctx)
	}
	return e.cache.GetOrLoad(ctx, date, scope, load)
}
