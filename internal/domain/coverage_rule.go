package domain

import "time"

// CoverageRule 每个星期几的最低排班人数
type CoverageRule struct {
	ID           int64     `json:"id"`
	DayOfWeek    int       `json:"dayOfWeek"`
	MinAM        int       `json:"minAm"`
	MinPM        int       `json:"minPm"`
	EnforceMinAM bool      `json:"enforceMinAm"` // 为 false 时早班人数不足只作提示
	Enabled      bool      `json:"enabled"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Version      int32     `json:"-"`
}
