package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

func TestWeekIndex(t *testing.T) {
	cfg := DefaultConfig()

	// 2026 年第一个周六是 1 月 3 日
	assert.Equal(t, -1, WeekIndex(cfg, mustDate("2026-01-01")))
	assert.Equal(t, -1, WeekIndex(cfg, mustDate("2026-01-02")))
	assert.Equal(t, 0, WeekIndex(cfg, mustDate("2026-01-03")))
	assert.Equal(t, 0, WeekIndex(cfg, mustDate("2026-01-09")))
	assert.Equal(t, 1, WeekIndex(cfg, mustDate("2026-01-10")))
	assert.Equal(t, 51, WeekIndex(cfg, mustDate("2026-12-31")))
}

func TestBaseShift(t *testing.T) {
	cfg := DefaultConfig()

	// 偶数周的周二
	tue := mustDate("2026-01-06")
	require.Equal(t, 0, WeekIndex(cfg, tue))
	assert.Equal(t, domain.ShiftMorning, BaseShift(cfg, domain.TeamA, tue))
	assert.Equal(t, domain.ShiftEvening, BaseShift(cfg, domain.TeamB, tue))

	// 奇数周反过来
	nextTue := tue.AddDate(0, 0, 7)
	assert.Equal(t, domain.ShiftEvening, BaseShift(cfg, domain.TeamA, nextTue))
	assert.Equal(t, domain.ShiftMorning, BaseShift(cfg, domain.TeamB, nextTue))

	// 特殊日两组都是晚班
	fri := mustDate("2026-01-09")
	assert.Equal(t, domain.ShiftEvening, BaseShift(cfg, domain.TeamA, fri))
	assert.Equal(t, domain.ShiftEvening, BaseShift(cfg, domain.TeamB, fri))
}

func TestBaseShiftInsideExceptionWindow(t *testing.T) {
	cfg := DefaultConfig()
	window, err := ParseDateRange("2026-02-18~2026-03-19")
	require.NoError(t, err)
	cfg.ExceptionWindows = []DateRange{window}

	fri := mustDate("2026-02-20")
	require.Equal(t, time.Friday, fri.Weekday())
	assert.False(t, cfg.IsSpecialDay(fri))

	even := WeekIndex(cfg, fri)%2 == 0
	if even {
		assert.Equal(t, domain.ShiftMorning, BaseShift(cfg, domain.TeamA, fri))
	} else {
		assert.Equal(t, domain.ShiftEvening, BaseShift(cfg, domain.TeamA, fri))
	}
	assert.NotEqual(t, BaseShift(cfg, domain.TeamA, fri), BaseShift(cfg, domain.TeamB, fri))

	assert.True(t, cfg.IsSpecialDay(mustDate("2026-03-20")), "窗口结束后恢复特殊日")
}

func TestEffectiveShift(t *testing.T) {
	ov := &domain.ShiftOverride{ID: 1, Shift: domain.ShiftCoverExtPM, IsActive: true}
	inactive := &domain.ShiftOverride{ID: 2, Shift: domain.ShiftCoverExtPM}

	assert.Equal(t, domain.ShiftMorning, EffectiveShift(domain.AvailabilityWork, domain.ShiftMorning, nil))
	assert.Equal(t, domain.ShiftCoverExtPM, EffectiveShift(domain.AvailabilityWork, domain.ShiftMorning, ov))
	assert.Equal(t, domain.ShiftMorning, EffectiveShift(domain.AvailabilityWork, domain.ShiftMorning, inactive))

	for _, a := range []domain.Availability{domain.AvailabilityLeave, domain.AvailabilityOff, domain.AvailabilityAbsent} {
		assert.Equal(t, domain.ShiftNone, EffectiveShift(a, domain.ShiftMorning, ov), a)
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, mustDate("2026-01-03"), cfg.WeekStartOf(mustDate("2026-01-03")))
	assert.Equal(t, mustDate("2026-01-03"), cfg.WeekStartOf(mustDate("2026-01-09")))
	assert.Equal(t, mustDate("2026-01-10"), cfg.WeekStartOf(time.Date(2026, 1, 12, 15, 30, 0, 0, time.UTC)))

	bad := cfg
	bad.SpecialDay = 7
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = cfg
	bad.FloorPM = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = cfg
	bad.ExceptionWindows = []DateRange{{From: mustDate("2026-03-01"), To: mustDate("2026-02-01")}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	_, err := NewEngine(bad, &memStore{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange(" 2026-02-18~2026-03-19 ")
	require.NoError(t, err)
	assert.True(t, r.Contains(mustDate("2026-02-18")))
	assert.True(t, r.Contains(mustDate("2026-03-19")))
	assert.False(t, r.Contains(mustDate("2026-03-20")))

	for _, s := range []string{"2026-02-18", "2026-02-18~xx", "2026-03-19~2026-02-18"} {
		_, err := ParseDateRange(s)
		assert.ErrorIs(t, err, ErrInvalidInput, s)
	}
}
