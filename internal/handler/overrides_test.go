package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler/schedulertest"
)

func activeOverrides(s *fakeStore, employeeID int64, date string) []domain.ShiftOverride {
	s.Lock()
	defer s.Unlock()
	var out []domain.ShiftOverride
	for _, ov := range s.Overrides {
		if ov.IsActive && ov.EmployeeID == employeeID && scheduler.DateKey(ov.Date) == date {
			out = append(out, ov)
		}
	}
	return out
}

func TestCreateOverride(t *testing.T) {
	ts := newTestServer(t, defaultRoster())

	var res struct {
		Override    domain.ShiftOverride         `json:"override"`
		Validations []scheduler.ValidationResult `json:"validations"`
	}
	body := map[string]any{"employeeID": 4, "date": "2026-01-06", "shift": "EVENING"}
	rec := ts.do(t, http.MethodPost, "/schedule/overrides", body, domain.RoleSupervisor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)

	assert.Equal(t, domain.ShiftEvening, res.Override.Shift)
	// 调班后早晚各 4 人，不再提示早班多于晚班
	for _, v := range res.Validations {
		assert.NotEqual(t, scheduler.ValidationAMExceedsPM, v.Type)
	}

	active := activeOverrides(ts.store, 4, "2026-01-06")
	require.Len(t, active, 1)
	first := active[0].ID

	require.Len(t, ts.pub.events, 1)
	ev := ts.pub.events[0]
	assert.Equal(t, domain.EventOverrideChanged, ev.Type)
	assert.Equal(t, "2026-01-06", ev.Date)
	assert.Equal(t, "测试主管", ev.Actor)
	assert.Contains(t, ts.cache.invalidated, "2026-01-06")

	// 同一天再次调班会替换原有调班，始终只有一条有效
	body["shift"] = "MORNING"
	rec = ts.do(t, http.MethodPost, "/schedule/overrides", body, domain.RoleManager)
	require.Equal(t, http.StatusOK, rec.Code)
	active = activeOverrides(ts.store, 4, "2026-01-06")
	require.Len(t, active, 1)
	assert.NotEqual(t, first, active[0].ID)

	// 期望的调班已被替换，拒绝写入
	body["expectedOverrideID"] = first
	rec = ts.do(t, http.MethodPost, "/schedule/overrides", body, domain.RoleManager)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateOverrideRejectsBadInput(t *testing.T) {
	store := defaultRoster()
	store.Locations = append(store.Locations, "AUH")
	ts := newTestServer(t, store)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{name: "未知班次", body: map[string]any{"employeeID": 1, "date": "2026-01-06", "shift": "NIGHT"}, code: http.StatusBadRequest},
		{name: "日期格式错误", body: map[string]any{"employeeID": 1, "date": "06/01/2026", "shift": "EVENING"}, code: http.StatusBadRequest},
		{name: "缺少员工", body: map[string]any{"date": "2026-01-06", "shift": "EVENING"}, code: http.StatusBadRequest},
		{name: "未知字段", body: map[string]any{"employeeID": 1, "date": "2026-01-06", "shift": "EVENING", "force": true}, code: http.StatusBadRequest},
		{name: "员工不存在", body: map[string]any{"employeeID": 99, "date": "2026-01-06", "shift": "EVENING"}, code: http.StatusNotFound},
		{name: "门店不存在", body: map[string]any{"employeeID": 1, "date": "2026-01-06", "shift": "EVENING", "location": "SHJ"}, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/schedule/overrides", tt.body, domain.RoleManager)
			assert.Equal(t, tt.code, rec.Code)
			res := decode(t, rec, nil)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}

	assert.Empty(t, ts.pub.events)

	// 调去其他门店上班
	body := map[string]any{"employeeID": 1, "date": "2026-01-06", "shift": "MORNING", "location": "AUH"}
	rec := ts.do(t, http.MethodPost, "/schedule/overrides", body, domain.RoleManager)
	require.Equal(t, http.StatusOK, rec.Code)
	active := activeOverrides(ts.store, 1, "2026-01-06")
	require.Len(t, active, 1)
	assert.Equal(t, "AUH", active[0].Location)
}

func TestDeactivateOverride(t *testing.T) {
	store := defaultRoster()
	store.Overrides = []domain.ShiftOverride{{
		ID:         10,
		EmployeeID: 2,
		Date:       schedulertest.MustDate("2026-01-07"),
		Shift:      domain.ShiftEvening,
		IsActive:   true,
	}}
	ts := newTestServer(t, store)

	rec := ts.do(t, http.MethodDelete, "/schedule/overrides/10", nil, domain.RoleSupervisor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, activeOverrides(ts.store, 2, "2026-01-07"))
	require.Len(t, ts.pub.events, 1)
	assert.Equal(t, "2026-01-07", ts.pub.events[0].Date)

	rec = ts.do(t, http.MethodDelete, "/schedule/overrides/10", nil, domain.RoleSupervisor)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/schedule/overrides/abc", nil, domain.RoleSupervisor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertCoverageRule(t *testing.T) {
	ts := newTestServer(t, defaultRoster())

	var rule domain.CoverageRule
	body := map[string]any{"minAm": 3, "minPm": 4, "enforceMinAm": true, "enabled": true}
	rec := ts.do(t, http.MethodPut, "/schedule/coverage-rules/2", body, domain.RoleManager)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &rule)

	assert.Equal(t, 2, rule.DayOfWeek)
	assert.Equal(t, 3, rule.MinAM)
	assert.True(t, rule.EnforceMinAM)
	require.Len(t, ts.store.Rules, 1)
	assert.Equal(t, 1, ts.cache.cleared)
	require.Len(t, ts.pub.events, 1)
	assert.Equal(t, domain.EventCoverageRuleChanged, ts.pub.events[0].Type)

	// 周二（2026-01-06）晚班 3 人，低于新规则的 4 人
	var results []scheduler.ValidationResult
	rec = ts.do(t, http.MethodGet, "/schedule/days/2026-01-06/validations", nil, domain.RoleStaff)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &results)
	var minPM *scheduler.ValidationResult
	for i := range results {
		if results[i].Type == scheduler.ValidationMinPM {
			minPM = &results[i]
		}
	}
	require.NotNil(t, minPM)
	assert.Equal(t, 4, minPM.MinPM)

	rec = ts.do(t, http.MethodPut, "/schedule/coverage-rules/7", body, domain.RoleManager)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/schedule/coverage-rules/2", map[string]any{"minAm": 3, "minPm": 4}, domain.RoleManager)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/schedule/coverage-rules/2", map[string]any{"minAm": -1, "minPm": 4, "enabled": true}, domain.RoleManager)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
