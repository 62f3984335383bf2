package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

// ApplySuggestion 重新计算同一周的建议，确认建议依然存在后在一个事务中写入全部调班。
// 每条调班都以建议计算时的调班 ID 为前提，期间被他人修改过就整体放弃
func (h *Handler) ApplySuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SuggestionID string        `json:"suggestionID" validate:"required,uuid"`
		WeekStart    string        `json:"weekStart" validate:"required,datetime=2006-01-02"`
		Filters      filterRequest `json:"filters"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	weekStart, err := scheduler.ParseDate(req.WeekStart)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	f := req.Filters.filters()

	s, err := h.engine.FindSuggestion(r.Context(), weekStart, f, req.SuggestionID)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	changes := make([]domain.OverrideChange, 0, len(s.Changes))
	for _, c := range s.Changes {
		changes = append(changes, domain.OverrideChange{
			EmployeeID:         c.EmployeeID,
			Date:               c.Date,
			Shift:              c.To,
			ExpectedOverrideID: c.OverrideID,
		})
	}

	// 记下将被替换的调班，它们所在门店的缓存也要失效
	before, err := h.store.ListActiveOverrides(r.Context(), s.AffectedEmployees, s.Date, s.Date)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	overrides, err := h.store.ApplyOverrideChanges(r.Context(), changes)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	scopes, err := h.overrideScopes(r.Context(), s.AffectedEmployees, before, overrides)
	if err != nil {
		slog.Warn("无法确定受影响的门店，清除全部校验缓存", "date", scheduler.DateKey(s.Date), "error", err)
		if h.cache != nil {
			if err := h.cache.InvalidateAll(r.Context()); err != nil {
				slog.Warn("清除校验缓存失败", "error", err)
			}
		}
	}

	ev := domain.ScheduleEvent{
		Type:     domain.EventSuggestionApplied,
		Date:     scheduler.DateKey(s.Date),
		Location: f.LocationScope,
		Actor:    actorFrom(r),
		Summary:  strings.TrimSpace(s.Reason),
	}
	results := h.afterWrite(r.Context(), ev, s.Date, append(scopes, f.LocationScope)...)

	res := struct {
		Suggestion  *scheduler.Suggestion        `json:"suggestion"`
		Overrides   []domain.ShiftOverride       `json:"overrides"`
		Validations []scheduler.ValidationResult `json:"validations"`
	}{
		Suggestion:  s,
		Overrides:   overrides,
		Validations: results,
	}

	h.successResponse(w, r, "调整建议已应用", res)
}
