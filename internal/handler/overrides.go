package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

type overrideResult struct {
	Override    *domain.ShiftOverride        `json:"override"`
	Validations []scheduler.ValidationResult `json:"validations"`
}

func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID         int64  `json:"employeeID" validate:"required,gt=0"`
		Date               string `json:"date" validate:"required,datetime=2006-01-02"`
		Shift              string `json:"shift" validate:"required,oneof=NONE MORNING EVENING COVER_EXT_AM COVER_EXT_PM"`
		Location           string `json:"location" validate:"omitempty,max=32"`
		ExpectedOverrideID *int64 `json:"expectedOverrideID" validate:"omitempty,gt=0"`
		CheckExpected      bool   `json:"checkExpected"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := scheduler.ParseDate(req.Date)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	emp, err := h.store.GetEmployee(r.Context(), req.EmployeeID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusNotFound, "员工不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if !emp.OnRoster() {
		h.errorResponse(w, r, http.StatusBadRequest, "该员工不在排班表中")
		return
	}

	// 和本店相同的门店等同于不填
	location := req.Location
	if location == emp.HomeLocation {
		location = ""
	}
	if location != "" {
		exists, err := h.store.LocationExists(r.Context(), location)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if !exists {
			h.errorResponse(w, r, http.StatusBadRequest, "门店不存在")
			return
		}
	}

	change := domain.OverrideChange{
		EmployeeID:         emp.ID,
		Date:               date,
		Shift:              domain.Shift(req.Shift),
		Location:           location,
		ExpectedOverrideID: req.ExpectedOverrideID,
	}

	// 提供了 expectedOverrideID 或 checkExpected 时，当前调班必须与之一致才会写入
	var ov *domain.ShiftOverride
	if req.CheckExpected || req.ExpectedOverrideID != nil {
		ovs, err := h.store.ApplyOverrideChanges(r.Context(), []domain.OverrideChange{change})
		if err != nil {
			h.scheduleError(w, r, err)
			return
		}
		ov = &ovs[0]
	} else {
		ov, err = h.store.UpsertOverride(r.Context(), change)
		if err != nil {
			h.scheduleError(w, r, err)
			return
		}
	}

	ev := domain.ScheduleEvent{
		Type:     domain.EventOverrideChanged,
		Date:     scheduler.DateKey(date),
		Location: emp.HomeLocation,
		Actor:    actorFrom(r),
		Summary:  fmt.Sprintf("%s %s 调整为 %s", emp.Name, scheduler.DateKey(date), req.Shift),
	}
	results := h.afterWrite(r.Context(), ev, date, emp.HomeLocation, location)

	h.successResponse(w, r, "调班成功", overrideResult{Override: ov, Validations: results})
}

func (h *Handler) DeactivateOverride(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "调班ID无效")
		return
	}

	ov, err := h.store.DeactivateOverride(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusNotFound, "调班不存在或已停用")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	emp, err := h.store.GetEmployee(r.Context(), ov.EmployeeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ev := domain.ScheduleEvent{
		Type:     domain.EventOverrideChanged,
		Date:     scheduler.DateKey(ov.Date),
		Location: emp.HomeLocation,
		Actor:    actorFrom(r),
		Summary:  fmt.Sprintf("%s %s 的调班已撤销", emp.Name, scheduler.DateKey(ov.Date)),
	}
	results := h.afterWrite(r.Context(), ev, ov.Date, emp.HomeLocation, ov.Location)

	h.successResponse(w, r, "撤销调班成功", overrideResult{Override: ov, Validations: results})
}
