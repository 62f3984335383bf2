package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

func (h *Handler) queryDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := scheduler.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "日期格式错误，应为 yyyy-mm-dd")
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) GetEmployeeAvailability(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(EmployeeIDCtxKey).(int64)
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}

	availability, err := h.engine.Availability(r.Context(), id, date, r.URL.Query().Get("location"))
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	res := struct {
		EmployeeID   int64               `json:"employeeID"`
		Date         string              `json:"date"`
		Availability domain.Availability `json:"availabilityStatus"`
	}{
		EmployeeID:   id,
		Date:         scheduler.DateKey(date),
		Availability: availability,
	}

	h.successResponse(w, r, "获取出勤状态成功", res)
}

func (h *Handler) GetEmployeeTeam(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(EmployeeIDCtxKey).(int64)
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}

	team, err := h.engine.ResolveTeam(r.Context(), id, date)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	res := struct {
		EmployeeID int64        `json:"employeeID"`
		Date       string       `json:"date"`
		Team       domain.Team  `json:"team"`
		BaseShift  domain.Shift `json:"baseShift"`
	}{
		EmployeeID: id,
		Date:       scheduler.DateKey(date),
		Team:       team,
		BaseShift:  scheduler.BaseShift(h.engine.Config(), team, date),
	}

	h.successResponse(w, r, "获取班组成功", res)
}
