package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/export"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
	"github.com/xuri/excelize/v2"
)

// filterRequest 排班表筛选条件，查询参数和请求体共用
type filterRequest struct {
	Team             *string `json:"team" validate:"omitempty,oneof=A B"`
	EmployeeID       *int64  `json:"employeeID" validate:"omitempty,gt=0"`
	LocationScope    string  `json:"locationScope" validate:"omitempty,max=32"`
	IncludeGuestRows bool    `json:"includeGuestRows"`
}

func (f filterRequest) filters() scheduler.Filters {
	out := scheduler.Filters{
		EmployeeID:       f.EmployeeID,
		LocationScope:    f.LocationScope,
		IncludeGuestRows: f.IncludeGuestRows,
	}
	if f.Team != nil {
		team := domain.Team(*f.Team)
		out.Team = &team
	}
	return out
}

func (h *Handler) readFilters(r *http.Request) (scheduler.Filters, error) {
	q := r.URL.Query()
	req := filterRequest{LocationScope: q.Get("location")}

	if v := q.Get("team"); v != "" {
		req.Team = &v
	}
	if v := q.Get("employee"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return scheduler.Filters{}, errors.New("员工ID无效")
		}
		req.EmployeeID = &id
	}
	if v := q.Get("guests"); v != "" {
		guests, err := strconv.ParseBool(v)
		if err != nil {
			return scheduler.Filters{}, errors.New("guests 参数无效")
		}
		req.IncludeGuestRows = guests
	}

	if err := h.validate.Struct(req); err != nil {
		return scheduler.Filters{}, err
	}
	return req.filters(), nil
}

func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	date := r.Context().Value(DateCtxKey).(time.Time)

	f, err := h.readFilters(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	g, err := h.engine.BuildGrid(r.Context(), date, f)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班表成功", g)
}

func (h *Handler) GetWeekSuggestions(w http.ResponseWriter, r *http.Request) {
	date := r.Context().Value(DateCtxKey).(time.Time)

	f, err := h.readFilters(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	g, suggestions, err := h.engine.Suggestions(r.Context(), date, f)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	res := struct {
		WeekStart   time.Time              `json:"weekStart"`
		Counts      []scheduler.DayCounts  `json:"counts"`
		Suggestions []scheduler.Suggestion `json:"suggestions"`
	}{
		WeekStart:   g.WeekStart,
		Counts:      g.Counts,
		Suggestions: suggestions,
	}

	h.successResponse(w, r, "获取调整建议成功", res)
}

func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	month := r.Context().Value(MonthCtxKey).(time.Time)

	f, err := h.readFilters(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	days, err := h.engine.BuildMonth(r.Context(), month, f)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取月度排班成功", days)
}

func (h *Handler) GetDayValidations(w http.ResponseWriter, r *http.Request) {
	date := r.Context().Value(DateCtxKey).(time.Time)

	results, err := h.engine.ValidateDate(r.Context(), date, r.URL.Query().Get("location"))
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班提醒成功", results)
}

func (h *Handler) ExportWeek(w http.ResponseWriter, r *http.Request) {
	date := r.Context().Value(DateCtxKey).(time.Time)

	f, err := h.readFilters(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	g, err := h.engine.BuildGrid(r.Context(), date, f)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	book, err := export.WeekWorkbook(g)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeWorkbook(w, r, book, fmt.Sprintf("排班表_%s.xlsx", scheduler.DateKey(g.WeekStart)))
}

func (h *Handler) ExportMonth(w http.ResponseWriter, r *http.Request) {
	month := r.Context().Value(MonthCtxKey).(time.Time)

	f, err := h.readFilters(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	days, err := h.engine.BuildMonth(r.Context(), month, f)
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	book, err := export.MonthWorkbook(days)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeWorkbook(w, r, book, fmt.Sprintf("月度排班_%s.xlsx", month.Format(scheduler.MonthLayout)))
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, book *excelize.File, filename string) {
	defer func() { _ = book.Close() }()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.WriteHeader(http.StatusOK)

	// 响应头已经写出，这里只能记录错误
	if _, err := book.WriteTo(w); err != nil {
		slog.Error("导出表格失败", "path", r.URL.Path, "error", err)
	}
}
