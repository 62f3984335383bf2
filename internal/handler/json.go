package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/repository"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("请求体格式错误")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, validationErrors[0].Translate(h.translator))
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// scheduleError 把引擎和仓储层的错误转换成响应
func (h *Handler) scheduleError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, scheduler.ErrInvalidInput):
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrNotFound):
		h.errorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		h.errorResponse(w, r, http.StatusNotFound, "记录不存在")
	case errors.Is(err, scheduler.ErrStaleSuggestion):
		h.errorResponse(w, r, http.StatusConflict, scheduler.ErrStaleSuggestion.Error())
	case errors.Is(err, repository.ErrVersionConflict):
		h.errorResponse(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &pgErr):
		switch pgErr.ConstraintName {
		case "shift_overrides_one_active_idx":
			h.errorResponse(w, r, http.StatusConflict, "该员工当天已有生效的调班，请刷新后重试")
		case "shift_overrides_employee_id_fkey":
			h.errorResponse(w, r, http.StatusBadRequest, "员工不存在")
		case "shift_overrides_location_fkey":
			h.errorResponse(w, r, http.StatusBadRequest, "门店不存在")
		default:
			h.internalServerError(w, r, err)
		}
	default:
		h.internalServerError(w, r, err)
	}
}
