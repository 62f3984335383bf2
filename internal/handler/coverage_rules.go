package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

func (h *Handler) UpsertCoverageRule(w http.ResponseWriter, r *http.Request) {
	dow, err := strconv.Atoi(chi.URLParam(r, "dayOfWeek"))
	if err != nil || dow < 0 || dow > 6 {
		h.errorResponse(w, r, http.StatusBadRequest, "星期几应为 0 到 6 的整数，0 表示周日")
		return
	}

	var req struct {
		MinAM        *int  `json:"minAm" validate:"required,gte=0,lte=50"`
		MinPM        *int  `json:"minPm" validate:"required,gte=0,lte=50"`
		EnforceMinAM bool  `json:"enforceMinAm"`
		Enabled      *bool `json:"enabled" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	rule := &domain.CoverageRule{
		DayOfWeek:    dow,
		MinAM:        *req.MinAM,
		MinPM:        *req.MinPM,
		EnforceMinAM: req.EnforceMinAM,
		Enabled:      *req.Enabled,
	}
	if err := h.store.UpsertCoverageRule(r.Context(), rule); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 规则影响所有日期，只能清空全部缓存
	if h.cache != nil {
		if err := h.cache.InvalidateAll(r.Context()); err != nil {
			slog.Warn("清除校验缓存失败", "error", err)
		}
	}

	h.publishEvent(domain.ScheduleEvent{
		Type:    domain.EventCoverageRuleChanged,
		Actor:   actorFrom(r),
		Summary: fmt.Sprintf("星期%d 的排班规则更新为早班至少 %d 人、晚班至少 %d 人", dow, rule.MinAM, rule.MinPM),
	})

	h.successResponse(w, r, "排班规则已更新", rule)
}
