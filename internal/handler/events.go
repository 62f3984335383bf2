package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

// afterWrite 写入成功后让相关的校验缓存失效，重新校验当天并投递事件，返回重新校验的结果。
// 这里的失败都只记录日志，写入本身已经提交
func (h *Handler) afterWrite(ctx context.Context, ev domain.ScheduleEvent, date time.Time, scopes ...string) []scheduler.ValidationResult {
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, date, scopes...); err != nil {
			slog.Warn("清除校验缓存失败", "date", scheduler.DateKey(date), "error", err)
		}
	}

	results, err := h.engine.ValidateDate(ctx, date, ev.Location)
	if err != nil {
		slog.Warn("写入后重新校验失败", "date", scheduler.DateKey(date), "error", err)
	}
	for _, v := range results {
		if v.Severity == scheduler.SeverityWarning {
			ev.Warnings = append(ev.Warnings, v.Message)
		}
	}

	h.publishEvent(ev)
	return results
}

// overrideScopes 调班会影响员工本店以及调班所在门店的校验结果，before 是写入前当天的有效调班
func (h *Handler) overrideScopes(ctx context.Context, employeeIDs []int64, before, after []domain.ShiftOverride) ([]string, error) {
	emps, err := h.store.GetEmployeesByIDs(ctx, employeeIDs)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{"": true}
	scopes := []string{}
	add := func(scope string) {
		if !seen[scope] {
			seen[scope] = true
			scopes = append(scopes, scope)
		}
	}
	for _, emp := range emps {
		add(emp.HomeLocation)
	}
	for _, ov := range before {
		add(ov.Location)
	}
	for _, ov := range after {
		add(ov.Location)
	}
	return scopes, nil
}

func (h *Handler) publishEvent(ev domain.ScheduleEvent) {
	if h.publisher == nil {
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		slog.Error("序列化排班事件失败", "type", ev.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.publisher.PublishWithContext(
		ctx,
		"",
		domain.ScheduleEventQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		slog.Error("投递排班事件失败", "type", ev.Type, "date", ev.Date, "error", err)
	}
}
