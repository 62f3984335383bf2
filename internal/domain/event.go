package domain

const ScheduleEventQueue = "schedule_events"

const (
	EventOverrideChanged     = "override_changed"
	EventSuggestionApplied   = "suggestion_applied"
	EventCoverageRuleChanged = "coverage_rule_changed"
)

// ScheduleEvent 写操作完成后投递到消息队列，由 notifier 发送提醒邮件
type ScheduleEvent struct {
	Type     string   `json:"type"`
	Date     string   `json:"date"`
	Location string   `json:"location"`
	Actor    string   `json:"actor"`
	Summary  string   `json:"summary"`
	Warnings []string `json:"warnings"`
}
