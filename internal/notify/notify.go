package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

const TemplateFile = "schedule_event_email.html"

// ErrMalformedEvent 消息本身有问题，重新投递也不会成功
var ErrMalformedEvent = errors.New("无法处理的排班事件")

// Sender 由 *mail.Client 实现
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Notifier struct {
	sender     Sender
	from       string
	fromName   string
	recipients []string
	tmpl       *template.Template
}

func New(sender Sender, from, fromName string, recipients []string, templateDir string) (*Notifier, error) {
	tmpl, err := template.ParseFiles(filepath.Join(templateDir, TemplateFile))
	if err != nil {
		return nil, err
	}

	return &Notifier{
		sender:     sender,
		from:       from,
		fromName:   fromName,
		recipients: recipients,
		tmpl:       tmpl,
	}, nil
}

var typeLabels = map[string]string{
	domain.EventOverrideChanged:     "调班",
	domain.EventSuggestionApplied:   "采纳调整建议",
	domain.EventCoverageRuleChanged: "排班规则变更",
}

type emailData struct {
	Subject   string
	TypeLabel string
	Event     domain.ScheduleEvent
}

// ShouldNotify 只有变动后仍有警告，或者规则本身改变时才需要提醒
func ShouldNotify(ev domain.ScheduleEvent) bool {
	return len(ev.Warnings) > 0 || ev.Type == domain.EventCoverageRuleChanged
}

func Subject(ev domain.ScheduleEvent) string {
	label := typeLabels[ev.Type]
	if ev.Date == "" {
		return fmt.Sprintf("排班系统 - %s", label)
	}
	return fmt.Sprintf("排班系统 - %s %s", ev.Date, label)
}

func (n *Notifier) data(ev domain.ScheduleEvent) emailData {
	return emailData{Subject: Subject(ev), TypeLabel: typeLabels[ev.Type], Event: ev}
}

// Render 渲染邮件正文，便于在发送前检查模板
func (n *Notifier) Render(ev domain.ScheduleEvent) (string, error) {
	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, n.data(ev)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *Notifier) Message(ev domain.ScheduleEvent) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(n.fromName, n.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(n.recipients...); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	d := n.data(ev)
	msg.Subject(d.Subject)
	if err := msg.SetBodyHTMLTemplate(n.tmpl, d); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}

	return msg, nil
}

// Handle 处理一条队列消息。返回 ErrMalformedEvent 时不应重新入队，其他错误可以重试
func (n *Notifier) Handle(ctx context.Context, body []byte) error {
	var ev domain.ScheduleEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if _, ok := typeLabels[ev.Type]; !ok {
		return fmt.Errorf("%w: 未知的事件类型 %q", ErrMalformedEvent, ev.Type)
	}

	if !ShouldNotify(ev) {
		slog.Debug("事件无需提醒", "type", ev.Type, "date", ev.Date)
		return nil
	}
	if len(n.recipients) == 0 {
		slog.Warn("没有配置提醒邮件的收件人", "type", ev.Type, "date", ev.Date)
		return nil
	}

	msg, err := n.Message(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	return n.sender.DialAndSendWithContext(ctx, msg)
}
