package notify

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RetryHeader 记录消息因为发送失败被重新投递的次数
const RetryHeader = "x-retry-count"

// RetryPolicy 发送失败后按指数退避重新投递，超过 MaxRetries 次后丢弃
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// RetryCount 读取消息头中的重试次数，没有时为 0
func RetryCount(headers amqp.Table) int {
	switch v := headers[RetryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Delay 第 attempt 次重试前需要等待的时间
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxRetries
}

// Retry 构造重新投递的消息，保留原消息体并递增重试次数
func Retry(msg amqp.Delivery) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[RetryHeader] = int32(RetryCount(msg.Headers) + 1)

	return amqp.Publishing{
		Headers:      headers,
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		Body:         msg.Body,
	}
}
