package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/config"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/notify"
	"github.com/wneessen/go-mail"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	// 验证邮件客户端是否连接成功
	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	notifier, err := notify.New(client, cfg.Email.SMTP.Username, cfg.Notify.Sender, cfg.Notify.Recipients, cfg.Email.TemplateDir)
	if err != nil {
		logger.Error("无法解析邮件模板", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 声明队列，与 api 服务保持一致
	q, err := ch.QueueDeclare(
		domain.ScheduleEventQueue, // 队列名称
		true,                      // 是否持久化
		false,                     // 是否自动删除，设置为 false 可以避免没有消费者的时候自动删除队列
		false,                     // 是否独占
		false,                     // 是否不等待
		nil,                       // 额外参数
	)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 消费消息
	msgs, err := ch.Consume(
		q.Name, // 队列
		"",     // 消费者标识，由 RabbitMQ 自动分配
		false,  // 手动确认
		false,  // 是否独占队列
		false,  // RabbitMQ 不支持 noLocal，必须为 false
		false,  // 是否不等待
		nil,    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	retry := notify.RetryPolicy{
		BaseDelay:  time.Duration(cfg.Notify.RetryDelay) * time.Second,
		MaxDelay:   time.Duration(cfg.Notify.MaxDelay) * time.Second,
		MaxRetries: cfg.Notify.MaxRetries,
	}

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}

				logger.Info("收到排班事件", slog.String("message", string(msg.Body)))
				err := notifier.Handle(ctx, msg.Body)
				switch {
				case err == nil:
					_ = msg.Ack(false)
				case errors.Is(err, notify.ErrMalformedEvent):
					logger.Error("丢弃无法处理的排班事件", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
				default:
					attempt := notify.RetryCount(msg.Headers)
					if retry.Exhausted(attempt) {
						logger.Error("邮件多次发送失败，丢弃排班事件", slog.Int("attempts", attempt+1), slog.String("error", err.Error()))
						_ = msg.Nack(false, false)
						continue
					}

					delay := retry.Delay(attempt)
					logger.Error("邮件发送失败，稍后重试", slog.Int("attempt", attempt+1), slog.Duration("delay", delay), slog.String("error", err.Error()))
					select {
					case <-ctx.Done():
						_ = msg.Nack(false, true) // 退出前将消息重新入队
						return
					case <-time.After(delay):
					}

					// 带上重试次数重新发布，成功后再确认原消息
					publishCtx, cancelPublish := context.WithTimeout(ctx, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
					err := ch.PublishWithContext(publishCtx, "", q.Name, true, false, notify.Retry(msg))
					cancelPublish()
					if err != nil {
						logger.Error("无法重新发布排班事件", slog.String("error", err.Error()))
						_ = msg.Nack(false, true) // 将消息重新入队
						continue
					}
					_ = msg.Ack(false)
				}
			}
		}
	}()

	// 等待 CTRL+C 信号
	logger.Info("等待排班事件...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出
	logger.Info("正在关闭 notifier...")
	cancel()
	wg.Wait()
	logger.Info("notifier 已成功关闭")
}
