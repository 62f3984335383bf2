package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"30"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	// 令牌由外部认证服务签发，这里只负责校验
	JWT struct {
		Secret     string `env:"SECRET,required"`
		CookieName string `env:"COOKIE_NAME" envDefault:"__boutique_shift_token"`
	} `envPrefix:"JWT_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"templates"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Schedule struct {
		WeekStart          int      `env:"WEEK_START" envDefault:"6"`  // 周六
		SpecialDay         int      `env:"SPECIAL_DAY" envDefault:"5"` // 周五
		FloorAM            int      `env:"FLOOR_AM" envDefault:"2"`
		FloorPM            int      `env:"FLOOR_PM" envDefault:"2"`
		ExceptionWindows   []string `env:"EXCEPTION_WINDOWS" envSeparator:","` // 形如 2026-02-18~2026-03-19
		ValidationCacheTTL int      `env:"VALIDATION_CACHE_TTL" envDefault:"60"`
	} `envPrefix:"SCHEDULE_"`
	Notify struct {
		Recipients []string `env:"RECIPIENTS" envSeparator:","`
		Sender     string   `env:"SENDER" envDefault:"排班系统"`
		RetryDelay int      `env:"RETRY_DELAY" envDefault:"5"` // 秒，之后每次翻倍
		MaxDelay   int      `env:"MAX_DELAY" envDefault:"300"` // 秒
		MaxRetries int      `env:"MAX_RETRIES" envDefault:"5"`
	} `envPrefix:"NOTIFY_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// ScheduleConfig 把环境变量中的排班配置转换为引擎配置，启动时校验一次
func (cfg *Config) ScheduleConfig() (scheduler.Config, error) {
	sc := scheduler.Config{
		WeekStart:  time.Weekday(cfg.Schedule.WeekStart),
		SpecialDay: time.Weekday(cfg.Schedule.SpecialDay),
		FloorAM:    cfg.Schedule.FloorAM,
		FloorPM:    cfg.Schedule.FloorPM,
	}

	for _, s := range cfg.Schedule.ExceptionWindows {
		w, err := scheduler.ParseDateRange(s)
		if err != nil {
			return scheduler.Config{}, fmt.Errorf("SCHEDULE_EXCEPTION_WINDOWS: %w", err)
		}
		sc.ExceptionWindows = append(sc.ExceptionWindows, w)
	}

	if err := sc.Validate(); err != nil {
		return scheduler.Config{}, err
	}
	return sc, nil
}

func (cfg *Config) ValidationCacheTTL() time.Duration {
	return time.Duration(cfg.Schedule.ValidationCacheTTL) * time.Second
}
