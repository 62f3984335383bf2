package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/config"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
)

// Store 引擎的只读数据加上写接口，由 repository.Repository 实现
type Store interface {
	scheduler.Store

	UpsertOverride(ctx context.Context, change domain.OverrideChange) (*domain.ShiftOverride, error)
	ApplyOverrideChanges(ctx context.Context, changes []domain.OverrideChange) ([]domain.ShiftOverride, error)
	DeactivateOverride(ctx context.Context, id int64) (*domain.ShiftOverride, error)
	UpsertCoverageRule(ctx context.Context, rule *domain.CoverageRule) error
}

// Publisher *amqp.Channel 满足该接口
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Handler 与引擎、缓存一样通过 slog.Default() 记录日志，由 cmd 中的 main 统一设置
type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	engine     *scheduler.Engine
	store      Store
	cache      scheduler.ValidationCache
	translator ut.Translator
	publisher  Publisher

	Mux *chi.Mux
}

// NewHandler cache 和 publisher 可以为 nil
func NewHandler(cfg *config.Config, engine *scheduler.Engine, store Store, cache scheduler.ValidationCache, publisher Publisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		engine:     engine,
		store:      store,
		cache:      cache,
		translator: trans,
		publisher:  publisher,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 令牌由外部认证服务签发，所有接口都需要登录
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/schedule", func(r chi.Router) {
			r.Route("/weeks/{date}", func(r chi.Router) {
				r.Use(h.dateParam)
				r.Get("/", h.GetWeek)
				r.Get("/suggestions", h.GetWeekSuggestions)
				r.Get("/export", h.ExportWeek)
			})
			r.Route("/months/{month}", func(r chi.Router) {
				r.Use(h.monthParam)
				r.Get("/", h.GetMonth)
				r.Get("/export", h.ExportMonth)
			})
			r.With(h.dateParam).Get("/days/{date}/validations", h.GetDayValidations)

			// 调班只有主管和店长可以操作
			r.Group(func(r chi.Router) {
				r.Use(h.RequiredRole([]domain.Role{domain.RoleSupervisor, domain.RoleManager}))
				r.Post("/overrides", h.CreateOverride)
				r.Delete("/overrides/{id}", h.DeactivateOverride)
				r.Post("/suggestions/apply", h.ApplySuggestion)
			})
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager})).Put("/coverage-rules/{dayOfWeek}", h.UpsertCoverageRule)
		})

		r.Route("/employees/{id}", func(r chi.Router) {
			r.Use(h.employeeID)
			r.Get("/availability", h.GetEmployeeAvailability)
			r.Get("/team", h.GetEmployeeTeam)
		})
	})
}
