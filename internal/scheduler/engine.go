package scheduler

// Engine 排班引擎，本身不持有可变状态，可以被多个请求并发使用
type Engine struct {
	cfg   Config
	store Store
	cache ValidationCache
}

// NewEngine cache 可以为 nil，此时每次都重新计算校验结果。日志统一写入 slog.Default()
func NewEngine(cfg Config, store Store, cache ValidationCache) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:   cfg,
		store: store,
		cache: cache,
	}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}
