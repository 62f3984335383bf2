package scheduler

import "errors"

var (
	ErrNotFound        = errors.New("记录不存在")
	ErrInvalidInput    = errors.New("输入无效")
	ErrStaleSuggestion = errors.New("调整建议已失效，请刷新后重试")
)
