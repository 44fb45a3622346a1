package scheduler

import "errors"

var (
	ErrUnknownEmployee = errors.New("员工不存在")
	ErrUnknownStation  = errors.New("工位不存在")
	ErrUnknownScenario = errors.New("未知的排班场景")
	ErrBadSnapshot     = errors.New("快照数据不完整")
)
