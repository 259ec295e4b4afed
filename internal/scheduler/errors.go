package scheduler

import "errors"

// 引擎所有业务错误都归入以下五类，调用方通过 errors.Is 判断
// 这些错误都是可恢复的：换个参数重试或重新拉取数据即可
var (
	ErrForbidden    = errors.New("无权执行此操作")
	ErrConflict     = errors.New("目标时段已有有效班次")
	ErrInvalidState = errors.New("班次当前状态不允许此操作")
	ErrValidation   = errors.New("无效的班次参数")
	ErrNotFound     = errors.New("班次不存在")
)
