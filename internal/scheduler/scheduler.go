package scheduler

import (
	"context"
	"time"

	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

// ShiftRepository 是引擎唯一允许的班次写入口
// GetActiveShiftInCell 在格子空闲时返回 (nil, nil)
type ShiftRepository interface {
	GetShiftByID(id string) (*domain.Shift, error)
	GetShiftsByStoreAndWeek(storeID string, weekStart time.Time) ([]*domain.Shift, error)
	GetActiveShiftInCell(cell domain.CellAddress, excludeShiftID string) (*domain.Shift, error)
	InsertShift(shift *domain.Shift) error
	UpdateShift(shift *domain.Shift) error
	DeleteShift(id string) error
}

// StoreCatalog 提供门店及其时段配置，对引擎来说是只读的外部协作者
type StoreCatalog interface {
	GetStoreByID(id string) (*domain.Store, error)
}

// Engine 负责所有班次变更的鉴权、参数校验、冲突检测和状态流转
// 除引擎外的任何组件都不允许直接修改班次状态
type Engine struct {
	shifts      ShiftRepository
	stores      StoreCatalog
	locker      CellLocker
	lockTimeout time.Duration
}

func New(shifts ShiftRepository, stores StoreCatalog, locker CellLocker, lockTimeout time.Duration) *Engine {
	return &Engine{
		shifts:      shifts,
		stores:      stores,
		locker:      locker,
		lockTimeout: lockTimeout,
	}
}

func (e *Engine) lockContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.lockTimeout)
}
