package scheduler

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

// 内存实现的班次存储，语义与 postgres 实现保持一致：
// 找不到记录和乐观锁版本不匹配都返回 sql.ErrNoRows
type memoryShiftRepository struct {
	mu     sync.Mutex
	shifts map[string]*domain.Shift
}

func newMemoryShiftRepository() *memoryShiftRepository {
	return &memoryShiftRepository{shifts: make(map[string]*domain.Shift)}
}

func (r *memoryShiftRepository) GetShiftByID(id string) (*domain.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	shift, ok := r.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *shift
	return &clone, nil
}

func (r *memoryShiftRepository) GetShiftsByStoreAndWeek(storeID string, weekStart time.Time) ([]*domain.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []*domain.Shift{}
	for _, shift := range r.shifts {
		if shift.StoreID == storeID && shift.WeekStart.Equal(weekStart) {
			clone := *shift
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memoryShiftRepository) GetActiveShiftInCell(cell domain.CellAddress, excludeShiftID string) (*domain.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, shift := range r.shifts {
		if shift.ID != excludeShiftID && shift.IsActive() && shift.Cell().Equal(cell) {
			clone := *shift
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryShiftRepository) InsertShift(shift *domain.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	shift.CreatedAt = time.Now()
	shift.Version = 1
	clone := *shift
	r.shifts[shift.ID] = &clone
	return nil
}

func (r *memoryShiftRepository) UpdateShift(shift *domain.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.shifts[shift.ID]
	if !ok || existing.Version != shift.Version {
		return sql.ErrNoRows
	}
	shift.Version++
	clone := *shift
	r.shifts[shift.ID] = &clone
	return nil
}

func (r *memoryShiftRepository) DeleteShift(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.shifts, id)
	return nil
}

// activeShiftCount 统计某个格子上的有效班次数量，用于断言唯一性
func (r *memoryShiftRepository) activeShiftCount(cell domain.CellAddress) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, shift := range r.shifts {
		if shift.IsActive() && shift.Cell().Equal(cell) {
			count++
		}
	}
	return count
}

type memoryStoreCatalog struct {
	stores map[string]*domain.Store
}

func (c *memoryStoreCatalog) GetStoreByID(id string) (*domain.Store, error) {
	store, ok := c.stores[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return store, nil
}

// 进程内的格子锁，行为等价于 RedisCellLocker
type memoryCellLocker struct {
	mu    sync.Mutex
	cells map[string]chan struct{}
}

func newMemoryCellLocker() *memoryCellLocker {
	return &memoryCellLocker{cells: make(map[string]chan struct{})}
}

func (l *memoryCellLocker) LockCell(ctx context.Context, cell domain.CellAddress) (UnlockFunc, error) {
	key := cellLockKey(cell)

	for {
		l.mu.Lock()
		held, ok := l.cells[key]
		if !ok {
			released := make(chan struct{})
			l.cells[key] = released
			l.mu.Unlock()

			return func() {
				l.mu.Lock()
				delete(l.cells, key)
				l.mu.Unlock()
				close(released)
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-held:
		}
	}
}
