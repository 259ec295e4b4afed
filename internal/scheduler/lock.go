package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/workshift-dev/shift-calendar/backend/internal/calendar"
	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

type UnlockFunc func()

// CellLocker 串行化对同一个格子的 冲突检查 + 写入
// LockCell 在 ctx 超时前获取不到锁时返回错误，不会无限等待
type CellLocker interface {
	LockCell(ctx context.Context, cell domain.CellAddress) (UnlockFunc, error)
}

// RedisCellLocker 用 SET NX + 过期时间实现格子级别的租约锁
// 过期时间保证持有者崩溃后锁不会永久卡住
type RedisCellLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

func NewRedisCellLocker(client *redis.Client, ttl time.Duration) *RedisCellLocker {
	return &RedisCellLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: 20 * time.Millisecond,
	}
}

// 只允许删除自己持有的锁，防止释放掉别人在租约过期后重新获取的锁
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

func cellLockKey(cell domain.CellAddress) string {
	return fmt.Sprintf("shift_cell_lock_%s_%s_%d_%s", cell.StoreID, calendar.FormatWeekStart(cell.WeekStart), cell.DayOfWeek, cell.TimeSlot)
}

func (l *RedisCellLocker) LockCell(ctx context.Context, cell domain.CellAddress) (UnlockFunc, error) {
	key := cellLockKey(cell)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	unlock := func() {
		// 这里不使用调用方的 ctx，保证即使请求已经结束锁也能被释放
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		l.client.Eval(ctx, unlockScript, []string{key}, token)
	}

	return unlock, nil
}
