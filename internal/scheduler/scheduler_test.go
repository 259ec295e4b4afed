package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshift-dev/shift-calendar/backend/internal/calendar"
	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

var (
	testAdmin = &domain.User{ID: "admin-1", Name: "管理员", Role: domain.RoleAdmin}
	testUserA = &domain.User{ID: "user-1", Name: "张伟", Role: domain.RoleUser, StoreIDs: []string{"store-1"}}
	testUserB = &domain.User{ID: "user-2", Name: "李敏", Role: domain.RoleUser, StoreIDs: []string{"store-1"}}
	testWeek  = calendar.NormalizeWeekStart(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
)

func newTestEngine() (*Engine, *memoryShiftRepository) {
	repo := newMemoryShiftRepository()
	catalog := &memoryStoreCatalog{stores: map[string]*domain.Store{
		"store-1": {ID: "store-1", Name: "市中心店", TimeSlots: []string{"9-17", "17-21"}},
	}}
	engine := New(repo, catalog, newMemoryCellLocker(), 200*time.Millisecond)
	return engine, repo
}

func createParams(day int32, slot string) CreateShiftParams {
	return CreateShiftParams{
		StoreID:   "store-1",
		WeekStart: testWeek,
		DayOfWeek: day,
		TimeSlot:  slot,
		Type:      domain.ShiftTypeMorning,
	}
}

func TestCreateShift(t *testing.T) {
	ctx := context.Background()

	t.Run("创建成功且初始状态为待审批", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)
		assert.Equal(t, domain.ShiftStatusPending, shift.Status)
		assert.Equal(t, testUserA.ID, shift.UserID)
		assert.Equal(t, testUserA.Name, shift.UserName)
		assert.NotEmpty(t, shift.ID)
	})

	t.Run("管理员创建的班次同样是待审批", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testAdmin, createParams(0, "9-17"))
		require.NoError(t, err)
		assert.Equal(t, domain.ShiftStatusPending, shift.Status)
	})

	t.Run("周起始日期被归一化到周一", func(t *testing.T) {
		engine, _ := newTestEngine()

		params := createParams(0, "9-17")
		params.WeekStart = time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC) // 周三
		shift, err := engine.CreateShift(ctx, testUserA, params)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-03", calendar.FormatWeekStart(shift.WeekStart))
	})

	t.Run("同一格子的第二个班次被拒绝", func(t *testing.T) {
		engine, repo := newTestEngine()

		_, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		_, err = engine.CreateShift(ctx, testUserB, createParams(0, "9-17"))
		assert.ErrorIs(t, err, ErrConflict)

		cell := domain.CellAddress{StoreID: "store-1", WeekStart: testWeek, DayOfWeek: 0, TimeSlot: "9-17"}
		assert.Equal(t, 1, repo.activeShiftCount(cell))
	})

	t.Run("不同格子互不冲突", func(t *testing.T) {
		engine, _ := newTestEngine()

		_, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		_, err = engine.CreateShift(ctx, testUserB, createParams(0, "17-21"))
		assert.NoError(t, err)

		_, err = engine.CreateShift(ctx, testUserB, createParams(1, "9-17"))
		assert.NoError(t, err)
	})

	t.Run("参数校验", func(t *testing.T) {
		engine, _ := newTestEngine()

		_, err := engine.CreateShift(ctx, testUserA, createParams(7, "9-17"))
		assert.ErrorIs(t, err, ErrValidation)

		_, err = engine.CreateShift(ctx, testUserA, createParams(-1, "9-17"))
		assert.ErrorIs(t, err, ErrValidation)

		_, err = engine.CreateShift(ctx, testUserA, createParams(0, "22-23"))
		assert.ErrorIs(t, err, ErrValidation)

		params := createParams(0, "9-17")
		params.Type = domain.ShiftType("afternoon")
		_, err = engine.CreateShift(ctx, testUserA, params)
		assert.ErrorIs(t, err, ErrValidation)

		params = createParams(0, "9-17")
		params.StoreID = "store-404"
		_, err = engine.CreateShift(ctx, testAdmin, params)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("非门店成员不能创建班次", func(t *testing.T) {
		engine, _ := newTestEngine()

		outsider := &domain.User{ID: "user-3", Name: "王强", Role: domain.RoleUser, StoreIDs: []string{"store-2"}}
		_, err := engine.CreateShift(ctx, outsider, createParams(0, "9-17"))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("只有管理员可以为他人创建班次", func(t *testing.T) {
		engine, _ := newTestEngine()

		params := createParams(0, "9-17")
		params.UserID = testUserB.ID
		params.UserName = testUserB.Name
		_, err := engine.CreateShift(ctx, testUserA, params)
		assert.ErrorIs(t, err, ErrForbidden)

		shift, err := engine.CreateShift(ctx, testAdmin, params)
		require.NoError(t, err)
		assert.Equal(t, testUserB.ID, shift.UserID)
	})
}

func TestCheckConflict(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	cell := domain.CellAddress{StoreID: "store-1", WeekStart: testWeek, DayOfWeek: 0, TimeSlot: "9-17"}

	// 空格子：探测结果与随后的创建结果一致
	occupied, err := engine.CheckConflict(testUserA, cell, "")
	require.NoError(t, err)
	assert.Nil(t, occupied)

	shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
	require.NoError(t, err)

	// 已占用：探测到冲突，创建也会失败
	occupied, err = engine.CheckConflict(testUserB, cell, "")
	require.NoError(t, err)
	require.NotNil(t, occupied)
	assert.Equal(t, shift.ID, occupied.ID)

	_, err = engine.CreateShift(ctx, testUserB, createParams(0, "9-17"))
	assert.ErrorIs(t, err, ErrConflict)

	// 排除掉自己之后格子视为空闲，移动前的探测依赖这一点
	occupied, err = engine.CheckConflict(testUserA, cell, shift.ID)
	require.NoError(t, err)
	assert.Nil(t, occupied)
}

func TestMoveShift(t *testing.T) {
	ctx := context.Background()

	t.Run("移动到空格子并释放原格子", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		moved, err := engine.MoveShift(ctx, testUserA, shift.ID, 1, "9-17")
		require.NoError(t, err)
		assert.Equal(t, int32(1), moved.DayOfWeek)
		assert.Equal(t, shift.Status, moved.Status)

		// 原格子已经空出来，其他人可以占用
		_, err = engine.CreateShift(ctx, testUserB, createParams(0, "9-17"))
		assert.NoError(t, err)
	})

	t.Run("移动到被占用的格子失败且不影响原班次", func(t *testing.T) {
		engine, _ := newTestEngine()

		a, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)
		_, err = engine.CreateShift(ctx, testUserB, createParams(1, "9-17"))
		require.NoError(t, err)

		_, err = engine.MoveShift(ctx, testUserA, a.ID, 1, "9-17")
		assert.ErrorIs(t, err, ErrConflict)

		current, err := engine.ListShifts(testUserA, "store-1", testWeek)
		require.NoError(t, err)
		for _, s := range current {
			if s.ID == a.ID {
				assert.Equal(t, int32(0), s.DayOfWeek)
			}
		}
	})

	t.Run("原地移动不报冲突", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		moved, err := engine.MoveShift(ctx, testUserA, shift.ID, 0, "9-17")
		require.NoError(t, err)
		assert.Equal(t, shift.ID, moved.ID)
	})

	t.Run("鉴权", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		_, err = engine.MoveShift(ctx, testUserB, shift.ID, 1, "9-17")
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = engine.MoveShift(ctx, testAdmin, shift.ID, 1, "9-17")
		assert.NoError(t, err)
	})

	t.Run("班次不存在", func(t *testing.T) {
		engine, _ := newTestEngine()

		_, err := engine.MoveShift(ctx, testAdmin, "missing", 1, "9-17")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEditShift(t *testing.T) {
	ctx := context.Background()

	t.Run("只改备注不经过冲突检查", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		notes := "换班备注"
		edited, err := engine.EditShift(ctx, testUserA, shift.ID, EditShiftParams{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, notes, edited.Notes)
		assert.Equal(t, shift.Cell(), edited.Cell())
	})

	t.Run("修改格子坐标按移动处理", func(t *testing.T) {
		engine, _ := newTestEngine()

		a, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)
		_, err = engine.CreateShift(ctx, testUserB, createParams(1, "9-17"))
		require.NoError(t, err)

		day := int32(1)
		_, err = engine.EditShift(ctx, testUserA, a.ID, EditShiftParams{DayOfWeek: &day})
		assert.ErrorIs(t, err, ErrConflict)

		day = int32(2)
		edited, err := engine.EditShift(ctx, testUserA, a.ID, EditShiftParams{DayOfWeek: &day})
		require.NoError(t, err)
		assert.Equal(t, int32(2), edited.DayOfWeek)
	})

	t.Run("编辑已批准的班次不改变状态", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)
		approved, err := engine.ApproveShift(testAdmin, shift.ID)
		require.NoError(t, err)

		shiftType := domain.ShiftTypeEvening
		edited, err := engine.EditShift(ctx, testUserA, approved.ID, EditShiftParams{Type: &shiftType})
		require.NoError(t, err)
		assert.Equal(t, domain.ShiftStatusApproved, edited.Status)
		assert.Equal(t, domain.ShiftTypeEvening, edited.Type)
	})

	t.Run("非本人且非管理员不能编辑", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		notes := "偷偷改"
		_, err = engine.EditShift(ctx, testUserB, shift.ID, EditShiftParams{Notes: &notes})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestApproveAndReject(t *testing.T) {
	ctx := context.Background()

	t.Run("完整审批流程", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		approved, err := engine.ApproveShift(testAdmin, shift.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ShiftStatusApproved, approved.Status)

		// 审批是单向的
		_, err = engine.ApproveShift(testAdmin, shift.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
		_, err = engine.RejectShift(testAdmin, shift.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("非管理员不能审批", func(t *testing.T) {
		engine, _ := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		_, err = engine.ApproveShift(testUserA, shift.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = engine.RejectShift(testUserA, shift.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("驳回后格子被释放", func(t *testing.T) {
		engine, repo := newTestEngine()

		shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
		require.NoError(t, err)

		rejected, err := engine.RejectShift(testAdmin, shift.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ShiftStatusRejected, rejected.Status)

		// 被驳回的班次不再占用格子，其他人可以重新申请
		_, err = engine.CreateShift(ctx, testUserB, createParams(0, "9-17"))
		require.NoError(t, err)

		cell := domain.CellAddress{StoreID: "store-1", WeekStart: testWeek, DayOfWeek: 0, TimeSlot: "9-17"}
		assert.Equal(t, 1, repo.activeShiftCount(cell))
	})
}

func TestDeleteShift(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	shift, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
	require.NoError(t, err)

	// 即使是自己的班次，普通用户也不能删除
	err = engine.DeleteShift(testUserA, shift.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = engine.DeleteShift(testAdmin, shift.ID)
	require.NoError(t, err)

	err = engine.DeleteShift(testAdmin, shift.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListShifts(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	_, err := engine.CreateShift(ctx, testUserA, createParams(0, "9-17"))
	require.NoError(t, err)
	_, err = engine.CreateShift(ctx, testUserB, createParams(1, "9-17"))
	require.NoError(t, err)

	// 多次读取结果一致，读取不改变任何状态
	for i := 0; i < 3; i++ {
		shifts, err := engine.ListShifts(testUserA, "store-1", testWeek)
		require.NoError(t, err)
		assert.Len(t, shifts, 2)
	}

	outsider := &domain.User{ID: "user-3", Name: "王强", Role: domain.RoleUser, StoreIDs: []string{"store-2"}}
	_, err = engine.ListShifts(outsider, "store-1", testWeek)
	assert.ErrorIs(t, err, ErrForbidden)
}

// 多个并发请求争抢同一个空格子时，必须恰好一个成功，其余全部返回冲突
func TestConcurrentCreateSameCell(t *testing.T) {
	ctx := context.Background()
	engine, repo := newTestEngine()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := &domain.User{ID: testUserA.ID, Name: testUserA.Name, Role: domain.RoleUser, StoreIDs: []string{"store-1"}}
			_, errs[i] = engine.CreateShift(ctx, actor, createParams(0, "9-17"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, succeeded)

	cell := domain.CellAddress{StoreID: "store-1", WeekStart: testWeek, DayOfWeek: 0, TimeSlot: "9-17"}
	assert.Equal(t, 1, repo.activeShiftCount(cell))
}

// 存储层唯一索引的约束错误必须映射为冲突错误
type constraintViolatingRepository struct {
	*memoryShiftRepository
}

func (r *constraintViolatingRepository) InsertShift(shift *domain.Shift) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "shifts_active_cell_key"}
}

func TestStorageConstraintMapsToConflict(t *testing.T) {
	repo := &constraintViolatingRepository{newMemoryShiftRepository()}
	catalog := &memoryStoreCatalog{stores: map[string]*domain.Store{
		"store-1": {ID: "store-1", Name: "市中心店", TimeSlots: []string{"9-17"}},
	}}
	engine := New(repo, catalog, newMemoryCellLocker(), 200*time.Millisecond)

	_, err := engine.CreateShift(context.Background(), testUserA, createParams(0, "9-17"))
	assert.ErrorIs(t, err, ErrConflict)
}

// 拿不到格子锁时返回可重试的冲突错误，而不是一直阻塞
type stuckCellLocker struct{}

func (stuckCellLocker) LockCell(ctx context.Context, cell domain.CellAddress) (UnlockFunc, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLockTimeoutSurfacesAsConflict(t *testing.T) {
	repo := newMemoryShiftRepository()
	catalog := &memoryStoreCatalog{stores: map[string]*domain.Store{
		"store-1": {ID: "store-1", Name: "市中心店", TimeSlots: []string{"9-17"}},
	}}
	engine := New(repo, catalog, stuckCellLocker{}, 50*time.Millisecond)

	start := time.Now()
	_, err := engine.CreateShift(context.Background(), testUserA, createParams(0, "9-17"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}
