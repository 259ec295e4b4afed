package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/workshift-dev/shift-calendar/backend/internal/calendar"
	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

func (e *Engine) ListShifts(actor *domain.User, storeID string, weekStart time.Time) ([]*domain.Shift, error) {
	if err := e.authorizeStoreAccess(actor, storeID); err != nil {
		return nil, err
	}

	return e.shifts.GetShiftsByStoreAndWeek(storeID, calendar.NormalizeWeekStart(weekStart))
}

// CheckConflict 返回占用目标格子的有效班次，格子空闲时返回 (nil, nil)
// 单独暴露给调用方是为了让拖动操作在提交前可以先行探测，
// 但探测结果不构成任何保证，提交时仍然会在锁内重新检查
func (e *Engine) CheckConflict(actor *domain.User, cell domain.CellAddress, excludeShiftID string) (*domain.Shift, error) {
	if err := e.authorizeStoreAccess(actor, cell.StoreID); err != nil {
		return nil, err
	}

	cell.WeekStart = calendar.NormalizeWeekStart(cell.WeekStart)
	return e.shifts.GetActiveShiftInCell(cell, excludeShiftID)
}

type CreateShiftParams struct {
	StoreID   string
	WeekStart time.Time
	DayOfWeek int32
	TimeSlot  string
	Type      domain.ShiftType
	Notes     string
	// UserID 和 UserName 为空时表示为 actor 自己创建班次
	// 只有管理员可以为他人创建班次
	UserID   string
	UserName string
}

func (e *Engine) CreateShift(ctx context.Context, actor *domain.User, params CreateShiftParams) (*domain.Shift, error) {
	userID, userName := params.UserID, params.UserName
	if userID == "" {
		userID, userName = actor.ID, actor.Name
	}
	if userID != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: 只有管理员可以为他人创建班次", ErrForbidden)
	}
	if err := e.authorizeStoreAccess(actor, params.StoreID); err != nil {
		return nil, err
	}

	store, err := e.getStore(params.StoreID)
	if err != nil {
		return nil, err
	}

	cell := domain.CellAddress{
		StoreID:   params.StoreID,
		WeekStart: calendar.NormalizeWeekStart(params.WeekStart),
		DayOfWeek: params.DayOfWeek,
		TimeSlot:  params.TimeSlot,
	}
	if err := validateCell(store, cell); err != nil {
		return nil, err
	}
	if err := validateShiftType(params.Type); err != nil {
		return nil, err
	}

	// 无论是谁创建的班次，初始状态都是待审批
	shift := &domain.Shift{
		ID:        uuid.NewString(),
		StoreID:   cell.StoreID,
		UserID:    userID,
		UserName:  userName,
		WeekStart: cell.WeekStart,
		DayOfWeek: cell.DayOfWeek,
		TimeSlot:  cell.TimeSlot,
		Type:      params.Type,
		Status:    domain.ShiftStatusPending,
		Notes:     params.Notes,
	}

	if err := e.placeShift(ctx, cell, "", func() error {
		return e.shifts.InsertShift(shift)
	}); err != nil {
		return nil, err
	}

	return shift, nil
}

func (e *Engine) MoveShift(ctx context.Context, actor *domain.User, shiftID string, dayOfWeek int32, timeSlot string) (*domain.Shift, error) {
	shift, err := e.getShift(shiftID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeShiftMutation(actor, shift); err != nil {
		return nil, err
	}

	store, err := e.getStore(shift.StoreID)
	if err != nil {
		return nil, err
	}

	target := shift.Cell()
	target.DayOfWeek = dayOfWeek
	target.TimeSlot = timeSlot
	if err := validateCell(store, target); err != nil {
		return nil, err
	}

	// 原地移动不需要冲突检查，格子本来就被自己占着
	if target.Equal(shift.Cell()) {
		return shift, nil
	}

	shift.DayOfWeek = target.DayOfWeek
	shift.TimeSlot = target.TimeSlot

	if err := e.placeShift(ctx, target, shift.ID, func() error {
		return e.updateShift(shift)
	}); err != nil {
		return nil, err
	}

	return shift, nil
}

type EditShiftParams struct {
	DayOfWeek *int32
	TimeSlot  *string
	Type      *domain.ShiftType
	Notes     *string
}

// EditShift 修改班次内容但不改变状态
// 如果修改涉及格子坐标，则按移动处理，必须重新通过冲突检测
func (e *Engine) EditShift(ctx context.Context, actor *domain.User, shiftID string, params EditShiftParams) (*domain.Shift, error) {
	shift, err := e.getShift(shiftID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeShiftMutation(actor, shift); err != nil {
		return nil, err
	}

	if params.Type != nil {
		if err := validateShiftType(*params.Type); err != nil {
			return nil, err
		}
		shift.Type = *params.Type
	}
	if params.Notes != nil {
		shift.Notes = *params.Notes
	}

	target := shift.Cell()
	if params.DayOfWeek != nil {
		target.DayOfWeek = *params.DayOfWeek
	}
	if params.TimeSlot != nil {
		target.TimeSlot = *params.TimeSlot
	}

	if target.Equal(shift.Cell()) {
		// 格子没有变化，跳过冲突检查直接提交
		if err := e.updateShift(shift); err != nil {
			return nil, err
		}
		return shift, nil
	}

	store, err := e.getStore(shift.StoreID)
	if err != nil {
		return nil, err
	}
	if err := validateCell(store, target); err != nil {
		return nil, err
	}

	shift.DayOfWeek = target.DayOfWeek
	shift.TimeSlot = target.TimeSlot

	if err := e.placeShift(ctx, target, shift.ID, func() error {
		return e.updateShift(shift)
	}); err != nil {
		return nil, err
	}

	return shift, nil
}

func (e *Engine) DeleteShift(actor *domain.User, shiftID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: 只有管理员可以删除班次", ErrForbidden)
	}

	if _, err := e.getShift(shiftID); err != nil {
		return err
	}

	return e.shifts.DeleteShift(shiftID)
}

// placeShift 持有格子锁完成 冲突检查 + 写入，保证两者之间没有其他写入者插入
func (e *Engine) placeShift(ctx context.Context, cell domain.CellAddress, excludeShiftID string, commit func() error) error {
	lockCtx, cancel := e.lockContext(ctx)
	defer cancel()

	unlock, err := e.locker.LockCell(lockCtx, cell)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: 该时段正在被其他请求修改，请稍后重试", ErrConflict)
		}
		return err
	}
	defer unlock()

	occupied, err := e.shifts.GetActiveShiftInCell(cell, excludeShiftID)
	if err != nil {
		return err
	}
	if occupied != nil {
		return fmt.Errorf("%w: 该时段已被 %s 占用", ErrConflict, occupied.UserName)
	}

	if err := commit(); err != nil {
		// 数据库上的部分唯一索引是并发写入的最后一道防线
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "shifts_active_cell_key" {
			return fmt.Errorf("%w: 该时段刚刚被其他用户占用", ErrConflict)
		}
		return err
	}

	return nil
}

func (e *Engine) getShift(id string) (*domain.Shift, error) {
	shift, err := e.shifts.GetShiftByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

func (e *Engine) getStore(id string) (*domain.Store, error) {
	store, err := e.stores.GetStoreByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: 门店不存在", ErrValidation)
		}
		return nil, err
	}
	return store, nil
}

func (e *Engine) updateShift(shift *domain.Shift) error {
	if err := e.shifts.UpdateShift(shift); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 乐观锁版本不匹配，说明班次刚被其他操作修改过
			return fmt.Errorf("%w: 班次已被其他操作修改，请重新获取后重试", ErrConflict)
		}
		return err
	}
	return nil
}

func (e *Engine) authorizeStoreAccess(actor *domain.User, storeID string) error {
	if !actor.MemberOf(storeID) {
		return fmt.Errorf("%w: 您不属于该门店", ErrForbidden)
	}
	return nil
}

func (e *Engine) authorizeShiftMutation(actor *domain.User, shift *domain.Shift) error {
	if actor.IsAdmin() || shift.UserID == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: 只能操作自己的班次", ErrForbidden)
}

func validateCell(store *domain.Store, cell domain.CellAddress) error {
	if cell.DayOfWeek < 0 || cell.DayOfWeek > 6 {
		return fmt.Errorf("%w: 星期必须在 0 到 6 之间", ErrValidation)
	}

	for _, slot := range store.TimeSlots {
		if slot == cell.TimeSlot {
			return nil
		}
	}
	return fmt.Errorf("%w: 门店 %s 没有时段 %s", ErrValidation, store.Name, cell.TimeSlot)
}

func validateShiftType(t domain.ShiftType) error {
	switch t {
	case domain.ShiftTypeMorning, domain.ShiftTypeEvening, domain.ShiftTypeNight:
		return nil
	default:
		return fmt.Errorf("%w: 未知的班次类型 %s", ErrValidation, t)
	}
}
