package scheduler

import (
	"fmt"

	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

// ApproveShift 和 RejectShift 都不会重新进行冲突检测：
// 审批不改变格子坐标，而唯一性约束保证了同一个格子不可能有第二个有效班次

func (e *Engine) ApproveShift(actor *domain.User, shiftID string) (*domain.Shift, error) {
	return e.resolveShift(actor, shiftID, domain.ShiftStatusApproved)
}

func (e *Engine) RejectShift(actor *domain.User, shiftID string) (*domain.Shift, error) {
	return e.resolveShift(actor, shiftID, domain.ShiftStatusRejected)
}

func (e *Engine) resolveShift(actor *domain.User, shiftID string, status domain.ShiftStatus) (*domain.Shift, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: 只有管理员可以审批班次", ErrForbidden)
	}

	shift, err := e.getShift(shiftID)
	if err != nil {
		return nil, err
	}

	// 审批是单向的：approved 和 rejected 都不能再次流转
	if shift.Status != domain.ShiftStatusPending {
		return nil, fmt.Errorf("%w: 只有待审批的班次可以被审批，当前状态为 %s", ErrInvalidState, shift.Status)
	}

	shift.Status = status
	if err := e.updateShift(shift); err != nil {
		return nil, err
	}

	return shift, nil
}
