package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/workshift-dev/shift-calendar/backend/internal/calendar"
	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
	"github.com/workshift-dev/shift-calendar/backend/internal/scheduler"
)

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	storeID := r.URL.Query().Get("storeID")
	if storeID == "" {
		h.errorResponse(w, r, "缺少门店ID")
		return
	}

	weekStart, err := calendar.ParseWeekStart(r.URL.Query().Get("weekStart"))
	if err != nil {
		h.errorResponse(w, r, "无效的周起始日期")
		return
	}

	shifts, err := h.engine.ListShifts(myInfo, storeID, weekStart)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		StoreID   string `json:"storeID" validate:"required"`
		WeekStart string `json:"weekStart" validate:"required"`
		DayOfWeek int32  `json:"dayOfWeek" validate:"min=0,max=6"`
		TimeSlot  string `json:"timeSlot" validate:"required"`
		ShiftType string `json:"shiftType" validate:"required,oneof=morning evening night"`
		Notes     string `json:"notes"`
		UserID    string `json:"userID"`
		UserName  string `json:"userName"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	weekStart, err := calendar.ParseWeekStart(req.WeekStart)
	if err != nil {
		h.errorResponse(w, r, "无效的周起始日期")
		return
	}

	shift, err := h.engine.CreateShift(r.Context(), myInfo, scheduler.CreateShiftParams{
		StoreID:   req.StoreID,
		WeekStart: weekStart,
		DayOfWeek: req.DayOfWeek,
		TimeSlot:  req.TimeSlot,
		Type:      domain.ShiftType(req.ShiftType),
		Notes:     req.Notes,
		UserID:    req.UserID,
		UserName:  req.UserName,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建班次成功", shift)
}

// CheckConflict 供前端在拖动班次落下之前先行探测目标格子
// 探测通过不代表随后的提交一定成功，提交时仍然会在锁内重新检查
func (h *Handler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		StoreID        string `json:"storeID" validate:"required"`
		WeekStart      string `json:"weekStart" validate:"required"`
		DayOfWeek      int32  `json:"dayOfWeek" validate:"min=0,max=6"`
		TimeSlot       string `json:"timeSlot" validate:"required"`
		ExcludeShiftID string `json:"excludeShiftID"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	weekStart, err := calendar.ParseWeekStart(req.WeekStart)
	if err != nil {
		h.errorResponse(w, r, "无效的周起始日期")
		return
	}

	occupied, err := h.engine.CheckConflict(myInfo, domain.CellAddress{
		StoreID:   req.StoreID,
		WeekStart: weekStart,
		DayOfWeek: req.DayOfWeek,
		TimeSlot:  req.TimeSlot,
	}, req.ExcludeShiftID)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "检查冲突成功", map[string]any{
		"hasConflict":      occupied != nil,
		"conflictingShift": occupied,
	})
}

func (h *Handler) MoveShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	shiftID := chi.URLParam(r, "id")

	var req struct {
		DayOfWeek int32  `json:"dayOfWeek" validate:"min=0,max=6"`
		TimeSlot  string `json:"timeSlot" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift, err := h.engine.MoveShift(r.Context(), myInfo, shiftID, req.DayOfWeek, req.TimeSlot)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "移动班次成功", shift)
}

func (h *Handler) EditShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	shiftID := chi.URLParam(r, "id")

	var req struct {
		DayOfWeek *int32  `json:"dayOfWeek" validate:"omitempty,min=0,max=6"`
		TimeSlot  *string `json:"timeSlot"`
		ShiftType *string `json:"shiftType" validate:"omitempty,oneof=morning evening night"`
		Notes     *string `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	params := scheduler.EditShiftParams{
		DayOfWeek: req.DayOfWeek,
		TimeSlot:  req.TimeSlot,
		Notes:     req.Notes,
	}
	if req.ShiftType != nil {
		shiftType := domain.ShiftType(*req.ShiftType)
		params.Type = &shiftType
	}

	shift, err := h.engine.EditShift(r.Context(), myInfo, shiftID, params)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新班次成功", shift)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	shiftID := chi.URLParam(r, "id")

	if err := h.engine.DeleteShift(myInfo, shiftID); err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除班次成功", nil)
}

func (h *Handler) ApproveShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	shiftID := chi.URLParam(r, "id")

	shift, err := h.engine.ApproveShift(myInfo, shiftID)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "批准班次成功", shift)
}

func (h *Handler) RejectShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	shiftID := chi.URLParam(r, "id")

	shift, err := h.engine.RejectShift(myInfo, shiftID)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "驳回班次成功", shift)
}
