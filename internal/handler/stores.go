package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
)

// GetMyStores 只返回当前用户所属的门店，管理员可以看到全部门店
func (h *Handler) GetMyStores(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	stores, err := h.repository.GetAllStores()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	visible := []*domain.Store{}
	for _, store := range stores {
		if myInfo.MemberOf(store.ID) {
			visible = append(visible, store)
		}
	}

	h.successResponse(w, r, "获取门店列表成功", visible)
}

func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	storeID := chi.URLParam(r, "id")

	if !myInfo.MemberOf(storeID) {
		h.errorResponse(w, r, "您不属于该门店")
		return
	}

	store, err := h.repository.GetStoreByID(storeID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "门店不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取门店成功", store)
}
