package seed

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/workshift-dev/shift-calendar/backend/internal/calendar"
	"github.com/workshift-dev/shift-calendar/backend/internal/config"
	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
	"github.com/workshift-dev/shift-calendar/backend/internal/repository"
	"github.com/workshift-dev/shift-calendar/backend/internal/utils"
)

var demoStores = []*domain.Store{
	{
		ID:        "store-1",
		Name:      "市中心店",
		TimeSlots: []string{"09:00 - 13:00", "13:00 - 17:00", "17:00 - 21:00"},
	},
	{
		ID:        "store-2",
		Name:      "商场店",
		TimeSlots: []string{"10:00 - 14:00", "14:00 - 18:00", "18:00 - 22:00"},
	},
	{
		ID:        "store-3",
		Name:      "机场店",
		TimeSlots: []string{"06:00 - 12:00", "12:00 - 18:00", "18:00 - 00:00"},
	},
}

func SeedDemoStores(r *repository.Repository) {
	for _, store := range demoStores {
		if err := r.CreateStore(store); err != nil {
			slog.Error("插入门店失败", "store", store.Name, "error", err)
			continue
		}
		slog.Info("已插入门店", "id", store.ID, "name", store.Name, "timeSlots", store.TimeSlots)
	}
}

func SeedRandomUsers(r *repository.Repository, cfg *config.Config, n int) {
	stores, err := r.GetAllStores()
	if err != nil {
		slog.Error("获取门店列表失败", "error", err)
		return
	}
	if len(stores) == 0 {
		slog.Error("数据库中没有门店，请先插入门店")
		return
	}

	storeIDs := make([]string, len(stores))
	for i, store := range stores {
		storeIDs[i] = store.ID
	}

	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, "example.com", storeIDs)
		if err != nil {
			slog.Error("生成随机用户失败", "error", err)
			continue
		}

		if err := r.CreateUser(user); err != nil {
			// 随机用户名可能撞车，跳过即可
			slog.Error("插入用户失败", "username", user.Username, "error", err)
			continue
		}
		slog.Info("已插入用户", "username", user.Username, "name", user.Name, "storeIDs", user.StoreIDs)
	}
}

// SeedRandomShifts 为本周生成随机班次
// 通过记录已占用的格子保证不会违反唯一性约束
func SeedRandomShifts(r *repository.Repository, n int) {
	stores, err := r.GetAllStores()
	if err != nil {
		slog.Error("获取门店列表失败", "error", err)
		return
	}

	users, err := r.GetAllUsers()
	if err != nil {
		slog.Error("获取用户列表失败", "error", err)
		return
	}

	workers := []*domain.User{}
	for _, user := range users {
		if len(user.StoreIDs) > 0 {
			workers = append(workers, user)
		}
	}
	if len(workers) == 0 {
		slog.Error("数据库中没有属于门店的用户，请先插入用户")
		return
	}

	storesMap := make(map[string]*domain.Store)
	for _, store := range stores {
		storesMap[store.ID] = store
	}

	weekStart := calendar.NormalizeWeekStart(time.Now())
	occupied := make(map[domain.CellAddress]bool)
	statuses := []domain.ShiftStatus{domain.ShiftStatusPending, domain.ShiftStatusApproved, domain.ShiftStatusRejected}

	inserted := 0
	for attempt := 0; attempt < n*10 && inserted < n; attempt++ {
		user := workers[rand.Intn(len(workers))]
		store := storesMap[user.StoreIDs[rand.Intn(len(user.StoreIDs))]]
		if store == nil || len(store.TimeSlots) == 0 {
			continue
		}

		cell := domain.CellAddress{
			StoreID:   store.ID,
			WeekStart: weekStart,
			DayOfWeek: int32(rand.Intn(7)),
			TimeSlot:  store.TimeSlots[rand.Intn(len(store.TimeSlots))],
		}

		status := statuses[rand.Intn(len(statuses))]
		if status != domain.ShiftStatusRejected {
			if occupied[cell] {
				continue
			}
			occupied[cell] = true
		}

		shift := &domain.Shift{
			ID:        uuid.NewString(),
			StoreID:   cell.StoreID,
			UserID:    user.ID,
			UserName:  user.Name,
			WeekStart: cell.WeekStart,
			DayOfWeek: cell.DayOfWeek,
			TimeSlot:  cell.TimeSlot,
			Type:      utils.GenerateRandomShiftType(),
			Status:    status,
		}

		if err := r.InsertShift(shift); err != nil {
			slog.Error("插入班次失败", "error", err)
			continue
		}
		inserted++
	}

	slog.Info("插入班次完成", "count", inserted, "weekStart", calendar.FormatWeekStart(weekStart))
}
