package domain

import "time"

type ShiftStatus string

const (
	ShiftStatusPending  ShiftStatus = "pending"
	ShiftStatusApproved ShiftStatus = "approved"
	ShiftStatusRejected ShiftStatus = "rejected"
)

type ShiftType string

const (
	ShiftTypeMorning ShiftType = "morning"
	ShiftTypeEvening ShiftType = "evening"
	ShiftTypeNight   ShiftType = "night"
)

// CellAddress 唯一标识某个门店排班表上的一个格子
// WeekStart 必须是归一化后的周一零点（见 calendar 包），否则比较没有意义
type CellAddress struct {
	StoreID   string    `json:"storeID"`
	WeekStart time.Time `json:"weekStart"`
	DayOfWeek int32     `json:"dayOfWeek"`
	TimeSlot  string    `json:"timeSlot"`
}

func (c CellAddress) Equal(other CellAddress) bool {
	return c.StoreID == other.StoreID &&
		c.WeekStart.Equal(other.WeekStart) &&
		c.DayOfWeek == other.DayOfWeek &&
		c.TimeSlot == other.TimeSlot
}

type Shift struct {
	ID        string      `json:"id"`
	StoreID   string      `json:"storeID"`
	UserID    string      `json:"userID"`
	UserName  string      `json:"userName"`
	WeekStart time.Time   `json:"weekStart"`
	DayOfWeek int32       `json:"dayOfWeek"`
	TimeSlot  string      `json:"timeSlot"`
	Type      ShiftType   `json:"shiftType"`
	Status    ShiftStatus `json:"status"`
	Notes     string      `json:"notes"`
	CreatedAt time.Time   `json:"createdAt"`
	Version   int32       `json:"-"`
}

func (s *Shift) Cell() CellAddress {
	return CellAddress{
		StoreID:   s.StoreID,
		WeekStart: s.WeekStart,
		DayOfWeek: s.DayOfWeek,
		TimeSlot:  s.TimeSlot,
	}
}

// IsActive 表示该班次是否占用它所在的格子
// 被驳回的班次不占用格子，同一个格子允许存在多个被驳回的班次
func (s *Shift) IsActive() bool {
	return s.Status == ShiftStatusPending || s.Status == ShiftStatusApproved
}
