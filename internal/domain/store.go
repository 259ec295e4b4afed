package domain

import "time"

// Store 的时段列表是只读配置，引擎只在创建和移动班次时校验时段是否存在，
// 不会因为时段被下线而使历史班次失效
type Store struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TimeSlots []string  `json:"timeSlots"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}
