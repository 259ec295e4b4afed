package domain

import (
	"slices"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	StoreIDs     []string  `json:"storeIDs"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// MemberOf 表示该用户是否可以访问指定的门店（管理员可以访问所有门店）
func (u *User) MemberOf(storeID string) bool {
	return u.IsAdmin() || slices.Contains(u.StoreIDs, storeID)
}
