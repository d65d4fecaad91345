package entity

import (
	"strings"
	"time"
)

// 角色
const (
	RoleAdmin    = 1
	RoleStaff    = 2
	RoleCustomer = 3
)

// User 门户用户，ExternalID 为身份提供方的用户标识
type User struct {
	UserID     int       `json:"user_id" gorm:"column:user_id;primaryKey;autoIncrement"`
	ExternalID string    `json:"external_id" gorm:"size:64;uniqueIndex"`
	Email      string    `json:"email" gorm:"size:128;not null;uniqueIndex"`
	FirstName  string    `json:"first_name" gorm:"size:64"`
	LastName   string    `json:"last_name" gorm:"size:64"`
	RoleID     int       `json:"role_id" gorm:"not null"`
	IsActive   bool      `json:"is_active" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName 显示名称，缺省用邮箱
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsStaff 员工或管理员
func (u *User) IsStaff() bool {
	return u.RoleID == RoleAdmin || u.RoleID == RoleStaff
}
