package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceCategory 服务分类
type ServiceCategory struct {
	CategoryID  int    `json:"category_id" gorm:"column:category_id;primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"size:128;not null"`
	Description string `json:"description" gorm:"type:text"`
}

func (ServiceCategory) TableName() string {
	return "service_categories"
}

// Service 可申请的服务
type Service struct {
	ServiceID   int                 `json:"service_id" gorm:"column:service_id;primaryKey;autoIncrement"`
	CategoryID  *int                `json:"category_id" gorm:"index"`
	Name        string              `json:"name" gorm:"size:128;not null"`
	Description string              `json:"description" gorm:"type:text"`
	BasePrice   decimal.NullDecimal `json:"base_price" gorm:"type:numeric(12,2)"`
	IsActive    bool                `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	Category *ServiceCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID;references:CategoryID"`
}

func (Service) TableName() string {
	return "services"
}
