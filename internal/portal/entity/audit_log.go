package entity

import "time"

// 审计实体类型
const (
	AuditEntityServiceRequest = "ServiceRequest"
	AuditEntityContactInquiry = "ContactInquiry"
)

// AuditLog 审计日志（只追加）
type AuditLog struct {
	LogID      int64     `json:"log_id" gorm:"column:log_id;primaryKey;autoIncrement"`
	UserID     int       `json:"user_id" gorm:"not null;index"`
	Action     string    `json:"action" gorm:"size:64;not null;index"`
	EntityType string    `json:"entity_type" gorm:"size:64;not null;index"`
	EntityID   *int64    `json:"entity_id" gorm:"index"`
	Details    JSON      `json:"details" gorm:"type:jsonb"`
	IPAddress  string    `json:"ip_address" gorm:"column:ip_address;size:64"`
	UserAgent  string    `json:"user_agent" gorm:"size:512"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
