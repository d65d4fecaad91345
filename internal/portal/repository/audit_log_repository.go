package repository

import (
	"context"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓储
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create 追加一条审计记录
func (r *AuditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByEntity 按实体查询审计记录
func (r *AuditLogRepository) ListByEntity(ctx context.Context, entityType string, entityID int64, limit int) ([]entity.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []entity.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
