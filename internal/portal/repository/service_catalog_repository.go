package repository

import (
	"context"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"gorm.io/gorm"
)

// ServiceCatalogRepository 服务目录仓储
type ServiceCatalogRepository struct {
	db *gorm.DB
}

func NewServiceCatalogRepository(db *gorm.DB) *ServiceCatalogRepository {
	return &ServiceCatalogRepository{db: db}
}

// FindIDByName 按名称查找服务ID（忽略大小写与首尾空格）
func (r *ServiceCatalogRepository) FindIDByName(ctx context.Context, name string) (int, error) {
	var svc entity.Service
	err := r.db.WithContext(ctx).
		Select("service_id").
		Where("LOWER(TRIM(name)) = LOWER(TRIM(?))", name).
		First(&svc).Error
	if err != nil {
		return 0, notFound(err)
	}
	return svc.ServiceID, nil
}

// ListActive 获取启用的服务
func (r *ServiceCatalogRepository) ListActive(ctx context.Context) ([]entity.Service, error) {
	var items []entity.Service
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&items).Error
	return items, err
}
