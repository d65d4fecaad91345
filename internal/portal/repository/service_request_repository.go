package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"gorm.io/gorm"
)

// ServiceRequestFilter 服务请求查询条件
type ServiceRequestFilter struct {
	UserID    *int
	StatusID  *int
	ServiceID *int
	Priority  *int
	From      *time.Time
	To        *time.Time
	Search    string
	Page      int
	PageSize  int
}

// ServiceRequestRepository 服务请求仓储
type ServiceRequestRepository struct {
	db *gorm.DB
}

// NewServiceRequestRepository 创建服务请求仓储
func NewServiceRequestRepository(db *gorm.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

// Create 插入请求行，回填 RequestID
func (r *ServiceRequestRepository) Create(ctx context.Context, req *entity.ServiceRequest) error {
	return r.db.WithContext(ctx).Omit("Service", "Documents").Create(req).Error
}

// Delete 物理删除请求行
func (r *ServiceRequestRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("request_id = ?", id).
		Delete(&entity.ServiceRequest{}).Error
}

// FindByID 根据ID查找请求（含服务与附件）
func (r *ServiceRequestRepository) FindByID(ctx context.Context, id int64) (*entity.ServiceRequest, error) {
	var req entity.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("document_id ASC")
		}).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	req.Decorate()
	return &req, nil
}

// List 分页查询
func (r *ServiceRequestRepository) List(ctx context.Context, f ServiceRequestFilter) ([]entity.ServiceRequest, int64, error) {
	var items []entity.ServiceRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ServiceRequest{})

	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.StatusID != nil {
		query = query.Where("status_id = ?", *f.StatusID)
	}
	if f.ServiceID != nil {
		query = query.Where("service_id = ?", *f.ServiceID)
	}
	if f.Priority != nil {
		query = query.Where("priority = ?", *f.Priority)
	}
	if f.From != nil {
		query = query.Where("requested_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("requested_date < ?", *f.To)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("notes ILIKE ? OR request_details::text ILIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}

	err := query.
		Preload("Service").
		Order("requested_date DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}

	for i := range items {
		items[i].Decorate()
	}
	return items, total, nil
}

// UpdateStatus 以当前状态为条件更新，防止并发回退
func (r *ServiceRequestRepository) UpdateStatus(ctx context.Context, id int64, from int, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.ServiceRequest{}).
		Where("request_id = ? AND status_id = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
