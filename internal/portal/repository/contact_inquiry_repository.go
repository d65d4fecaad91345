package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"gorm.io/gorm"
)

// ContactInquiryRepository 联系咨询仓储
type ContactInquiryRepository struct {
	db *gorm.DB
}

func NewContactInquiryRepository(db *gorm.DB) *ContactInquiryRepository {
	return &ContactInquiryRepository{db: db}
}

func (r *ContactInquiryRepository) Create(ctx context.Context, inquiry *entity.ContactInquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

func (r *ContactInquiryRepository) FindByID(ctx context.Context, id int64) (*entity.ContactInquiry, error) {
	var inquiry entity.ContactInquiry
	if err := r.db.WithContext(ctx).First(&inquiry, "inquiry_id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inquiry, nil
}

// List 分页查询，unreadOnly 仅未读
func (r *ContactInquiryRepository) List(ctx context.Context, page, pageSize int, unreadOnly bool) ([]entity.ContactInquiry, int64, error) {
	var items []entity.ContactInquiry
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ContactInquiry{})
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkAsRead 标记已读
func (r *ContactInquiryRepository) MarkAsRead(ctx context.Context, id int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.ContactInquiry{}).
		Where("inquiry_id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
