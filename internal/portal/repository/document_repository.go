package repository

import (
	"context"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"gorm.io/gorm"
)

// DocumentRepository 服务请求附件仓储
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建附件仓储
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateBatch 单条语句批量插入，回填 DocumentID
func (r *DocumentRepository) CreateBatch(ctx context.Context, docs []*entity.ServiceRequestDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&docs).Error
}

// FindByID 查找属于某请求的附件
func (r *DocumentRepository) FindByID(ctx context.Context, requestID, documentID int64) (*entity.ServiceRequestDocument, error) {
	var doc entity.ServiceRequestDocument
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND request_id = ?", documentID, requestID).
		First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}
