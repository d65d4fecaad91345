package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound       = errors.New("record not found")
	ErrStatusConflict = errors.New("status changed concurrently")
)

// Repositories 仓库集合
type Repositories struct {
	User     *UserRepository
	Request  *ServiceRequestRepository
	Document *DocumentRepository
	Audit    *AuditLogRepository
	Catalog  *ServiceCatalogRepository
	Inquiry  *ContactInquiryRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Request:  NewServiceRequestRepository(db),
		Document: NewDocumentRepository(db),
		Audit:    NewAuditLogRepository(db),
		Catalog:  NewServiceCatalogRepository(db),
		Inquiry:  NewContactInquiryRepository(db),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
