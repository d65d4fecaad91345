package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"go.uber.org/zap"
)

// InquiryStore 联系咨询存储
type InquiryStore interface {
	Create(ctx context.Context, inquiry *entity.ContactInquiry) error
	FindByID(ctx context.Context, id int64) (*entity.ContactInquiry, error)
	List(ctx context.Context, page, pageSize int, unreadOnly bool) ([]entity.ContactInquiry, int64, error)
	MarkAsRead(ctx context.Context, id int64) error
}

// CreateInquiryRequest 联系表单
type CreateInquiryRequest struct {
	FullName string `json:"full_name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"max=32"`
	Company  string `json:"company" binding:"max=128"`
	Subject  string `json:"subject" binding:"required,max=255"`
	Message  string `json:"message" binding:"required"`
}

// ContactService 联系咨询
type ContactService struct {
	repo   InquiryStore
	audit  *AuditService
	logger *zap.Logger
}

func NewContactService(repo InquiryStore, audit *AuditService, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{repo: repo, audit: audit, logger: logger}
}

// Create 保存咨询，userID 为0表示匿名
func (s *ContactService) Create(ctx context.Context, userID int, req *CreateInquiryRequest, source RequestSource) (*entity.ContactInquiry, error) {
	inquiry := &entity.ContactInquiry{
		FullName:  strings.TrimSpace(req.FullName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("create inquiry: %w", err)
	}

	id := inquiry.InquiryID
	s.audit.Record(ctx, AuditEntry{
		ActorID:    userID,
		Action:     ActionInquiryCreated,
		EntityType: entity.AuditEntityContactInquiry,
		EntityID:   &id,
		Details:    map[string]interface{}{"Subject": inquiry.Subject, "Email": inquiry.Email},
		Source:     source,
	})
	return inquiry, nil
}

func (s *ContactService) List(ctx context.Context, page, pageSize int, unreadOnly bool) ([]entity.ContactInquiry, int64, error) {
	return s.repo.List(ctx, page, pageSize, unreadOnly)
}

func (s *ContactService) Get(ctx context.Context, id int64) (*entity.ContactInquiry, error) {
	return s.repo.FindByID(ctx, id)
}

// MarkAsRead 标记已读并审计
func (s *ContactService) MarkAsRead(ctx context.Context, actorID int, id int64, source RequestSource) error {
	if err := s.repo.MarkAsRead(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{
		ActorID:    actorID,
		Action:     ActionInquiryRead,
		EntityType: entity.AuditEntityContactInquiry,
		EntityID:   &id,
		Details:    map[string]interface{}{},
		Source:     source,
	})
	return nil
}
