package service

import (
	"context"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"go.uber.org/zap"
)

// 审计动作
const (
	ActionCreated             = "Created"
	ActionInvalidInput        = "InvalidInput"
	ActionInvalidPayloadShape = "InvalidPayloadShape"
	ActionFileUploadError     = "FileUploadError"
	ActionInsertError         = "InsertError"
	ActionRelocationFailure   = "RelocationFailure"
	ActionDocumentInsertError = "DocumentInsertError"
	ActionUnexpectedError     = "UnexpectedError"
	ActionStatusChanged       = "StatusChanged"

	ActionFileUploadStarted     = "FileUploadStarted"
	ActionFileUploadCompleted   = "FileUploadCompleted"
	ActionInvalidFile           = "InvalidFile"
	ActionInvalidFileType       = "InvalidFileType"
	ActionFileSizeLimitExceeded = "FileSizeLimitExceeded"
	ActionFileUploadSummary     = "FileUploadSummary"

	ActionInquiryCreated = "InquiryCreated"
	ActionInquiryRead    = "InquiryRead"
)

// 附件事件的实体类型
const auditEntityDocument = "ServiceRequestDocument"

// RequestSource 请求来源
type RequestSource struct {
	IP        string
	UserAgent string
}

// AuditEntry 一条待写入的审计事件
type AuditEntry struct {
	ActorID    int
	Action     string
	EntityType string
	EntityID   *int64
	Details    interface{}
	Source     RequestSource
}

// AuditStore 审计日志存储
type AuditStore interface {
	Create(ctx context.Context, log *entity.AuditLog) error
}

// AuditService 尽力而为的审计记录
type AuditService struct {
	store  AuditStore
	logger *zap.Logger
}

func NewAuditService(store AuditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, logger: logger}
}

// Record 写入审计事件，失败只记日志并返回 false
func (s *AuditService) Record(ctx context.Context, e AuditEntry) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit record panicked", zap.String("action", e.Action), zap.Any("panic", r))
			ok = false
		}
	}()

	details, err := entity.NewJSON(e.Details)
	if err != nil {
		s.logger.Warn("audit details not serializable", zap.String("action", e.Action), zap.Error(err))
		details = nil
	}

	log := &entity.AuditLog{
		UserID:     e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    details,
		IPAddress:  e.Source.IP,
		UserAgent:  e.Source.UserAgent,
		CreatedAt:  time.Now(),
	}

	// 调用方的取消不应丢失审计
	if err := s.store.Create(context.WithoutCancel(ctx), log); err != nil {
		s.logger.Error("failed to write audit log",
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.Int("user_id", e.ActorID),
			zap.Error(err),
		)
		return false
	}
	return true
}
