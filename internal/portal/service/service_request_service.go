package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/bitfantasy/itportal/internal/config"
	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/portal/intake"
	"github.com/bitfantasy/itportal/internal/portal/repository"
	"github.com/bitfantasy/itportal/internal/shared/storage"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const submittedNotes = "Submitted via web form"

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Identity 调用方身份，由外层解析后传入
type Identity struct {
	ID          int
	ExternalID  string
	DisplayName string
}

// Viewer 查询方身份
type Viewer struct {
	Identity
	Staff bool
}

// SubmitInput 一次服务请求提交
type SubmitInput struct {
	Payload    intake.Payload
	Identity   Identity
	Credential string
	Source     RequestSource
}

// RequestStore 服务请求存储
type RequestStore interface {
	Create(ctx context.Context, req *entity.ServiceRequest) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*entity.ServiceRequest, error)
	List(ctx context.Context, f repository.ServiceRequestFilter) ([]entity.ServiceRequest, int64, error)
	UpdateStatus(ctx context.Context, id int64, from int, updates map[string]interface{}) error
}

// DocumentStore 附件行存储
type DocumentStore interface {
	CreateBatch(ctx context.Context, docs []*entity.ServiceRequestDocument) error
	FindByID(ctx context.Context, requestID, documentID int64) (*entity.ServiceRequestDocument, error)
}

// Notifier 向用户推送事件
type Notifier interface {
	NotifyUser(userID int, event string, payload interface{})
}

// ServiceRequestService 服务请求
type ServiceRequestService struct {
	registry  *intake.Registry
	requests  RequestStore
	documents DocumentStore
	uploader  *DocumentUploadService
	store     storage.ObjectStore
	audit     *AuditService
	upload    config.UploadConfig
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewServiceRequestService(
	registry *intake.Registry,
	requests RequestStore,
	documents DocumentStore,
	uploader *DocumentUploadService,
	store storage.ObjectStore,
	audit *AuditService,
	upload config.UploadConfig,
	logger *zap.Logger,
) *ServiceRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceRequestService{
		registry:  registry,
		requests:  requests,
		documents: documents,
		uploader:  uploader,
		store:     store,
		audit:     audit,
		upload:    upload,
		logger:    logger,
		now:       time.Now,
	}
}

// SetNotifier 设置事件推送
func (s *ServiceRequestService) SetNotifier(n Notifier) {
	s.notifier = n
}

// notify 推送失败不影响已落库的结果
func (s *ServiceRequestService) notify(userID int, event string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notifier panicked", zap.String("event", event), zap.Int("user_id", userID), zap.Any("panic", r))
		}
	}()
	s.notifier.NotifyUser(userID, event, payload)
}

type panicError struct {
	value interface{}
	stack []byte
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// CreateServiceRequest 提交服务请求。成功返回请求ID；失败返回 *SubmitError，
// 已产生的附件与请求行均已补偿，任何panic都不会外泄。
func (s *ServiceRequestService) CreateServiceRequest(ctx context.Context, in SubmitInput) (id int64, err error) {
	start := time.Now()
	traceID := ulid.Make().String()
	log := s.logger.With(zap.String("trace_id", traceID), zap.Int("user_id", in.Identity.ID))
	sg := newSaga(log)
	serviceType := "unknown"

	defer func() {
		if r := recover(); r != nil {
			perr := panicError{value: r, stack: debug.Stack()}
			log.Error("unexpected error while creating service request",
				zap.Any("panic", r),
				zap.ByteString("stack", perr.stack),
				zap.Strings("committed", sg.committed()),
			)
			sg.unwind(ctx)
			s.audit.Record(ctx, AuditEntry{
				ActorID:    in.Identity.ID,
				Action:     ActionUnexpectedError,
				EntityType: entity.AuditEntityServiceRequest,
				Details: map[string]interface{}{
					"ErrorMessage": fmt.Sprint(r),
					"StackTrace":   string(perr.stack),
					"TraceId":      traceID,
				},
				Source: in.Source,
			})
			id, err = 0, submitError(KindUnexpectedError, perr)
		}

		outcome := "created"
		var se *SubmitError
		if errors.As(err, &se) {
			outcome = string(se.Kind)
		}
		m := getMetrics()
		m.submissions.WithLabelValues(serviceType, outcome).Inc()
		m.submitLatency.WithLabelValues(serviceType, outcome).Observe(time.Since(start).Seconds())
	}()

	requestID, serr := s.create(ctx, in, sg, log, traceID, &serviceType)
	if serr != nil {
		return 0, serr
	}
	return requestID, nil
}

func (s *ServiceRequestService) create(ctx context.Context, in SubmitInput, sg *saga, log *zap.Logger, traceID string, serviceType *string) (int64, *SubmitError) {
	record := func(action string, entityID *int64, details map[string]interface{}) {
		details["TraceId"] = traceID
		s.audit.Record(ctx, AuditEntry{
			ActorID:    in.Identity.ID,
			Action:     action,
			EntityType: entity.AuditEntityServiceRequest,
			EntityID:   entityID,
			Details:    details,
			Source:     in.Source,
		})
	}

	// 1. 解析处理器
	if intake.IsMissing(in.Payload) {
		log.Warn("service request payload is missing")
		record(ActionInvalidInput, nil, map[string]interface{}{"ErrorMessage": "Model is null"})
		return 0, submitError(KindInvalidPayloadShape, nil)
	}
	h, ok := s.registry.Resolve(in.Payload)
	if !ok {
		log.Warn("unsupported service request payload", zap.String("payload", fmt.Sprintf("%T", in.Payload)))
		record(ActionInvalidInput, nil, map[string]interface{}{"ErrorMessage": "Unsupported model type"})
		return 0, submitError(KindInvalidPayloadShape, fmt.Errorf("unsupported payload %T", in.Payload))
	}
	*serviceType = string(h.ServiceType())
	log = log.With(zap.String("service_type", h.ServiceTypeName()))

	// 2. 校验
	if valid, reason := h.Validate(in.Payload); !valid {
		log.Info("service request rejected by validation", zap.String("reason", reason))
		record(ActionInvalidInput, nil, map[string]interface{}{
			"ErrorMessage": reason,
			"ServiceType":  h.ServiceTypeName(),
		})
		return 0, &SubmitError{Kind: KindValidationFailed, Message: reason}
	}

	// 3. 提取
	details, err := h.ExtractDetails(in.Payload)
	if err != nil {
		log.Warn("failed to extract request details", zap.Error(err))
		record(ActionInvalidPayloadShape, nil, map[string]interface{}{"ErrorMessage": err.Error()})
		return 0, submitError(KindInvalidPayloadShape, err)
	}
	detailsJSON, err := entity.NewJSON(details)
	if err != nil {
		log.Error("failed to serialize request details", zap.Error(err))
		record(ActionUnexpectedError, nil, map[string]interface{}{"ErrorMessage": err.Error()})
		return 0, submitError(KindUnexpectedError, err)
	}
	attachments := h.GetAttachments(in.Payload)
	serviceID := h.GetServiceID(in.Payload)

	// 4. 上传附件（失败时已自行清理）
	owner := Owner{UserID: in.Identity.ID, Credential: in.Credential, Source: in.Source}
	docs, err := s.uploader.UploadBatch(ctx, attachments, owner, s.upload.PolicyFor(string(h.ServiceType())))
	if err != nil {
		kind := KindPartialUploadFailure
		var ue *UploadError
		if errors.As(err, &ue) {
			kind = ue.Kind
		}
		log.Warn("attachment upload failed", zap.String("kind", string(kind)), zap.Error(err))
		record(ActionFileUploadError, nil, map[string]interface{}{
			"ErrorMessage": err.Error(),
			"ErrorKind":    string(kind),
			"FileCount":    len(attachments),
		})
		return 0, submitError(kind, err)
	}
	if len(docs) > 0 {
		sg.commit("cleanup_documents", func(ctx context.Context) error {
			s.uploader.Cleanup(ctx, docs)
			return nil
		})
	}

	// 5. 请求行
	now := s.now()
	req := &entity.ServiceRequest{
		UserID:         in.Identity.ID,
		ServiceID:      serviceID,
		StatusID:       entity.StatusSubmitted,
		RequestDetails: detailsJSON,
		RequestedDate:  now,
		Notes:          submittedNotes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p, ok := h.(intake.Prioritizer); ok {
		req.Priority = p.Priority(in.Payload)
	}
	if err := s.requests.Create(ctx, req); err != nil || req.RequestID <= 0 {
		if err == nil {
			err = errors.New("insert returned no request id")
		}
		log.Error("failed to insert service request", zap.Error(err))
		sg.unwind(ctx)
		record(ActionInsertError, nil, map[string]interface{}{
			"ErrorMessage":  err.Error(),
			"DocumentCount": len(docs),
		})
		return 0, submitError(KindInsertError, err)
	}
	requestID := req.RequestID
	sg.commit("delete_request", func(ctx context.Context) error {
		return s.requests.Delete(ctx, requestID)
	})
	log = log.With(zap.Int64("request_id", requestID))

	// 6. 迁移附件并写入附件行
	if len(docs) > 0 {
		if err := s.uploader.Relocate(ctx, docs, requestID); err != nil {
			log.Error("failed to relocate documents", zap.Error(err))
			sg.unwind(ctx)
			record(ActionRelocationFailure, &requestID, map[string]interface{}{
				"ErrorMessage":  err.Error(),
				"DocumentCount": len(docs),
			})
			return 0, submitError(KindRelocationFailure, err)
		}

		rows := make([]*entity.ServiceRequestDocument, len(docs))
		for i, d := range docs {
			rid := requestID
			rows[i] = &entity.ServiceRequestDocument{
				RequestID:   &rid,
				FileName:    d.FileName,
				FilePath:    d.Path,
				ContentType: d.ContentType,
				FileSize:    d.Size,
				UploadedAt:  d.UploadedAt,
			}
		}
		if err := s.documents.CreateBatch(ctx, rows); err != nil {
			log.Error("failed to insert documents", zap.Error(err))
			sg.unwind(ctx)
			record(ActionDocumentInsertError, &requestID, map[string]interface{}{
				"ErrorMessage":  err.Error(),
				"DocumentCount": len(docs),
			})
			return 0, submitError(KindDocumentInsertError, err)
		}
	}

	// 7. 完成
	record(ActionCreated, &requestID, map[string]interface{}{
		"RequestId":     requestID,
		"ServiceId":     serviceID,
		"ServiceType":   h.ServiceTypeName(),
		"DocumentCount": len(docs),
	})
	log.Info("service request created", zap.Int("documents", len(docs)))

	s.notify(in.Identity.ID, "request_created", map[string]interface{}{
		"request_id": requestID,
		"status":     entity.StatusName(entity.StatusSubmitted),
	})
	return requestID, nil
}

// ListRequests 客户只能看到自己的请求
func (s *ServiceRequestService) ListRequests(ctx context.Context, viewer Viewer, f repository.ServiceRequestFilter) ([]entity.ServiceRequest, int64, error) {
	if !viewer.Staff {
		uid := viewer.ID
		f.UserID = &uid
	}
	items, total, err := s.requests.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list service requests: %w", err)
	}
	return items, total, nil
}

// GetRequest 获取请求详情
func (s *ServiceRequestService) GetRequest(ctx context.Context, viewer Viewer, id int64) (*entity.ServiceRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Staff && req.UserID != viewer.ID {
		return nil, ErrForbidden
	}
	return req, nil
}

// UpdateStatus 员工推进请求状态，只能向前流转
func (s *ServiceRequestService) UpdateStatus(ctx context.Context, actor Identity, id int64, to int, source RequestSource) (*entity.ServiceRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := req.StatusID
	if !entity.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entity.StatusName(from), entity.StatusName(to))
	}

	now := s.now()
	updates := map[string]interface{}{"status_id": to}
	switch to {
	case entity.StatusApproved, entity.StatusRejected:
		updates["approved_by"] = actor.ID
		updates["approved_date"] = now
	case entity.StatusCompleted:
		updates["completion_date"] = now
	}
	if err := s.requests.UpdateStatus(ctx, id, from, updates); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     ActionStatusChanged,
		EntityType: entity.AuditEntityServiceRequest,
		EntityID:   &id,
		Details: map[string]interface{}{
			"From": entity.StatusName(from),
			"To":   entity.StatusName(to),
		},
		Source: source,
	})
	getMetrics().statusChanges.WithLabelValues(entity.StatusName(to)).Inc()

	s.notify(req.UserID, "request_status", map[string]interface{}{
		"request_id": id,
		"status":     entity.StatusName(to),
	})

	return s.requests.FindByID(ctx, id)
}

// OpenDocument 读取请求附件内容
func (s *ServiceRequestService) OpenDocument(ctx context.Context, viewer Viewer, requestID, documentID int64) (io.ReadCloser, *entity.ServiceRequestDocument, error) {
	if _, err := s.GetRequest(ctx, viewer, requestID); err != nil {
		return nil, nil, err
	}
	doc, err := s.documents.FindByID(ctx, requestID, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return rc, doc, nil
}
