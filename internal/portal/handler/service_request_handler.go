package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/itportal/internal/middleware"
	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/portal/intake"
	"github.com/bitfantasy/itportal/internal/portal/repository"
	"github.com/bitfantasy/itportal/internal/portal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 目录中的服务名称
const (
	ServiceNamePenTesting   = "Penetration Testing"
	ServiceNameMobileWebApp = "Mobile & Web Application"
	ServiceNameNetwork      = "Network Service"
)

// 附件表单字段
const (
	fieldSupportingDocuments = "supporting_documents"
	fieldAdditionalDocuments = "additional_documents"
)

// ServiceRequestHandler 服务请求处理器
type ServiceRequestHandler struct {
	svc     *service.ServiceRequestService
	catalog *service.ServiceCatalogService
	export  *service.ExportService
	timeout time.Duration
	logger  *zap.Logger
}

func NewServiceRequestHandler(
	svc *service.ServiceRequestService,
	catalog *service.ServiceCatalogService,
	export *service.ExportService,
	timeout time.Duration,
	logger *zap.Logger,
) *ServiceRequestHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ServiceRequestHandler{svc: svc, catalog: catalog, export: export, timeout: timeout, logger: logger}
}

// SubmitPenTesting POST /service-requests/pen-testing
func (h *ServiceRequestHandler) SubmitPenTesting(c *gin.Context) {
	var req intake.PenTestingRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "Invalid form data: "+err.Error())
		return
	}
	req.SupportingDocuments = formFiles(c, fieldSupportingDocuments)
	h.submit(c, &req, ServiceNamePenTesting, &req.ServiceID)
}

// SubmitMobileWebApp POST /service-requests/mobile-web-app
func (h *ServiceRequestHandler) SubmitMobileWebApp(c *gin.Context) {
	var req intake.MobileWebAppRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "Invalid form data: "+err.Error())
		return
	}
	req.SupportingDocuments = formFiles(c, fieldSupportingDocuments)
	h.submit(c, &req, ServiceNameMobileWebApp, &req.ServiceID)
}

// SubmitNetworkService POST /service-requests/network-service
func (h *ServiceRequestHandler) SubmitNetworkService(c *gin.Context) {
	var req intake.NetworkServiceRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "Invalid form data: "+err.Error())
		return
	}
	req.AdditionalDocuments = formFiles(c, fieldAdditionalDocuments)
	h.submit(c, &req, ServiceNameNetwork, &req.ServiceID)
}

func (h *ServiceRequestHandler) submit(c *gin.Context, payload intake.Payload, serviceName string, serviceID *int) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	id, err := h.catalog.ServiceIDByName(ctx, serviceName)
	if err != nil {
		h.logger.Error("service catalog lookup failed", zap.String("service", serviceName), zap.Error(err))
		Error(c, 50300, "The requested service is currently unavailable")
		return
	}
	*serviceID = id

	requestID, err := h.svc.CreateServiceRequest(ctx, service.SubmitInput{
		Payload:    payload,
		Identity:   currentIdentity(c),
		Credential: c.GetString(middleware.KeyCredential),
		Source:     requestSource(c),
	})
	if err != nil {
		var se *service.SubmitError
		if !errors.As(err, &se) {
			InternalError(c, "Failed to submit the service request")
			return
		}
		code := submitErrorCode(se.Kind)
		c.JSON(code/100, Response{Code: code, Message: se.Message, Data: gin.H{"kind": se.Kind}})
		return
	}

	Created(c, gin.H{"request_id": requestID})
}

// submitErrorCode 客户端可修正的错误返回4xx
func submitErrorCode(kind service.ErrorKind) int {
	switch kind {
	case service.KindInvalidPayloadShape:
		return 40000
	case service.KindValidationFailed:
		return 40001
	case service.KindInvalidFile, service.KindInvalidFileType:
		return 40002
	case service.KindFileSizeLimitExceeded:
		return 41300
	default:
		return 50000
	}
}

func formFiles(c *gin.Context, field string) []intake.Attachment {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return intake.FromFileHeaders(form.File[field])
}

// List GET /service-requests
func (h *ServiceRequestHandler) List(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	items, total, err := h.svc.ListRequests(c.Request.Context(), currentViewer(c), filter)
	if err != nil {
		InternalError(c, "Failed to list service requests")
		return
	}
	for i := range items {
		items[i].Decorate()
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(filter.Page, filter.PageSize, total),
	})
}

func parseFilter(c *gin.Context) (repository.ServiceRequestFilter, bool) {
	var f repository.ServiceRequestFilter
	f.Page, f.PageSize = GetPagination(c)
	f.Search = strings.TrimSpace(c.Query("q"))

	if s := c.Query("status"); s != "" {
		id, ok := entity.StatusIDByName(s)
		if !ok {
			BadRequest(c, "Invalid status: "+s)
			return f, false
		}
		f.StatusID = &id
	}
	if s := c.Query("service_id"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			BadRequest(c, "Invalid service_id")
			return f, false
		}
		f.ServiceID = &v
	}
	if s := c.Query("priority"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 4 {
			BadRequest(c, "Invalid priority")
			return f, false
		}
		f.Priority = &v
	}
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		s := c.Query(key)
		if s == "" {
			continue
		}
		t, err := time.Parse(intake.DateLayout, s)
		if err != nil {
			BadRequest(c, "Invalid "+key+" date, expected YYYY-MM-DD")
			return f, false
		}
		if key == "to" {
			t = t.Add(24 * time.Hour)
		}
		*dst = &t
	}
	return f, true
}

// Get GET /service-requests/:id
func (h *ServiceRequestHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, err := h.svc.GetRequest(c.Request.Context(), currentViewer(c), id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	Success(c, req)
}

// DownloadDocument GET /service-requests/:id/documents/:docId
func (h *ServiceRequestHandler) DownloadDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	docID, ok := paramID(c, "docId")
	if !ok {
		return
	}

	rc, doc, err := h.svc.OpenDocument(c.Request.Context(), currentViewer(c), id, docID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	defer rc.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName})
	c.DataFromReader(http.StatusOK, doc.FileSize, contentType, io.Reader(rc), map[string]string{
		"Content-Disposition": disposition,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus PUT /staff/service-requests/:id/status
func (h *ServiceRequestHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	to, ok := entity.StatusIDByName(body.Status)
	if !ok {
		BadRequest(c, "Invalid status: "+body.Status)
		return
	}

	req, err := h.svc.UpdateStatus(c.Request.Context(), currentIdentity(c), id, to, requestSource(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTransition):
			Conflict(c, err.Error())
		case errors.Is(err, repository.ErrStatusConflict):
			Conflict(c, "The request was updated by someone else")
		default:
			h.respondLookupError(c, err)
		}
		return
	}
	Success(c, req)
}

// Export GET /staff/service-requests/export
func (h *ServiceRequestHandler) Export(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	f, filename, err := h.export.ExportRequests(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		InternalError(c, "Failed to export service requests")
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("write excel failed", zap.Error(err))
	}
}

func (h *ServiceRequestHandler) respondLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "Not found")
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, "You do not have access to this request")
	default:
		h.logger.Error("service request lookup failed", zap.Error(err))
		InternalError(c, "Internal error")
	}
}
