package handler

import (
	"strconv"
	"time"

	"github.com/bitfantasy/itportal/internal/middleware"
	"github.com/bitfantasy/itportal/internal/portal/service"
	"github.com/bitfantasy/itportal/internal/portal/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 门户处理器集合
type Handlers struct {
	ServiceRequest *ServiceRequestHandler
	Catalog        *CatalogHandler
	Contact        *ContactHandler
	SSE            *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, submitTimeout time.Duration, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		ServiceRequest: NewServiceRequestHandler(svc.Request, svc.Catalog, svc.Export, submitTimeout, logger.Named("http")),
		Catalog:        NewCatalogHandler(svc.Catalog),
		Contact:        NewContactHandler(svc.Contact),
		SSE:            NewSSEHandler(hub),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, pageSize int, total int64) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: pages}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func GetUserID(c *gin.Context) int {
	return c.GetInt(middleware.KeyUserID)
}

// currentIdentity 认证中间件写入的调用方身份
func currentIdentity(c *gin.Context) service.Identity {
	return service.Identity{
		ID:          c.GetInt(middleware.KeyUserID),
		ExternalID:  c.GetString(middleware.KeyExternalID),
		DisplayName: c.GetString(middleware.KeyUserName),
	}
}

func currentViewer(c *gin.Context) service.Viewer {
	return service.Viewer{Identity: currentIdentity(c), Staff: c.GetBool(middleware.KeyStaff)}
}

func requestSource(c *gin.Context) service.RequestSource {
	return service.RequestSource{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
