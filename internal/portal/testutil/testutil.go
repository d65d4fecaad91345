package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/bitfantasy/itportal/internal/config"
	"github.com/bitfantasy/itportal/internal/middleware"
	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/portal/handler"
	"github.com/bitfantasy/itportal/internal/portal/intake"
	"github.com/bitfantasy/itportal/internal/portal/service"
	"github.com/bitfantasy/itportal/internal/portal/sse"
	"github.com/bitfantasy/itportal/internal/shared/identity"
	"github.com/bitfantasy/itportal/internal/shared/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	JWTSecret = "itportal-test-jwt-secret"
	Issuer    = "itportal-test"
)

// 预置用户
var (
	Customer = &entity.User{UserID: 7, ExternalID: "idp-customer", Email: "dana@example.com", FirstName: "Dana", LastName: "Reyes", RoleID: entity.RoleCustomer, IsActive: true}
	Other    = &entity.User{UserID: 8, ExternalID: "idp-other", Email: "lee@example.com", FirstName: "Lee", RoleID: entity.RoleCustomer, IsActive: true}
	Staff    = &entity.User{UserID: 2, ExternalID: "idp-staff", Email: "ops@example.com", FirstName: "Ops", RoleID: entity.RoleStaff, IsActive: true}
	Inactive = &entity.User{UserID: 9, ExternalID: "idp-inactive", Email: "gone@example.com", RoleID: entity.RoleCustomer, IsActive: false}
)

// DefaultServices 目录中的三项服务
func DefaultServices() []entity.Service {
	return []entity.Service{
		{ServiceID: 1, Name: handler.ServiceNamePenTesting, IsActive: true},
		{ServiceID: 2, Name: handler.ServiceNameMobileWebApp, IsActive: true},
		{ServiceID: 3, Name: handler.ServiceNameNetwork, IsActive: true},
		{ServiceID: 4, Name: "Legacy Hosting", IsActive: false},
	}
}

// TestEnv 带内存存储的完整路由
type TestEnv struct {
	Router    *gin.Engine
	Store     *storage.MemoryStore
	Users     *MemoryUsers
	Requests  *MemoryRequests
	Documents *MemoryDocuments
	Audit     *MemoryAudit
	Catalog   *MemoryCatalog
	Inquiries *MemoryInquiries
	Hub       *sse.Hub
	Services  *service.Services
	Resolver  *identity.JWTResolver
}

// NewTestEnv 组装与生产一致的路由，存储全部在内存中
func NewTestEnv() *TestEnv {
	env := &TestEnv{
		Store:     storage.NewMemoryStore(),
		Users:     NewMemoryUsers(Customer, Other, Staff, Inactive),
		Documents: &MemoryDocuments{},
		Audit:     &MemoryAudit{},
		Catalog:   NewMemoryCatalog(DefaultServices()...),
		Inquiries: &MemoryInquiries{},
		Resolver:  identity.NewJWTResolver(JWTSecret, Issuer, ""),
	}
	env.Requests = NewMemoryRequests(env.Documents, env.Catalog)

	logger := zap.NewNop()
	uploadCfg := config.UploadConfig{
		General: config.UploadPolicy{MaxFileSizeBytes: 1024 * 1024, AllowedExtensions: config.DefaultAllowedExtensions},
		Overrides: map[string]config.UploadPolicy{
			string(intake.ServiceTypeMobileWebApp): {MaxFileSizeBytes: 512},
		},
	}

	audit := service.NewAuditService(env.Audit, logger)
	upload := service.NewDocumentUploadService(env.Store, env.Resolver, audit, logger)
	env.Services = &service.Services{
		Audit:  audit,
		Upload: upload,
		Request: service.NewServiceRequestService(intake.NewRegistry(), env.Requests, env.Documents,
			upload, env.Store, audit, uploadCfg, logger),
		Catalog: service.NewServiceCatalogService(env.Catalog, nil, time.Minute, logger),
		Contact: service.NewContactService(env.Inquiries, audit, logger),
		Export:  service.NewExportService(env.Requests),
	}
	env.Hub = sse.NewHub(logger)
	env.Services.Request.SetNotifier(env.Hub)

	env.Router = SetupRouter()
	h := handler.NewHandlers(env.Services, env.Hub, 10*time.Second, logger)
	h.Register(env.Router.Group("/api/v1"),
		middleware.JWTAuth(env.Resolver, env.Users),
		middleware.OptionalAuth(env.Resolver, env.Users))
	return env
}

// SetupRouter 测试用gin引擎
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	return r
}

// GenerateTestToken 为外部用户标识签发有效令牌
func GenerateTestToken(subject string) string {
	return signToken(subject, time.Now().Add(time.Hour))
}

// ExpiredTestToken 已过期的令牌
func ExpiredTestToken(subject string) string {
	return signToken(subject, time.Now().Add(-time.Minute))
}

func signToken(subject string, expires time.Time) string {
	now := time.Now()
	claims := identity.Claims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        fmt.Sprintf("test-jti-%d", now.UnixNano()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DoRequest 发送JSON请求
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// File 表单中的一个文件
type File struct {
	Field string
	Name  string
	Data  []byte
}

// DoMultipart 发送 multipart/form-data 请求
func DoMultipart(r http.Handler, path string, fields url.Values, files []File, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			mw.WriteField(key, v)
		}
	}
	for _, f := range files {
		part, _ := mw.CreateFormFile(f.Field, f.Name)
		part.Write(f.Data)
	}
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse 解析响应体
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
