package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/shared/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// gin 上下文中的键
const (
	KeyUserID     = "user_id"
	KeyUserName   = "user_name"
	KeyUserEmail  = "user_email"
	KeyExternalID = "external_id"
	KeyStaff      = "is_staff"
	KeyCredential = "credential"
	KeyRequestID  = "request_id"
)

// Logger 日志中间件
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", redactToken(query)),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", latency),
			zap.String("request_id", c.GetString(KeyRequestID)),
		}

		if userID := c.GetInt(KeyUserID); userID > 0 {
			fields = append(fields, zap.Int("user_id", userID))
		}

		if status >= 500 {
			logger.Error("Server error", fields...)
		} else if status >= 400 {
			logger.Warn("Client error", fields...)
		} else {
			logger.Info("Request", fields...)
		}
	}
}

// redactToken SSE 通过 query 传令牌，不写入日志
func redactToken(query string) string {
	if !strings.Contains(query, "token=") {
		return query
	}
	parts := strings.Split(query, "&")
	for i, p := range parts {
		if strings.HasPrefix(p, "token=") {
			parts[i] = "token=REDACTED"
		}
	}
	return strings.Join(parts, "&")
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(KeyRequestID, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// UserLookup 按身份提供方标识查找门户用户
type UserLookup interface {
	FindByExternalID(ctx context.Context, externalID string) (*entity.User, error)
}

// TokenParser 校验访问令牌
type TokenParser interface {
	Parse(credential string) (*identity.Claims, error)
}

var errNoCredential = errors.New("no credential")

// JWTAuth 认证中间件，令牌校验通过且对应启用用户时放行
func JWTAuth(parser TokenParser, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authenticate(c, parser, users)
		if err == nil {
			c.Next()
			return
		}

		switch {
		case errors.Is(err, errNoCredential):
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40100,
				"message": "Authorization is required",
			})
		case errors.Is(err, identity.ErrInvalidOrExpiredCredential):
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40102,
				"message": "Invalid or expired token",
			})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40103,
				"message": "User not found or inactive",
			})
		}
		c.Abort()
	}
}

// OptionalAuth 有令牌时解析身份，没有或无效时按匿名放行
func OptionalAuth(parser TokenParser, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = authenticate(c, parser, users)
		c.Next()
	}
}

func authenticate(c *gin.Context, parser TokenParser, users UserLookup) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return errNoCredential
	}

	claims, err := parser.Parse(tokenString)
	if err != nil {
		return err
	}

	user, err := users.FindByExternalID(c.Request.Context(), claims.Subject)
	if err != nil {
		return err
	}

	c.Set(KeyUserID, user.UserID)
	c.Set(KeyUserName, user.DisplayName())
	c.Set(KeyUserEmail, user.Email)
	c.Set(KeyExternalID, claims.Subject)
	c.Set(KeyStaff, user.IsStaff())
	c.Set(KeyCredential, tokenString)
	return nil
}

func bearerToken(c *gin.Context) string {
	// 先尝试从 Authorization header 获取
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	// 回退到 query param（SSE 等场景使用）
	return c.Query("token")
}

// RequireStaff 员工或管理员才能访问
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(KeyUserID); !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    40310,
				"message": "No identity found",
			})
			c.Abort()
			return
		}
		if !c.GetBool(KeyStaff) {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    40312,
				"message": "Staff role required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
