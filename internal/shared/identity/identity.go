package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidOrExpiredCredential = errors.New("invalid or expired credential")

// Claims 身份提供方访问令牌中的声明
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Resolver 把持有者凭证解析为外部用户标识
type Resolver interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// JWTResolver 校验HS256签名的访问令牌
type JWTResolver struct {
	secret []byte
	opts   []jwt.ParserOption
}

// NewJWTResolver issuer / audience 为空时不校验
func NewJWTResolver(secret, issuer, audience string) *JWTResolver {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTResolver{secret: []byte(secret), opts: opts}
}

// Resolve 返回令牌的 sub
func (r *JWTResolver) Resolve(ctx context.Context, credential string) (string, error) {
	claims, err := r.Parse(credential)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse 校验并返回全部声明
func (r *JWTResolver) Parse(credential string) (*Claims, error) {
	if credential == "" {
		return nil, ErrInvalidOrExpiredCredential
	}
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, r.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpiredCredential, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidOrExpiredCredential
	}
	return claims, nil
}
