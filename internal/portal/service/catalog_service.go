package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const catalogKeyPrefix = "itportal:service_id:"

// CatalogStore 服务目录存储
type CatalogStore interface {
	FindIDByName(ctx context.Context, name string) (int, error)
	ListActive(ctx context.Context) ([]entity.Service, error)
}

// ServiceCatalogService 服务目录，服务ID按名称缓存在redis
type ServiceCatalogService struct {
	repo   CatalogStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewServiceCatalogService(repo CatalogStore, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *ServiceCatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ServiceCatalogService{repo: repo, rdb: rdb, ttl: ttl, logger: logger}
}

// ServiceIDByName 按名称查服务ID，缓存不可用时直接查库
func (s *ServiceCatalogService) ServiceIDByName(ctx context.Context, name string) (int, error) {
	key := catalogKeyPrefix + strings.ToLower(strings.TrimSpace(name))

	if s.rdb != nil {
		id, err := s.rdb.Get(ctx, key).Int()
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	id, err := s.repo.FindIDByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("find service %q: %w", name, err)
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, id, s.ttl).Err(); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return id, nil
}

// ListActive 启用的服务
func (s *ServiceCatalogService) ListActive(ctx context.Context) ([]entity.Service, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return items, nil
}
