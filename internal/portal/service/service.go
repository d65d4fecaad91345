package service

import (
	"github.com/bitfantasy/itportal/internal/config"
	"github.com/bitfantasy/itportal/internal/portal/intake"
	"github.com/bitfantasy/itportal/internal/portal/repository"
	"github.com/bitfantasy/itportal/internal/shared/identity"
	"github.com/bitfantasy/itportal/internal/shared/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Audit   *AuditService
	Upload  *DocumentUploadService
	Request *ServiceRequestService
	Catalog *ServiceCatalogService
	Contact *ContactService
	Export  *ExportService
}

// NewServices 创建服务集合
func NewServices(
	repos *repository.Repositories,
	store storage.ObjectStore,
	resolver identity.Resolver,
	rdb *redis.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *Services {
	audit := NewAuditService(repos.Audit, logger.Named("audit"))
	upload := NewDocumentUploadService(store, resolver, audit, logger.Named("upload"))

	return &Services{
		Audit:  audit,
		Upload: upload,
		Request: NewServiceRequestService(
			intake.NewRegistry(),
			repos.Request,
			repos.Document,
			upload,
			store,
			audit,
			cfg.Upload,
			logger.Named("service_request"),
		),
		Catalog: NewServiceCatalogService(repos.Catalog, rdb, cfg.Redis.CacheTTL, logger.Named("catalog")),
		Contact: NewContactService(repos.Inquiry, audit, logger.Named("contact")),
		Export:  NewExportService(repos.Request),
	}
}
