package handler

import (
	"github.com/bitfantasy/itportal/internal/portal/service"
	"github.com/gin-gonic/gin"
)

// CatalogHandler 服务目录
type CatalogHandler struct {
	svc *service.ServiceCatalogService
}

func NewCatalogHandler(svc *service.ServiceCatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// List GET /services
func (h *CatalogHandler) List(c *gin.Context) {
	items, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to load services")
		return
	}
	Success(c, items)
}
