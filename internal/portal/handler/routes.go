package handler

import (
	"github.com/bitfantasy/itportal/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Register 注册 /api/v1 下的全部路由；auth 为强制认证，optional 为可选认证
func (h *Handlers) Register(api *gin.RouterGroup, auth, optional gin.HandlerFunc) {
	api.GET("/services", h.Catalog.List)
	api.POST("/contact", optional, h.Contact.Create)

	authorized := api.Group("", auth)
	{
		requests := authorized.Group("/service-requests")
		{
			requests.POST("/pen-testing", h.ServiceRequest.SubmitPenTesting)
			requests.POST("/mobile-web-app", h.ServiceRequest.SubmitMobileWebApp)
			requests.POST("/network-service", h.ServiceRequest.SubmitNetworkService)
			requests.GET("", h.ServiceRequest.List)
			requests.GET("/:id", h.ServiceRequest.Get)
			requests.GET("/:id/documents/:docId", h.ServiceRequest.DownloadDocument)
		}

		authorized.GET("/events", h.SSE.Stream)

		staff := authorized.Group("/staff", middleware.RequireStaff())
		{
			staff.PUT("/service-requests/:id/status", h.ServiceRequest.UpdateStatus)
			staff.GET("/service-requests/export", h.ServiceRequest.Export)
			staff.GET("/contact", h.Contact.List)
			staff.GET("/contact/:id", h.Contact.Get)
			staff.PUT("/contact/:id/read", h.Contact.MarkAsRead)
		}
	}
}
