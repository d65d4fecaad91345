package handler

import (
	"errors"

	"github.com/bitfantasy/itportal/internal/portal/repository"
	"github.com/bitfantasy/itportal/internal/portal/service"
	"github.com/gin-gonic/gin"
)

// ContactHandler 联系咨询
type ContactHandler struct {
	svc *service.ContactService
}

func NewContactHandler(svc *service.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// Create POST /contact
func (h *ContactHandler) Create(c *gin.Context) {
	var req service.CreateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	inquiry, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req, requestSource(c))
	if err != nil {
		InternalError(c, "Failed to submit the inquiry")
		return
	}
	Created(c, gin.H{"inquiry_id": inquiry.InquiryID})
}

// List GET /staff/contact?unread=true
func (h *ContactHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, c.Query("unread") == "true")
	if err != nil {
		InternalError(c, "Failed to list inquiries")
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// Get GET /staff/contact/:id
func (h *ContactHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	inquiry, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "Inquiry not found")
			return
		}
		InternalError(c, "Failed to load inquiry")
		return
	}
	Success(c, inquiry)
}

// MarkAsRead PUT /staff/contact/:id/read
func (h *ContactHandler) MarkAsRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkAsRead(c.Request.Context(), GetUserID(c), id, requestSource(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "Inquiry not found")
			return
		}
		InternalError(c, "Failed to update inquiry")
		return
	}
	Success(c, gin.H{"read": true})
}
