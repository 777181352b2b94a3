package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	franchiseeapp "github.com/hungrytum/franchise-billing/internal/application/franchisee"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/dto"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/middleware"
)

// FranchiseeHandler handles the franchisee registry endpoints
type FranchiseeHandler struct {
	BaseHandler
	service *franchiseeapp.Service
}

// NewFranchiseeHandler creates a new FranchiseeHandler
func NewFranchiseeHandler(service *franchiseeapp.Service) *FranchiseeHandler {
	return &FranchiseeHandler{service: service}
}

// Create registers a franchisee
//
//	@Router	/franchisees [post]
func (h *FranchiseeHandler) Create(c *gin.Context) {
	var req franchiseeapp.CreateFranchiseeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns a page of franchisees
//
//	@Router	/franchisees [get]
func (h *FranchiseeHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	page, err := h.service.List(c.Request.Context(), req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// GetByID returns one franchisee
//
//	@Router	/franchisees/{id} [get]
func (h *FranchiseeHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update changes contact details and brands
//
//	@Router	/franchisees/{id} [put]
func (h *FranchiseeHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req franchiseeapp.UpdateFranchiseeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateFees replaces the fee configuration
//
//	@Router	/franchisees/{id}/fees [put]
func (h *FranchiseeHandler) UpdateFees(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req franchiseeapp.FeeConfigRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.UpdateFees(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a franchisee with its reports and invoices
//
//	@Router	/franchisees/{id} [delete]
func (h *FranchiseeHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
