package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/dto"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice review, edits and monthly billing
type InvoiceHandler struct {
	BaseHandler
	service *reconciliation.Service
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *reconciliation.Service) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// UpdateInvoiceBody carries operator edits to a draft invoice
type UpdateInvoiceBody struct {
	TotalGross    *decimal.Decimal `json:"total_gross"`
	FeeAmount     *decimal.Decimal `json:"fee_amount"`
	FeePercentage *decimal.Decimal `json:"fee_percentage"`
	WeekStart     *string          `json:"week_start" binding:"omitempty,datetime=2006-01-02"`
}

// MonthlyInvoiceBody selects the month to bill
type MonthlyInvoiceBody struct {
	// Month is yyyy-MM; empty bills the last full month
	Month string `json:"month" binding:"omitempty,datetime=2006-01"`
}

// BackfillBody asks for monthly invoices from StartMonth onwards
type BackfillBody struct {
	StartMonth     string          `json:"start_month" binding:"required,datetime=2006-01"`
	InitialArrears decimal.Decimal `json:"initial_arrears"`
	// WaiverSchedule is up_to_fee or fraction; empty uses the configured schedule
	WaiverSchedule string           `json:"waiver_schedule" binding:"omitempty,oneof=up_to_fee fraction"`
	WaiverFraction *decimal.Decimal `json:"waiver_fraction"`
}

// schedule resolves the requested waiver schedule, nil meaning the default
func (b BackfillBody) schedule() reconciliation.WaiverSchedule {
	switch b.WaiverSchedule {
	case "up_to_fee":
		return reconciliation.WaiveUpToFee
	case "fraction":
		share := decimal.NewFromFloat(0.5)
		if b.WaiverFraction != nil {
			share = *b.WaiverFraction
		}
		return reconciliation.WaiveFraction(share)
	}
	return nil
}

// List returns a page of invoices for a franchisee
//
//	@Router	/franchisees/{id}/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	franchiseeID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter := req.Filter()
	if s := c.Query("status"); s != "" {
		status := franchise.InvoiceStatus(s)
		if !status.IsValid() {
			h.BadRequest(c, "status must be one of draft, sent, processing or paid")
			return
		}
		filter.Filters["status"] = string(status)
	}
	if b := franchise.Brand(c.Query("brand")).Normalize(); !b.IsBlank() {
		filter.Filters["brand"] = string(b)
	}
	page, err := h.service.ListInvoices(c.Request.Context(), franchiseeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// GetByID returns one invoice
//
//	@Router	/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Update edits a draft invoice
//
//	@Router	/invoices/{id} [patch]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var body UpdateInvoiceBody
	if !h.bindJSON(c, &body) {
		return
	}
	inv, err := h.service.UpdateDraftInvoice(c.Request.Context(), id, reconciliation.UpdateInvoiceRequest{
		TotalGross:    body.TotalGross,
		FeeAmount:     body.FeeAmount,
		FeePercentage: body.FeePercentage,
		WeekStart:     body.WeekStart,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Delete removes an invoice; its revenue reports are kept
//
//	@Router	/invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MarkPaid records a payment taken outside the collector
//
//	@Router	/invoices/{id}/paid [post]
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.service.RecordPaid(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Statement returns the printable statement view of an invoice
//
//	@Router	/invoices/{id}/statement [get]
func (h *InvoiceHandler) Statement(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	st, err := h.service.InvoiceStatement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// CreateMonthly bills one month for a monthly-fixed franchisee
//
//	@Router	/franchisees/{id}/monthly-invoices [post]
func (h *InvoiceHandler) CreateMonthly(c *gin.Context) {
	franchiseeID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var body MonthlyInvoiceBody
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &body) {
		return
	}
	result, err := h.service.CreateMonthlyInvoice(c.Request.Context(), franchiseeID, body.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Created {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}

// Backfill creates the missing monthly invoices, writing off arrears
//
//	@Router	/franchisees/{id}/backfill [post]
func (h *InvoiceHandler) Backfill(c *gin.Context) {
	franchiseeID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var body BackfillBody
	if !h.bindJSON(c, &body) {
		return
	}
	if body.InitialArrears.IsNegative() {
		h.BadRequest(c, "initial_arrears must be zero or positive")
		return
	}
	result, err := h.service.Backfill(c.Request.Context(), reconciliation.BackfillRequest{
		FranchiseeID:   franchiseeID,
		StartMonth:     body.StartMonth,
		InitialArrears: body.InitialArrears,
		Schedule:       body.schedule(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
