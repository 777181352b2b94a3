package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/extract"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/dto"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// StatementHandler handles statement previews, batch saves and manual figures
type StatementHandler struct {
	BaseHandler
	service  *reconciliation.Service
	maxFiles int
}

// NewStatementHandler creates a new StatementHandler. maxFiles caps the
// number of statements accepted in one batch; zero means no cap.
func NewStatementHandler(service *reconciliation.Service, maxFiles int) *StatementHandler {
	return &StatementHandler{service: service, maxFiles: maxFiles}
}

// StatementRowRequest describes one uploaded file in a batch save. Rows are
// matched to the "files" parts by position.
type StatementRowRequest struct {
	Platform string `json:"platform" binding:"required,aggregator"`
	Brand    string `json:"brand" binding:"omitempty,brand"`
	// WeekStart is any day of the intended week; empty takes the suggested week
	WeekStart string `json:"week_start" binding:"omitempty,datetime=2006-01-02"`
	// Amount corrects the parsed gross
	Amount *decimal.Decimal `json:"amount"`
}

// ManualReportBody is the typed-in figure for one platform
type ManualReportBody struct {
	Platform string `json:"platform" binding:"required,aggregator"`
	Amount   string `json:"amount" binding:"required,max=32"`
}

// DirectWeekBody is one Slerp pay week chosen for saving
type DirectWeekBody struct {
	WeekStart    string          `json:"week_start" binding:"required,datetime=2006-01-02"`
	WeekEnd      string          `json:"week_end" binding:"required,datetime=2006-01-02"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
}

// SaveDirectBody saves previewed Slerp weeks
type SaveDirectBody struct {
	Brand string           `json:"brand" binding:"required,brand"`
	Weeks []DirectWeekBody `json:"pay_weeks" binding:"required,min=1,dive"`
}

// Preview parses one statement without saving it
//
//	@Router	/statements/preview [post]
func (h *StatementHandler) Preview(c *gin.Context) {
	platform, err := franchise.ParsePlatform(c.PostForm("platform"))
	if err != nil || !platform.IsAggregator() {
		h.BadRequest(c, "platform must be one of deliveroo, ubereats or justeat")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	preview, err := h.service.PreviewStatement(c.Request.Context(), extract.Input{
		Filename: fh.Filename,
		Platform: platform,
		Data:     data,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// SaveBatch parses and saves a batch of statements for one franchisee
//
//	@Router	/franchisees/{id}/statements [post]
func (h *StatementHandler) SaveBatch(c *gin.Context) {
	franchiseeID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		h.BadRequest(c, "Expected a multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		h.BadRequest(c, "Please upload at least one platform report")
		return
	}
	if h.maxFiles > 0 && len(files) > h.maxFiles {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeTooManyFiles,
			fmt.Sprintf("At most %d statements can be uploaded at once", h.maxFiles))
		return
	}

	var rows []StatementRowRequest
	if raw := form.Value["rows"]; len(raw) > 0 {
		if err := json.Unmarshal([]byte(raw[0]), &rows); err != nil {
			h.BadRequest(c, "rows must be a JSON array")
			return
		}
	}
	if len(rows) != len(files) {
		h.BadRequest(c, fmt.Sprintf("Expected %d rows, got %d", len(files), len(rows)))
		return
	}
	for i := range rows {
		if err := binding.Validator.ValidateStruct(&rows[i]); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	batch, err := h.buildBatch(c, files, rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.service.SaveBatch(c.Request.Context(), franchiseeID, batch)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Failed() > 0 {
		c.JSON(http.StatusMultiStatus, dto.NewSuccessResponse(result))
		return
	}
	h.Created(c, result)
}

// buildBatch extracts every uploaded file and applies the operator's choices
func (h *StatementHandler) buildBatch(c *gin.Context, files []*multipart.FileHeader, rows []StatementRowRequest) (*reconciliation.UploadBatch, error) {
	batch := reconciliation.NewUploadBatch()
	for i, fh := range files {
		meta := rows[i]
		platform, err := franchise.ParsePlatform(meta.Platform)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_PLATFORM", err.Error())
		}
		data, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		preview, err := h.service.PreviewStatement(c.Request.Context(), extract.Input{
			Filename: fh.Filename,
			Platform: platform,
			Data:     data,
		})
		if err != nil {
			return nil, err
		}

		row := reconciliation.BatchRow{
			Filename: fh.Filename,
			Platform: platform,
			Result:   preview.Result,
			Brand:    franchise.Brand(meta.Brand),
			Amount:   meta.Amount,
			Data:     data,
		}
		if meta.WeekStart != "" {
			w, err := period.NormalizeWeek(meta.WeekStart)
			if err != nil {
				return nil, shared.NewDomainError("INVALID_PERIOD", err.Error())
			}
			row.Week = w
		}
		if _, err := batch.Add(row); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// ListReports returns a page of stored revenue reports for a franchisee
//
//	@Router	/franchisees/{id}/reports [get]
func (h *StatementHandler) ListReports(c *gin.Context) {
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
	if p := c.Query("platform"); p != "" {
		platform, err := franchise.ParsePlatform(p)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		filter.Filters["platform"] = string(platform)
	}
	if b := franchise.Brand(c.Query("brand")).Normalize(); !b.IsBlank() {
		filter.Filters["brand"] = string(b)
	}
	page, err := h.service.ListReports(c.Request.Context(), franchiseeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// RecordManualReport stores a typed-in figure against an invoice
//
//	@Router	/invoices/{id}/reports [post]
func (h *StatementHandler) RecordManualReport(c *gin.Context) {
	invoiceID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var body ManualReportBody
	if !h.bindJSON(c, &body) {
		return
	}
	platform, err := franchise.ParsePlatform(body.Platform)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	inv, err := h.service.RecordManualReport(c.Request.Context(), reconciliation.ManualReportRequest{
		InvoiceID: invoiceID,
		Platform:  platform,
		Amount:    body.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// PreviewDirect reads a Slerp order export into pay weeks
//
//	@Router	/franchisees/{id}/direct/preview [post]
func (h *StatementHandler) PreviewDirect(c *gin.Context) {
	franchiseeID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	brand := franchise.Brand(c.PostForm("brand")).Normalize()
	if !brand.IsKnown() {
		h.BadRequest(c, "brand is required")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	preview, err := h.service.PreviewDirect(c.Request.Context(), franchiseeID, brand, fh.Filename, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// SaveDirect stores the chosen Slerp pay weeks
//
//	@Router	/franchisees/{id}/direct [post]
func (h *StatementHandler) SaveDirect(c *gin.Context) {
	franchiseeID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var body SaveDirectBody
	if !h.bindJSON(c, &body) {
		return
	}

	req := reconciliation.SaveDirectRequest{
		FranchiseeID: franchiseeID,
		Brand:        franchise.Brand(body.Brand).Normalize(),
	}
	for _, w := range body.Weeks {
		start, _ := period.ParseFlexibleDate(w.WeekStart)
		end, _ := period.ParseFlexibleDate(w.WeekEnd)
		req.Weeks = append(req.Weeks, reconciliation.DirectWeekInput{
			WeekStart:    start,
			WeekEnd:      end,
			GrossRevenue: w.GrossRevenue,
		})
	}

	saved, err := h.service.SaveDirect(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, gin.H{"saved": saved})
}

// readUpload reads a multipart file into memory; the extractors bound the size
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Could not open "+fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Could not read "+fh.Filename)
	}
	return data, nil
}
