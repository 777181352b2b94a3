package router

import (
	"github.com/gin-gonic/gin"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/handler"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/middleware"
)

// Handlers bundles the billing API handlers
type Handlers struct {
	Franchisees *handler.FranchiseeHandler
	Statements  *handler.StatementHandler
	Invoices    *handler.InvoiceHandler
	Payments    *handler.PaymentWebhookHandler
	System      *handler.SystemHandler
}

// BillingGroups builds the route groups of the billing API. uploads is applied
// to the endpoints that accept statement files.
func BillingGroups(h Handlers, uploads ...gin.HandlerFunc) []*DomainGroup {
	system := NewDomainGroup("system", "/system")
	system.GET("/health", h.System.Health)
	system.GET("/ping", h.System.Ping)

	franchisees := NewDomainGroup("franchisees", "/franchisees").Use(middleware.FranchiseeScope())
	franchisees.GET("", h.Franchisees.List)
	franchisees.POST("", h.Franchisees.Create)
	franchisees.GET("/:id", h.Franchisees.GetByID)
	franchisees.PUT("/:id", h.Franchisees.Update)
	franchisees.PUT("/:id/fees", h.Franchisees.UpdateFees)
	franchisees.DELETE("/:id", h.Franchisees.Delete)
	franchisees.GET("/:id/reports", h.Statements.ListReports)
	franchisees.GET("/:id/invoices", h.Invoices.List)
	franchisees.POST("/:id/statements", chain(uploads, h.Statements.SaveBatch)...)
	franchisees.POST("/:id/direct/preview", chain(uploads, h.Statements.PreviewDirect)...)
	franchisees.POST("/:id/direct", h.Statements.SaveDirect)
	franchisees.POST("/:id/monthly-invoices", h.Invoices.CreateMonthly)
	franchisees.POST("/:id/backfill", h.Invoices.Backfill)

	statements := NewDomainGroup("statements", "/statements")
	statements.POST("/preview", chain(uploads, h.Statements.Preview)...)

	invoices := NewDomainGroup("invoices", "/invoices")
	invoices.GET("/:id", h.Invoices.GetByID)
	invoices.PATCH("/:id", h.Invoices.Update)
	invoices.DELETE("/:id", h.Invoices.Delete)
	invoices.POST("/:id/paid", h.Invoices.MarkPaid)
	invoices.GET("/:id/statement", h.Invoices.Statement)
	invoices.POST("/:id/reports", h.Statements.RecordManualReport)

	webhooks := NewDomainGroup("webhooks", "/webhooks")
	webhooks.POST("/payments", h.Payments.Handle)

	return []*DomainGroup{system, franchisees, statements, invoices, webhooks}
}

func chain(middleware []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middleware)+1)
	out = append(out, middleware...)
	return append(out, h)
}
