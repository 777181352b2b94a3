package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestRouter_BasePath(t *testing.T) {
	assert.Equal(t, "/api/v1", NewRouter(gin.New()).BasePath())
	assert.Equal(t, "/api/v2", NewRouter(gin.New(), WithAPIVersion("v2")).BasePath())
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()
	invoices := NewDomainGroup("invoices", "/invoices").
		GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) }).
		PATCH("/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) }).
		DELETE("/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	franchisees := NewDomainGroup("franchisees", "/franchisees").
		GET("", func(c *gin.Context) { c.Status(http.StatusOK) }).
		PUT("/:id/fees", func(c *gin.Context) { c.Status(http.StatusOK) }).
		POST("/:id/statements", func(c *gin.Context) { c.Status(http.StatusCreated) })

	NewRouter(engine).Mount(invoices, franchisees).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/invoices/inv-7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inv-7", w.Body.String())

	for _, tt := range []struct {
		method, target string
		want           int
	}{
		{http.MethodPatch, "/api/v1/invoices/inv-7", http.StatusAccepted},
		{http.MethodDelete, "/api/v1/invoices/inv-7", http.StatusNoContent},
		{http.MethodGet, "/api/v1/franchisees", http.StatusOK},
		{http.MethodPut, "/api/v1/franchisees/f1/fees", http.StatusOK},
		{http.MethodPost, "/api/v1/franchisees/f1/statements", http.StatusCreated},
		{http.MethodGet, "/invoices/inv-7", http.StatusNotFound},
	} {
		assert.Equal(t, tt.want, serve(engine, tt.method, tt.target).Code, tt.method+" "+tt.target)
	}
}

func TestDomainGroup_MiddlewareIsScoped(t *testing.T) {
	engine := gin.New()
	guarded := NewDomainGroup("franchisees", "/franchisees").
		Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }).
		GET("/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	open := NewDomainGroup("system", "/system").
		GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	NewRouter(engine).Mount(guarded, open).Setup()

	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/franchisees/f1").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/system/ping").Code)
}

func TestRouter_Routes(t *testing.T) {
	r := NewRouter(gin.New())
	r.Mount(
		NewDomainGroup("invoices", "/invoices").
			GET("/:id", func(c *gin.Context) {}).
			GET("/:id/statement", func(c *gin.Context) {}),
		NewDomainGroup("franchisees", "/franchisees").
			GET("", func(c *gin.Context) {}),
	)

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, []RouteInfo{
		{Group: "invoices", Method: http.MethodGet, Path: "/api/v1/invoices/:id"},
		{Group: "invoices", Method: http.MethodGet, Path: "/api/v1/invoices/:id/statement"},
		{Group: "franchisees", Method: http.MethodGet, Path: "/api/v1/franchisees"},
	}, routes)
}

func TestBillingGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	uploads := 0
	groups := BillingGroups(Handlers{
		Franchisees: handler.NewFranchiseeHandler(nil),
		Statements:  handler.NewStatementHandler(nil, 10),
		Invoices:    handler.NewInvoiceHandler(nil),
		Payments:    handler.NewPaymentWebhookHandler(nil, ""),
		System:      handler.NewSystemHandler(nil, "test"),
	}, func(c *gin.Context) {
		uploads++
		c.AbortWithStatus(http.StatusTeapot)
	})
	r.Mount(groups...).Setup()

	routes := map[string]bool{}
	for _, ri := range r.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/system/ping",
		"POST /api/v1/franchisees/:id/statements",
		"PUT /api/v1/franchisees/:id/fees",
		"POST /api/v1/franchisees/:id/backfill",
		"GET /api/v1/invoices/:id/statement",
		"POST /api/v1/invoices/:id/reports",
		"POST /api/v1/webhooks/payments",
	} {
		assert.True(t, routes[want], want)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/statements/preview", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, uploads)
}
