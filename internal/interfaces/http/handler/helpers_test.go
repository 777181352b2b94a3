package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	franchiseeapp "github.com/hungrytum/franchise-billing/internal/application/franchisee"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/cache"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/extract"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence/models"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/storage"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/dto"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "whsec_test"

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type testServer struct {
	engine  *gin.Engine
	db      *gorm.DB
	archive *storage.MemoryStatementArchive
}

// fixedNow is mid-March 2024, so February is the last full month
var fixedNow = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.FranchiseeModel{}, &models.RevenueReportModel{}, &models.InvoiceModel{}))

	franchiseeRepo := persistence.NewGormFranchiseeRepository(db)
	archive := storage.NewMemoryStatementArchive()
	recon := reconciliation.NewService(reconciliation.ServiceConfig{
		Franchisees: franchiseeRepo,
		Reports:     persistence.NewGormRevenueReportRepository(db),
		Invoices:    persistence.NewGormInvoiceRepository(db),
		TxScope:     persistence.NewGormTransactionScope(db),
		Locker:      cache.NewMemoryLocker(),
		Deliveries:  cache.NewInMemoryIdempotencyStore(),
		Archive:     archive,
		Extractor:   extract.NewRouter(extract.DefaultConfig(), extract.NewPDFTextSource(), zap.NewNop()),
		Now:         func() time.Time { return fixedNow },
		Logger:      zap.NewNop(),
	})

	franchisees := NewFranchiseeHandler(franchiseeapp.NewService(franchiseeRepo, zap.NewNop()))
	statements := NewStatementHandler(recon, 3)
	invoices := NewInvoiceHandler(recon)
	payments := NewPaymentWebhookHandler(recon, testSecret)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1")
	api.POST("/franchisees", franchisees.Create)
	api.GET("/franchisees", franchisees.List)
	api.GET("/franchisees/:id", franchisees.GetByID)
	api.PUT("/franchisees/:id", franchisees.Update)
	api.PUT("/franchisees/:id/fees", franchisees.UpdateFees)
	api.DELETE("/franchisees/:id", franchisees.Delete)
	api.GET("/franchisees/:id/reports", statements.ListReports)
	api.GET("/franchisees/:id/invoices", invoices.List)
	api.POST("/franchisees/:id/statements", statements.SaveBatch)
	api.POST("/franchisees/:id/monthly-invoices", invoices.CreateMonthly)
	api.POST("/franchisees/:id/backfill", invoices.Backfill)
	api.POST("/statements/preview", statements.Preview)
	api.GET("/invoices/:id", invoices.GetByID)
	api.PATCH("/invoices/:id", invoices.Update)
	api.DELETE("/invoices/:id", invoices.Delete)
	api.POST("/invoices/:id/paid", invoices.MarkPaid)
	api.GET("/invoices/:id/statement", invoices.Statement)
	api.POST("/invoices/:id/reports", statements.RecordManualReport)
	api.POST("/webhooks/payments", payments.Handle)

	return &testServer{engine: engine, db: db, archive: archive}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) json(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

type upload struct {
	field, name, content string
}

func (s *testServer) multipart(t *testing.T, path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

// decode unmarshals the envelope and its data into out
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var env struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env.Response
}

type idBody struct {
	ID uuid.UUID `json:"id"`
}

func (s *testServer) createFranchisee(t *testing.T, body string) uuid.UUID {
	t.Helper()
	w := s.json(http.MethodPost, "/api/v1/franchisees", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var got idBody
	decode(t, w, &got)
	require.NotEqual(t, uuid.Nil, got.ID)
	return got.ID
}

const percentageFranchisee = `{
	"name": "Hitchin Kitchen",
	"location": "Hitchin",
	"email": "ops@hitchin.example",
	"brands": ["Wing Shack", "SMSH BN"],
	"fees": {"payment_model": "percentage", "percentage_rate": "6"}
}`

const monthlyFranchisee = `{
	"name": "Bedford Kitchen",
	"location": "Bedford",
	"brands": ["Wing Shack"],
	"fees": {"payment_model": "monthly_fixed", "monthly_fee": "500"}
}`

const deliverooCSV = "Order ID,Date,Total\n1,14/01/2024,£10.50\n2,14/01/2024,\"£1,200.00\"\n"
