package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceBody struct {
	ID            uuid.UUID       `json:"id"`
	Number        string          `json:"invoice_number"`
	Brand         franchise.Brand `json:"brand"`
	TotalGross    decimal.Decimal `json:"total_gross_revenue"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	Status        string          `json:"status"`
	Period        struct {
		Start string `json:"start"`
	} `json:"period"`
}

type batchBody struct {
	Rows     []reconciliation.RowResult `json:"rows"`
	Invoices []invoiceBody              `json:"invoices"`
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// saveDeliverooWeek uploads the sample CSV for Wing Shack in the week of 8 January 2024
func saveDeliverooWeek(t *testing.T, srv *testServer, franchiseeID uuid.UUID) invoiceBody {
	t.Helper()
	w := srv.multipart(t, "/api/v1/franchisees/"+franchiseeID.String()+"/statements",
		map[string]string{"rows": `[{"platform": "deliveroo", "brand": "Wing Shack", "week_start": "2024-01-10"}]`},
		upload{"files", "deliveroo-week2.csv", deliverooCSV},
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var got batchBody
	decode(t, w, &got)
	require.Len(t, got.Invoices, 1)
	return got.Invoices[0]
}

func TestStatementHandler_Preview(t *testing.T) {
	srv := newTestServer(t)

	t.Run("csv statement", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/statements/preview",
			map[string]string{"platform": "Deliveroo"},
			upload{"file", "orders.csv", deliverooCSV},
		)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got struct {
			Filename string `json:"filename"`
			Result   struct {
				GrossRevenue decimal.Decimal `json:"gross_revenue"`
			} `json:"result"`
			SuggestedWeek *struct {
				Start string `json:"start"`
			} `json:"suggested_week"`
		}
		decode(t, w, &got)
		assert.Equal(t, "orders.csv", got.Filename)
		assertMoney(t, "1210.50", got.Result.GrossRevenue)
		require.NotNil(t, got.SuggestedWeek)
		assert.Contains(t, got.SuggestedWeek.Start, "2024-01-08")
	})

	t.Run("slerp is not an aggregator", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/statements/preview",
			map[string]string{"platform": "slerp"},
			upload{"file", "orders.csv", deliverooCSV},
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/statements/preview", map[string]string{"platform": "ubereats"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/statements/preview",
			map[string]string{"platform": "justeat"},
			upload{"file", "notes.txt", "hello"},
		)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeUnsupportedFormat, resp.Error.Code)
	})
}

func TestStatementHandler_SaveBatch(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createFranchisee(t, percentageFranchisee)

	t.Run("creates the weekly invoice", func(t *testing.T) {
		inv := saveDeliverooWeek(t, srv, id)
		assert.Equal(t, franchise.BrandWingShack, inv.Brand)
		assertMoney(t, "1210.50", inv.TotalGross)
		assertMoney(t, "72.63", inv.FeeAmount)
		assert.Equal(t, "draft", inv.Status)
		assert.Contains(t, inv.Period.Start, "2024-01-08")

		assert.Equal(t, 1, srv.archive.Len())
	})

	t.Run("re-uploading the same week replaces the figure", func(t *testing.T) {
		first := saveDeliverooWeek(t, srv, id)
		second := saveDeliverooWeek(t, srv, id)
		assert.Equal(t, first.ID, second.ID)
		assertMoney(t, "1210.50", second.TotalGross)
	})

	t.Run("rows must match files", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/franchisees/"+id.String()+"/statements",
			map[string]string{"rows": `[]`},
			upload{"files", "a.csv", deliverooCSV},
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown brand fails validation", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/franchisees/"+id.String()+"/statements",
			map[string]string{"rows": `[{"platform": "deliveroo", "brand": "Pizza Palace"}]`},
			upload{"files", "a.csv", deliverooCSV},
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("too many files", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/franchisees/"+id.String()+"/statements", nil,
			upload{"files", "a.csv", deliverooCSV},
			upload{"files", "b.csv", deliverooCSV},
			upload{"files", "c.csv", deliverooCSV},
			upload{"files", "d.csv", deliverooCSV},
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeTooManyFiles, resp.Error.Code)
	})

	t.Run("unknown franchisee", func(t *testing.T) {
		w := srv.multipart(t, "/api/v1/franchisees/"+uuid.NewString()+"/statements",
			map[string]string{"rows": `[{"platform": "deliveroo", "brand": "Wing Shack", "week_start": "2024-01-10"}]`},
			upload{"files", "a.csv", deliverooCSV},
		)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reports are listed by platform", func(t *testing.T) {
		w := srv.json(http.MethodGet, "/api/v1/franchisees/"+id.String()+"/reports?platform=deliveroo", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got []struct {
			Platform     franchise.Platform `json:"platform"`
			GrossRevenue decimal.Decimal    `json:"gross_revenue"`
		}
		resp := decode(t, w, &got)
		require.Len(t, got, 1)
		assert.Equal(t, franchise.PlatformDeliveroo, got[0].Platform)
		assert.Equal(t, int64(1), resp.Meta.Total)

		w = srv.json(http.MethodGet, "/api/v1/franchisees/"+id.String()+"/reports?platform=ubereats", nil)
		got = nil
		decode(t, w, &got)
		assert.Empty(t, got)
	})
}

func TestStatementHandler_RecordManualReport(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createFranchisee(t, percentageFranchisee)
	inv := saveDeliverooWeek(t, srv, id)
	path := "/api/v1/invoices/" + inv.ID.String() + "/reports"

	w := srv.json(http.MethodPost, path, `{"platform": "Uber Eats", "amount": "£200.00"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got invoiceBody
	decode(t, w, &got)
	assertMoney(t, "1410.50", got.TotalGross)
	assertMoney(t, "84.63", got.FeeAmount)

	t.Run("negative amounts are rejected", func(t *testing.T) {
		w := srv.json(http.MethodPost, path, `{"platform": "justeat", "amount": "-5"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("slerp is not entered by hand", func(t *testing.T) {
		w := srv.json(http.MethodPost, path, `{"platform": "slerp", "amount": "5"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})
}
