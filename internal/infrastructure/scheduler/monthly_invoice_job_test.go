package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMonthlyFranchisees struct {
	mock.Mock
}

func (m *mockMonthlyFranchisees) ListMonthly(ctx context.Context) ([]franchise.Franchisee, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]franchise.Franchisee)
	return list, args.Error(1)
}

type mockMonthlyInvoicer struct {
	mock.Mock
}

func (m *mockMonthlyInvoicer) CreateMonthlyInvoice(ctx context.Context, id uuid.UUID, month string) (*reconciliation.MonthlyInvoiceResult, error) {
	args := m.Called(ctx, id, month)
	res, _ := args.Get(0).(*reconciliation.MonthlyInvoiceResult)
	return res, args.Error(1)
}

func monthlyFranchisee(name string) franchise.Franchisee {
	var f franchise.Franchisee
	f.ID = uuid.New()
	f.Name = name
	f.Fees.Model = franchise.PaymentModelMonthlyFixed
	return f
}

func TestMonthlyInvoiceJob_RunForMonth(t *testing.T) {
	created := monthlyFranchisee("Luton Wing Shack")
	existing := monthlyFranchisee("Bedford")
	noFee := monthlyFranchisee("Hitchin")
	broken := monthlyFranchisee("Stevenage")

	lister := new(mockMonthlyFranchisees)
	lister.On("ListMonthly", mock.Anything).Return([]franchise.Franchisee{created, existing, noFee, broken}, nil)

	invoicer := new(mockMonthlyInvoicer)
	invoicer.On("CreateMonthlyInvoice", mock.Anything, created.ID, "2026-09").
		Return(&reconciliation.MonthlyInvoiceResult{Created: true}, nil)
	invoicer.On("CreateMonthlyInvoice", mock.Anything, existing.ID, "2026-09").
		Return(&reconciliation.MonthlyInvoiceResult{Created: false}, nil)
	invoicer.On("CreateMonthlyInvoice", mock.Anything, noFee.ID, "2026-09").
		Return(nil, reconciliation.ErrMonthlyFeeUnset)
	invoicer.On("CreateMonthlyInvoice", mock.Anything, broken.ID, "2026-09").
		Return(nil, errors.New("connection refused"))

	job := NewMonthlyInvoiceJob(lister, invoicer, nil)
	summary, err := job.RunForMonth(context.Background(), "2026-09")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Existing)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, broken.ID, summary.Failed[0].FranchiseeID)
	assert.Equal(t, "connection refused", summary.Failed[0].Error)
	invoicer.AssertExpectations(t)
}

func TestMonthlyInvoiceJob_Run(t *testing.T) {
	t.Run("last full month and success", func(t *testing.T) {
		f := monthlyFranchisee("Bedford")
		lister := new(mockMonthlyFranchisees)
		lister.On("ListMonthly", mock.Anything).Return([]franchise.Franchisee{f}, nil)
		invoicer := new(mockMonthlyInvoicer)
		invoicer.On("CreateMonthlyInvoice", mock.Anything, f.ID, "").
			Return(&reconciliation.MonthlyInvoiceResult{Created: true}, nil).Once()

		job := NewMonthlyInvoiceJob(lister, invoicer, nil)
		assert.Equal(t, MonthlyInvoiceJobName, job.Name())
		require.NoError(t, job.Run(context.Background()))
		invoicer.AssertExpectations(t)
	})

	t.Run("fails when any franchisee fails", func(t *testing.T) {
		f := monthlyFranchisee("Bedford")
		lister := new(mockMonthlyFranchisees)
		lister.On("ListMonthly", mock.Anything).Return([]franchise.Franchisee{f}, nil)
		invoicer := new(mockMonthlyInvoicer)
		invoicer.On("CreateMonthlyInvoice", mock.Anything, f.ID, "").Return(nil, errors.New("boom"))

		err := NewMonthlyInvoiceJob(lister, invoicer, nil).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 1")
	})

	t.Run("listing failure", func(t *testing.T) {
		lister := new(mockMonthlyFranchisees)
		lister.On("ListMonthly", mock.Anything).Return(nil, errors.New("db down"))

		err := NewMonthlyInvoiceJob(lister, new(mockMonthlyInvoicer), nil).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list monthly franchisees")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		lister := new(mockMonthlyFranchisees)
		lister.On("ListMonthly", mock.Anything).Return([]franchise.Franchisee{monthlyFranchisee("A")}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewMonthlyInvoiceJob(lister, new(mockMonthlyInvoicer), nil).RunForMonth(ctx, "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
