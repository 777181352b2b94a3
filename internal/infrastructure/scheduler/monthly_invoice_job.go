package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"go.uber.org/zap"
)

// MonthlyInvoiceJobName identifies the fixed-fee invoice job
const MonthlyInvoiceJobName = "monthly-invoices"

// MonthlyFranchisees lists franchisees billed a fixed monthly fee
type MonthlyFranchisees interface {
	ListMonthly(ctx context.Context) ([]franchise.Franchisee, error)
}

// MonthlyInvoicer creates one month's fixed-fee invoice
type MonthlyInvoicer interface {
	CreateMonthlyInvoice(ctx context.Context, franchiseeID uuid.UUID, month string) (*reconciliation.MonthlyInvoiceResult, error)
}

// MonthlyRunFailure is one franchisee the run could not invoice
type MonthlyRunFailure struct {
	FranchiseeID uuid.UUID `json:"franchisee_id"`
	Name         string    `json:"name"`
	Error        string    `json:"error"`
}

// MonthlyRunSummary counts what a run did
type MonthlyRunSummary struct {
	Month    string              `json:"month,omitempty"`
	Created  int                 `json:"created"`
	Existing int                 `json:"existing"`
	Skipped  int                 `json:"skipped"`
	Failed   []MonthlyRunFailure `json:"failed,omitempty"`
}

// MonthlyInvoiceJob bills every monthly_fixed franchisee for the last full month
type MonthlyInvoiceJob struct {
	franchisees MonthlyFranchisees
	invoicer    MonthlyInvoicer
	logger      *zap.Logger
}

// NewMonthlyInvoiceJob creates the job
func NewMonthlyInvoiceJob(franchisees MonthlyFranchisees, invoicer MonthlyInvoicer, logger *zap.Logger) *MonthlyInvoiceJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonthlyInvoiceJob{franchisees: franchisees, invoicer: invoicer, logger: logger}
}

// Name implements Job
func (j *MonthlyInvoiceJob) Name() string { return MonthlyInvoiceJobName }

// Run implements Job. It fails when any franchisee could not be invoiced.
func (j *MonthlyInvoiceJob) Run(ctx context.Context) error {
	summary, err := j.RunForMonth(ctx, "")
	if err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d of %d monthly invoices failed", len(summary.Failed),
			summary.Created+summary.Existing+summary.Skipped+len(summary.Failed))
	}
	return nil
}

// RunForMonth invoices every monthly franchisee for month ("yyyy-MM", empty
// for the last full month). Franchisees without a fee are skipped; one
// franchisee failing does not stop the others.
func (j *MonthlyInvoiceJob) RunForMonth(ctx context.Context, month string) (*MonthlyRunSummary, error) {
	list, err := j.franchisees.ListMonthly(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monthly franchisees: %w", err)
	}

	summary := &MonthlyRunSummary{Month: month}
	for _, f := range list {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := j.invoicer.CreateMonthlyInvoice(ctx, f.ID, month)
		switch {
		case errors.Is(err, reconciliation.ErrMonthlyFeeUnset):
			summary.Skipped++
			j.logger.Warn("Monthly fee not set, skipping",
				zap.String("franchisee_id", f.ID.String()),
				zap.String("franchisee", f.Name),
			)
		case err != nil:
			summary.Failed = append(summary.Failed, MonthlyRunFailure{FranchiseeID: f.ID, Name: f.Name, Error: err.Error()})
			j.logger.Error("Monthly invoice failed",
				zap.String("franchisee_id", f.ID.String()),
				zap.Error(err),
			)
		case res.Created:
			summary.Created++
		default:
			summary.Existing++
		}
	}

	j.logger.Info("Monthly invoice run complete",
		zap.Int("franchisees", len(list)),
		zap.Int("created", summary.Created),
		zap.Int("existing", summary.Existing),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", len(summary.Failed)),
	)
	return summary, nil
}
