// Command invoicer runs fixed-fee billing outside the server: a monthly run
// across every monthly_fixed franchisee, or a backfill for one franchisee.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	franchiseeapp "github.com/hungrytum/franchise-billing/internal/application/franchisee"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/cache"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/config"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/logger"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/scheduler"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	var (
		month        string
		franchiseeID string
		startMonth   string
		arrears      string
		schedule     string
		fraction     string
	)

	flag.StringVar(&month, "month", "", "Month to bill as yyyy-MM (default: last full month)")
	flag.StringVar(&franchiseeID, "franchisee", "", "Franchisee ID (backfill)")
	flag.StringVar(&startMonth, "start", "", "First month to backfill as yyyy-MM")
	flag.StringVar(&arrears, "arrears", "0", "Opening arrears written off by the waiver schedule (backfill)")
	flag.StringVar(&schedule, "waiver", "", "Waiver schedule: up_to_fee or fraction (default: configured)")
	flag.StringVar(&fraction, "fraction", "0.5", "Share of each fee waived with -waiver fraction")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := persistence.Open(&cfg.Database,
		logger.NewSQLLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	coordination, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize coordination backend", zap.Error(err))
	}
	defer coordination.Close()

	franchiseeRepo := persistence.NewGormFranchiseeRepository(db.DB)
	recon := reconciliation.NewService(reconciliation.ServiceConfig{
		Franchisees: franchiseeRepo,
		Reports:     persistence.NewGormRevenueReportRepository(db.DB),
		Invoices:    persistence.NewGormInvoiceRepository(db.DB),
		TxScope:     persistence.NewGormTransactionScope(db.DB),
		Locker:      coordination.Locker,
		Deliveries:  coordination.Idempotency,
		Waiver:      waiverFromConfig(cfg.Billing),
		Logger:      log,
	})

	var result any
	switch args[0] {
	case "monthly":
		job := scheduler.NewMonthlyInvoiceJob(franchiseeapp.NewService(franchiseeRepo, log), recon, log)
		result, err = job.RunForMonth(ctx, month)

	case "backfill":
		req, perr := backfillRequest(franchiseeID, startMonth, arrears, schedule, fraction)
		if perr != nil {
			log.Fatal("Invalid backfill arguments", zap.Error(perr))
		}
		result, err = recon.Backfill(ctx, req)

	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("Invoicing failed", zap.String("command", args[0]), zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal("Failed to write result", zap.Error(err))
	}
}

func backfillRequest(id, start, arrears, schedule, fraction string) (reconciliation.BackfillRequest, error) {
	var req reconciliation.BackfillRequest
	fid, err := uuid.Parse(id)
	if err != nil {
		return req, fmt.Errorf("-franchisee: %w", err)
	}
	if start == "" {
		return req, fmt.Errorf("-start is required")
	}
	amount, err := decimal.NewFromString(arrears)
	if err != nil {
		return req, fmt.Errorf("-arrears: %w", err)
	}
	req = reconciliation.BackfillRequest{FranchiseeID: fid, StartMonth: start, InitialArrears: amount}

	switch schedule {
	case "":
	case config.WaiverUpToFee:
		req.Schedule = reconciliation.WaiveUpToFee
	case config.WaiverFraction:
		share, err := decimal.NewFromString(fraction)
		if err != nil || !share.IsPositive() || share.GreaterThan(decimal.NewFromInt(1)) {
			return req, fmt.Errorf("-fraction must be in (0, 1], got %q", fraction)
		}
		req.Schedule = reconciliation.WaiveFraction(share)
	default:
		return req, fmt.Errorf("-waiver must be %q or %q", config.WaiverUpToFee, config.WaiverFraction)
	}
	return req, nil
}

func waiverFromConfig(cfg config.BillingConfig) reconciliation.WaiverSchedule {
	if cfg.WaiverSchedule == config.WaiverFraction {
		return reconciliation.WaiveFraction(decimal.NewFromFloat(cfg.WaiverFraction))
	}
	return reconciliation.WaiveUpToFee
}

func printUsage() {
	fmt.Println(`Franchise fixed-fee invoicing

Usage:
  invoicer [flags] <command>

Commands:
  monthly    Invoice every monthly_fixed franchisee for one month
  backfill   Create missing monthly invoices for one franchisee

Examples:
  invoicer -month 2024-02 monthly
  invoicer -franchisee <id> -start 2023-10 -arrears 1500 -waiver fraction -fraction 0.5 backfill`)
}
