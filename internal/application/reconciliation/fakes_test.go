package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// In-memory repositories
// =============================================================================

type memFranchisees struct {
	mu    sync.Mutex
	items map[uuid.UUID]franchise.Franchisee
}

func newMemFranchisees(fs ...*franchise.Franchisee) *memFranchisees {
	r := &memFranchisees{items: make(map[uuid.UUID]franchise.Franchisee)}
	for _, f := range fs {
		r.items[f.ID] = *f
	}
	return r
}

func (r *memFranchisees) FindByID(_ context.Context, id uuid.UUID) (*franchise.Franchisee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &f, nil
}

func (r *memFranchisees) FindAll(_ context.Context, _ shared.Filter) ([]franchise.Franchisee, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []franchise.Franchisee
	for _, f := range r.items {
		out = append(out, f)
	}
	return out, int64(len(out)), nil
}

func (r *memFranchisees) FindByPaymentModel(_ context.Context, model franchise.PaymentModel) ([]franchise.Franchisee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []franchise.Franchisee
	for _, f := range r.items {
		if f.Fees.Model == model {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memFranchisees) Save(_ context.Context, f *franchise.Franchisee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[f.ID] = *f
	return nil
}

func (r *memFranchisees) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func reportKeyString(k franchise.ReportKey) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", k.FranchiseeID, k.Brand.Normalize(), k.Platform, k.Period.StartString(), k.Period.EndString())
}

type memReports struct {
	mu       sync.Mutex
	items    map[string]franchise.RevenueReport
	failNext error
}

func newMemReports() *memReports {
	return &memReports{items: make(map[string]franchise.RevenueReport)}
}

func (r *memReports) Replace(_ context.Context, rep *franchise.RevenueReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.items[reportKeyString(rep.Key())] = *rep
	return nil
}

func (r *memReports) FindByKey(_ context.Context, key franchise.ReportKey) (*franchise.RevenueReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.items[reportKeyString(key)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rep, nil
}

func (r *memReports) FindForInvoice(_ context.Context, key franchise.InvoiceKey, platforms ...franchise.Platform) ([]franchise.RevenueReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[franchise.Platform]bool)
	for _, p := range platforms {
		allowed[p] = true
	}
	var out []franchise.RevenueReport
	for _, rep := range r.items {
		if rep.FranchiseeID != key.FranchiseeID || !samePeriod(rep.Period, key.Period) {
			continue
		}
		if !key.Brand.IsBlank() && rep.Brand != key.Brand.Normalize() {
			continue
		}
		if len(allowed) > 0 && !allowed[rep.Platform] {
			continue
		}
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (r *memReports) FindDirectByPeriodEnd(_ context.Context, franchiseeID uuid.UUID, brand franchise.Brand, end time.Time) ([]franchise.RevenueReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []franchise.RevenueReport
	for _, rep := range r.items {
		if rep.FranchiseeID != franchiseeID || rep.Platform.IsAggregator() || !rep.Period.End.Equal(period.Day(end)) {
			continue
		}
		if !brand.IsBlank() && rep.Brand != brand.Normalize() {
			continue
		}
		out = append(out, rep)
	}
	return out, nil
}

func (r *memReports) FindByFranchisee(_ context.Context, franchiseeID uuid.UUID, _ shared.Filter) ([]franchise.RevenueReport, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []franchise.RevenueReport
	for _, rep := range r.items {
		if rep.FranchiseeID == franchiseeID {
			out = append(out, rep)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memReports) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type memInvoices struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*franchise.Invoice
	numbers map[int]int
	// beforeSave, when set, runs ahead of every Save outside the mutex
	beforeSave func(inv *franchise.Invoice)
}

func newMemInvoices() *memInvoices {
	return &memInvoices{items: make(map[uuid.UUID]*franchise.Invoice), numbers: make(map[int]int)}
}

func (r *memInvoices) FindByID(_ context.Context, id uuid.UUID) (*franchise.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoices) FindByKey(_ context.Context, key franchise.InvoiceKey) (*franchise.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.items {
		if inv.Key().LockKey() == key.LockKey() {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoices) FindByFranchisee(_ context.Context, franchiseeID uuid.UUID, _ shared.Filter) ([]franchise.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []franchise.Invoice
	for _, inv := range r.items {
		if inv.FranchiseeID == franchiseeID {
			out = append(out, *inv)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memInvoices) ExistsForPeriod(ctx context.Context, franchiseeID uuid.UUID, p period.Week) (bool, error) {
	_, err := r.FindForPeriod(ctx, franchiseeID, p)
	return err == nil, nil
}

func (r *memInvoices) FindForPeriod(_ context.Context, franchiseeID uuid.UUID, p period.Week) (*franchise.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.items {
		if inv.FranchiseeID == franchiseeID && samePeriod(inv.Period, p) {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoices) Save(_ context.Context, inv *franchise.Invoice) error {
	if r.beforeSave != nil {
		r.beforeSave(inv)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[inv.ID]
	if ok && stored.Version != inv.PersistedVersion() || !ok && inv.PersistedVersion() != 0 {
		return shared.ErrConcurrencyConflict
	}
	for id, other := range r.items {
		if id != inv.ID && other.Number == inv.Number {
			return franchise.ErrInvoiceNumberTaken
		}
	}
	inv.MarkPersisted()
	cp := *inv
	r.items[inv.ID] = &cp
	return nil
}

func (r *memInvoices) put(inv *franchise.Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv.MarkPersisted()
	cp := *inv
	r.items[inv.ID] = &cp
}

func (r *memInvoices) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memInvoices) GenerateInvoiceNumber(_ context.Context, year int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numbers[year]++
	return fmt.Sprintf("HT-%d-%04d", year, r.numbers[year]), nil
}

func (r *memInvoices) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// =============================================================================
// Mocks
// =============================================================================

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// =============================================================================
// Fixtures
// =============================================================================

var fixedNow = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	franchisees *memFranchisees
	reports     *memReports
	invoices    *memInvoices
	archive     *MockArchive
	events      *MockEventPublisher
	svc         *Service
}

func newFixture(fs ...*franchise.Franchisee) *fixture {
	fx := &fixture{
		franchisees: newMemFranchisees(fs...),
		reports:     newMemReports(),
		invoices:    newMemInvoices(),
		archive:     new(MockArchive),
		events:      new(MockEventPublisher),
	}
	fx.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	fx.svc = NewService(ServiceConfig{
		Franchisees: fx.franchisees,
		Reports:     fx.reports,
		Invoices:    fx.invoices,
		Archive:     fx.archive,
		Events:      fx.events,
		Payment:     PaymentDetails{PaymentDays: 7, BankName: "Test Bank", SortCode: "00-00-00", AccountNumber: "12345678"},
		Now:         func() time.Time { return fixedNow },
	})
	return fx
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newFranchisee(model franchise.PaymentModel, direction franchise.PaymentDirection) *franchise.Franchisee {
	fees := franchise.FeeConfiguration{Model: model, Direction: direction}
	switch model {
	case franchise.PaymentModelPercentage:
		fees.PercentageRate = decPtr("6")
	case franchise.PaymentModelPercentagePerPlatform:
		fees.DeliverooPercentage = decPtr("5")
		fees.UberEatsPercentage = decPtr("7")
		fees.JustEatPercentage = decPtr("8")
	case franchise.PaymentModelMonthlyFixed:
		fees.MonthlyFee = decPtr("100")
	}
	f, err := franchise.NewFranchisee("Hungry Tum Bethnal Green", "Bethnal Green", "bg@example.com",
		franchise.KnownBrands(), fees)
	if err != nil {
		panic(err)
	}
	return f
}

func week(start string) period.Week {
	w, err := period.NormalizeWeek(start)
	if err != nil {
		panic(err)
	}
	return w
}
