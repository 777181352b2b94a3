package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/shopspring/decimal"
)

// FranchiseeModel is the persistence model for the Franchisee aggregate.
type FranchiseeModel struct {
	AggregateModel
	Name                string                     `gorm:"type:varchar(200);not null"`
	Location            string                     `gorm:"type:varchar(200);not null"`
	Email               string                     `gorm:"type:varchar(200)"`
	BusinessAddress     string                     `gorm:"type:text"`
	SiteAddress         string                     `gorm:"type:text"`
	BrandsJSON          string                     `gorm:"column:brands;type:jsonb"`
	PaymentModel        franchise.PaymentModel     `gorm:"type:varchar(32);not null;index"`
	PaymentDirection    franchise.PaymentDirection `gorm:"type:varchar(20);not null;default:'collect_fees'"`
	PercentageRate      *decimal.Decimal           `gorm:"type:decimal(5,2)"`
	DeliverooPercentage *decimal.Decimal           `gorm:"type:decimal(5,2)"`
	UberEatsPercentage  *decimal.Decimal           `gorm:"column:ubereats_percentage;type:decimal(5,2)"`
	JustEatPercentage   *decimal.Decimal           `gorm:"column:justeat_percentage;type:decimal(5,2)"`
	SlerpPercentage     *decimal.Decimal           `gorm:"type:decimal(5,2)"`
	MonthlyFee          *decimal.Decimal           `gorm:"type:decimal(12,2)"`
}

// TableName returns the table name for GORM
func (FranchiseeModel) TableName() string {
	return "franchisees"
}

// ToDomain converts the persistence model to a domain Franchisee.
func (m *FranchiseeModel) ToDomain() *franchise.Franchisee {
	var raw []string
	if m.BrandsJSON != "" {
		_ = json.Unmarshal([]byte(m.BrandsJSON), &raw)
	}
	brands := make([]franchise.Brand, 0, len(raw))
	for _, b := range raw {
		brands = append(brands, franchise.Brand(b))
	}
	return &franchise.Franchisee{
		BaseAggregateRoot: m.root(),
		Name:              m.Name,
		Location:          m.Location,
		Email:             m.Email,
		BusinessAddress:   m.BusinessAddress,
		SiteAddress:       m.SiteAddress,
		Brands:            brands,
		Fees: franchise.FeeConfiguration{
			Model:               m.PaymentModel,
			PercentageRate:      m.PercentageRate,
			DeliverooPercentage: m.DeliverooPercentage,
			UberEatsPercentage:  m.UberEatsPercentage,
			JustEatPercentage:   m.JustEatPercentage,
			SlerpPercentage:     m.SlerpPercentage,
			MonthlyFee:          m.MonthlyFee,
			Direction:           m.PaymentDirection,
		},
	}
}

// FromDomain populates the persistence model from a domain Franchisee.
func (m *FranchiseeModel) FromDomain(f *franchise.Franchisee) {
	m.setRoot(f.BaseAggregateRoot)
	m.Name = f.Name
	m.Location = f.Location
	m.Email = f.Email
	m.BusinessAddress = f.BusinessAddress
	m.SiteAddress = f.SiteAddress
	raw := make([]string, 0, len(f.Brands))
	for _, b := range f.Brands {
		raw = append(raw, b.String())
	}
	data, _ := json.Marshal(raw)
	m.BrandsJSON = string(data)
	m.PaymentModel = f.Fees.Model
	m.PaymentDirection = f.Fees.Direction
	m.PercentageRate = f.Fees.PercentageRate
	m.DeliverooPercentage = f.Fees.DeliverooPercentage
	m.UberEatsPercentage = f.Fees.UberEatsPercentage
	m.JustEatPercentage = f.Fees.JustEatPercentage
	m.SlerpPercentage = f.Fees.SlerpPercentage
	m.MonthlyFee = f.Fees.MonthlyFee
}

// FranchiseeModelFromDomain creates a new persistence model from a domain Franchisee.
func FranchiseeModelFromDomain(f *franchise.Franchisee) *FranchiseeModel {
	m := &FranchiseeModel{}
	m.FromDomain(f)
	return m
}

// RevenueReportModel is the persistence model for a RevenueReport.
// The unique index enforces one report per report key.
type RevenueReportModel struct {
	BaseModel
	FranchiseeID uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_revenue_report_key,priority:1"`
	Brand        franchise.Brand      `gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_revenue_report_key,priority:2"`
	Platform     franchise.Platform   `gorm:"type:varchar(20);not null;uniqueIndex:idx_revenue_report_key,priority:3"`
	PeriodStart  time.Time            `gorm:"type:date;not null;uniqueIndex:idx_revenue_report_key,priority:4"`
	PeriodEnd    time.Time            `gorm:"type:date;not null;uniqueIndex:idx_revenue_report_key,priority:5;index"`
	GrossRevenue decimal.Decimal      `gorm:"type:decimal(12,2);not null;default:0"`
	SourcePath   *string              `gorm:"type:text"`
	Source       franchise.SourceKind `gorm:"type:varchar(10);not null"`
}

// TableName returns the table name for GORM
func (RevenueReportModel) TableName() string {
	return "revenue_reports"
}

// ToDomain converts the persistence model to a domain RevenueReport.
func (m *RevenueReportModel) ToDomain() *franchise.RevenueReport {
	return &franchise.RevenueReport{
		BaseEntity:   m.entity(),
		FranchiseeID: m.FranchiseeID,
		Brand:        m.Brand,
		Platform:     m.Platform,
		Period:       period.Week{Start: period.Day(m.PeriodStart), End: period.Day(m.PeriodEnd)},
		GrossRevenue: m.GrossRevenue,
		SourcePath:   m.SourcePath,
		Source:       m.Source,
	}
}

// FromDomain populates the persistence model from a domain RevenueReport.
func (m *RevenueReportModel) FromDomain(r *franchise.RevenueReport) {
	m.setEntity(r.BaseEntity)
	m.FranchiseeID = r.FranchiseeID
	m.Brand = r.Brand.Normalize()
	m.Platform = r.Platform
	m.PeriodStart = period.Day(r.Period.Start)
	m.PeriodEnd = period.Day(r.Period.End)
	m.GrossRevenue = r.GrossRevenue
	m.SourcePath = r.SourcePath
	m.Source = r.Source
}

// RevenueReportModelFromDomain creates a new persistence model from a domain RevenueReport.
func RevenueReportModelFromDomain(r *franchise.RevenueReport) *RevenueReportModel {
	m := &RevenueReportModel{}
	m.FromDomain(r)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate.
// The unique index enforces one invoice per invoice key.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string                  `gorm:"type:varchar(20);not null;uniqueIndex"`
	FranchiseeID  uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_key,priority:1"`
	Brand         franchise.Brand         `gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_invoice_key,priority:2"`
	PeriodStart   time.Time               `gorm:"type:date;not null;uniqueIndex:idx_invoice_key,priority:3"`
	PeriodEnd     time.Time               `gorm:"type:date;not null;uniqueIndex:idx_invoice_key,priority:4"`
	TotalGross    decimal.Decimal         `gorm:"column:total_gross_revenue;type:decimal(12,2);not null;default:0"`
	FeePercentage decimal.Decimal         `gorm:"type:decimal(7,2);not null;default:0"`
	FeeAmount     decimal.Decimal         `gorm:"type:decimal(12,2);not null;default:0"`
	Status        franchise.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	PaidAt        *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *franchise.Invoice {
	return &franchise.Invoice{
		BaseAggregateRoot: m.root(),
		Number:            m.InvoiceNumber,
		FranchiseeID:      m.FranchiseeID,
		Brand:             m.Brand,
		Period:            period.Week{Start: period.Day(m.PeriodStart), End: period.Day(m.PeriodEnd)},
		TotalGross:        m.TotalGross,
		FeePercentage:     m.FeePercentage,
		FeeAmount:         m.FeeAmount,
		Status:            m.Status,
		PaidAt:            m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(i *franchise.Invoice) {
	m.setRoot(i.BaseAggregateRoot)
	m.InvoiceNumber = i.Number
	m.FranchiseeID = i.FranchiseeID
	m.Brand = i.Brand.Normalize()
	m.PeriodStart = period.Day(i.Period.Start)
	m.PeriodEnd = period.Day(i.Period.End)
	m.TotalGross = i.TotalGross
	m.FeePercentage = i.FeePercentage
	m.FeeAmount = i.FeeAmount
	m.Status = i.Status
	m.PaidAt = i.PaidAt
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(i *franchise.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(i)
	return m
}
