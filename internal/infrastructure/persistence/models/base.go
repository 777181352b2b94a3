package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"gorm.io/gorm"
)

// BaseModel holds the id and audit columns every billing table carries
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate fills an ID for rows built outside the domain constructors,
// such as test fixtures.
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the optimistic-lock version used by franchisees and invoices
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// root rebuilds the aggregate header. Pending events are never persisted.
func (m *AggregateModel) root() shared.BaseAggregateRoot {
	return shared.RestoreAggregateRoot(m.entity(), m.Version)
}

func (m *AggregateModel) setRoot(a shared.BaseAggregateRoot) {
	m.setEntity(a.BaseEntity)
	m.Version = a.Version
}
