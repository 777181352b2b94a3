// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: shared id, timestamp and version columns
//   - franchise.go: franchisees, revenue reports and invoices
//
// Period boundaries are stored as DATE columns holding UTC midnights.
package models
