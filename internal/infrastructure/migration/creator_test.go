package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Add Invoice Notes", "add_invoice_notes"},
		{"add--paid_at  index", "add_paid_at_index"},
		{"  trailing - ", "trailing"},
		{"£ weird ✓ chars 2026", "weird_chars_2026"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in), tt.in)
	}
}

func TestCreateMigration_Sequential(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "init schema", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_init_schema.up.sql"), first.UpPath)

	second, err := CreateMigration(dir, "Add invoice notes", "Free text notes on invoices")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	up, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(up), "-- add_invoice_notes\n"))
	assert.Contains(t, string(up), "-- Free text notes on invoices")

	down, err := os.ReadFile(second.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init_schema", "000002_add_invoice_notes"}, names)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "???", "")
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestShippedMigrationsArePaired(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	names, err := ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for i, name := range names {
		v, ok := versionOf(name)
		require.True(t, ok, name)
		assert.Equal(t, uint(i+1), v, "migration versions must be contiguous")
		_, err := os.Stat(filepath.Join(dir, name+downSuffix))
		assert.NoError(t, err, "missing down migration for %s", name)
	}
}
