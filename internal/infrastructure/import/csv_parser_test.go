package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFDate,Total\n01/01/2024,10"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, "Date", parser.Headers()[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("  \n"))
		assert.Nil(t, parser)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Too large", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("a,b\n1,2\n"), WithMaxBytes(4))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("Windows-1252 pound sign is decoded", func(t *testing.T) {
		table, err := ReadTable([]byte("Total\n\xA312.50\n"))
		require.NoError(t, err)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "£12.50", table.Rows[0].Get("Total"))
	})

	t.Run("Semicolon delimiter is sniffed", func(t *testing.T) {
		table, err := ReadTable([]byte("Date;Total\n01/01/2024;10,50\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Total"}, table.Headers)
		assert.Equal(t, "10,50", table.Rows[0].Get("Total"))
	})

	t.Run("Forced delimiter", func(t *testing.T) {
		table, err := ReadTable([]byte("a|b\n1|2\n"), WithDelimiter('|'))
		require.NoError(t, err)
		assert.Equal(t, "2", table.Rows[0].Get("b"))
	})
}

func TestReadTable(t *testing.T) {
	t.Run("skips blank rows and pads short rows", func(t *testing.T) {
		table, err := ReadTable([]byte("Order ID, Total ,Notes\n1, 10.00\n,,\n2,20.00,late\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Order ID", "Total", "Notes"}, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "", table.Rows[0].Get("Notes"))
		assert.Equal(t, []string{"10.00", "20.00"}, table.Column("Total"))
		assert.Equal(t, 4, table.Rows[1].LineNumber)
	})

	t.Run("duplicate headers keep the first column", func(t *testing.T) {
		table, err := ReadTable([]byte("Total,Total\n1,2\n"))
		require.NoError(t, err)
		assert.Equal(t, "1", table.Rows[0].Get("Total"))
	})

	t.Run("malformed lines are skipped", func(t *testing.T) {
		table, err := ReadTable([]byte("Order,Total\n1,10\n2,5\"x\n3,7\n"), WithLazyQuotes(false))
		require.NoError(t, err)
		assert.Equal(t, []string{"10", "7"}, table.Column("Total"))
		require.Len(t, table.Skipped, 1)
		assert.Equal(t, 3, table.Skipped[0].Line)
	})

	t.Run("header only", func(t *testing.T) {
		table, err := ReadTable([]byte("Total\n"))
		require.NoError(t, err)
		assert.Empty(t, table.Rows)
	})
}

func TestSkippedLine(t *testing.T) {
	assert.Equal(t, "line 3 skipped: bad quote", SkippedLine{Line: 3, Reason: "bad quote"}.Error())
}
