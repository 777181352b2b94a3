package extract

import (
	"testing"
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	"github.com/stretchr/testify/assert"
)

const justEatInvoiceHTML = `<!DOCTYPE html>
<html><head><style>.k { color: red; }</style><script>var x = "Total sales £1.00";</script></head>
<body>
<div>Statement period: 08/01/2024 &ndash; 14/01/2024</div>
<table><tr><td>Total sales</td><td>&pound;286.20</td></tr>
<tr><td>You will receive from Just Eat</td><td>&pound;192.60</td></tr></table>
</body></html>`

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"doctype", "<!DOCTYPE html><html></html>", true},
		{"leading whitespace", "\n  <html>", true},
		{"upper case", "<HTML><BODY>", true},
		{"xml prolog", `<?xml version="1.0"?><html xmlns="x">`, true},
		{"pdf", "%PDF-1.4\n", false},
		{"ole compound document", "\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1", false},
		{"csv", "Date,Total\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeHTML([]byte(tt.data)))
		})
	}
}

func TestStripHTML(t *testing.T) {
	html := `<html><style>.a{}</style><body><table><tr><td>Total sales</td><td>&pound;286.20</td></tr></table></body></html>`
	assert.Equal(t, "Total sales £286.20", StripHTML(html))
}

func TestStripHTML_CharacterReferences(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"decimal", "<td>Total sales</td><td>&#163;286.20</td>", "Total sales £286.20"},
		{"hex", "<td>Total sales</td><td>&#xA3;286.20</td>", "Total sales £286.20"},
		{"numeric dash", "<div>08/01/2024 &#8211; 14/01/2024</div>", "08/01/2024 – 14/01/2024"},
		{"non-breaking space", "<p>Total&nbsp;sales&#160;&pound;5.00</p>", "Total sales £5.00"},
		{"escaped markup stays text", "<p>&lt;b&gt;Fish &amp; Chips&lt;/b&gt;</p>", "<b>Fish & Chips</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.html))
		})
	}
}

func TestFromHTML(t *testing.T) {
	t.Run("just eat total sales", func(t *testing.T) {
		r := FromHTML(justEatInvoiceHTML, franchise.PlatformJustEat)
		assertAmount(t, "286.20", r.GrossRevenue)
		assert.Equal(t, statement.ConfidenceHigh, r.Confidence)
		assert.Equal(t, "Total sales", r.MatchedRule)
		assert.Equal(t, franchise.SourceHTML, r.Source)
		requireDate(t, date(2024, time.January, 8), r.InferredPeriod)
	})

	t.Run("just eat numeric pound references", func(t *testing.T) {
		r := FromHTML("<html><td>Total sales</td><td>&#163;286.20</td></html>", franchise.PlatformJustEat)
		assertAmount(t, "286.20", r.GrossRevenue)
		assert.Equal(t, statement.ConfidenceHigh, r.Confidence)
		assert.Equal(t, "Total sales", r.MatchedRule)

		r = FromHTML("<html><td>Total sales</td><td>&#xA3;1,042.50</td></html>", franchise.PlatformJustEat)
		assertAmount(t, "1042.50", r.GrossRevenue)
	})

	t.Run("just eat orders table footer", func(t *testing.T) {
		html := `<html><table>
<tr><td>1</td><td>&pound;0.00</td><td>&pound;10.00</td><td>&pound;10.00</td></tr>
<tr><td>2</td><td>&pound;0.00</td><td>&pound;20.00</td><td>&pound;20.00</td></tr>
<tr><td>Totals</td><td>&pound;0.00</td><td>&pound;30.00</td><td>&pound;30.00</td></tr>
</table></html>`
		r := FromHTML(html, franchise.PlatformJustEat)
		assertAmount(t, "30.00", r.GrossRevenue)
		assert.Equal(t, statement.ConfidenceMedium, r.Confidence)
		assert.Equal(t, "Orders table total", r.MatchedRule)
	})

	t.Run("just eat card orders", func(t *testing.T) {
		r := FromHTML("<html><p>We received 3 card orders totalling &pound;55.00 this week</p></html>", franchise.PlatformJustEat)
		assertAmount(t, "55.00", r.GrossRevenue)
		assert.Equal(t, statement.ConfidenceMedium, r.Confidence)
	})

	t.Run("generic total for other platforms", func(t *testing.T) {
		r := FromHTML("<html><p>Total revenue: &pound;99.99</p></html>", franchise.PlatformDeliveroo)
		assertAmount(t, "99.99", r.GrossRevenue)
		assert.Equal(t, statement.ConfidenceMedium, r.Confidence)
		assert.Equal(t, "Generic HTML total", r.MatchedRule)
	})

	t.Run("no match", func(t *testing.T) {
		r := FromHTML("<html><p>Hello</p></html>", franchise.PlatformJustEat)
		assert.True(t, r.GrossRevenue.IsZero())
		assert.Equal(t, statement.ConfidenceLow, r.Confidence)
		assert.Nil(t, r.InferredPeriod)
	})
}
