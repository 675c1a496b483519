package pricing

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func TestCalculateGST(t *testing.T) {
	g := CalculateGST(118)
	assert.InDelta(t, 100, g.Base, tolerance)
	assert.InDelta(t, 18, g.TotalTax, tolerance)
	assert.InDelta(t, 9, g.CGST, tolerance)
	assert.InDelta(t, 9, g.SGST, tolerance)
	assert.InDelta(t, 18, g.IGST, tolerance)
}

func TestCalculateGST_Zero(t *testing.T) {
	g := CalculateGST(0)
	assert.Zero(t, g.Base)
	assert.Zero(t, g.TotalTax)
}

func TestShippingFee(t *testing.T) {
	assert.Equal(t, 50.0, ShippingFee(499))
	assert.Equal(t, 50.0, ShippingFee(499.99))
	assert.Equal(t, 0.0, ShippingFee(500))
	assert.Equal(t, 0.0, ShippingFee(2499))
}

func TestBreakdown(t *testing.T) {
	b := Breakdown(299)
	assert.Equal(t, 299.0, b.Subtotal)
	assert.Equal(t, 50.0, b.Shipping)
	assert.Equal(t, 349.0, b.Total)
	assert.InDelta(t, 299-299/1.18, b.GST.TotalTax, tolerance)

	free := Breakdown(1180)
	assert.Zero(t, free.Shipping)
	assert.Equal(t, 1180.0, free.Total)
	assert.InDelta(t, 1000, free.GST.Base, tolerance)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(34900), ToMinorUnits(349))
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, 349.0, FromMinorUnits(34900))
}

var (
	orderPattern   = regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-Z]{5}$`)
	invoicePattern = regexp.MustCompile(`^INV-[0-9A-Z]+-[0-9A-Z]{5}$`)
)

func TestGenerateIDs_Pattern(t *testing.T) {
	assert.Regexp(t, orderPattern, GenerateOrderNumber())
	assert.Regexp(t, invoicePattern, GenerateInvoiceID())
}

func TestGenerateIDs_SameMillisecondDiffer(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	a, b := GenerateOrderNumber(), GenerateOrderNumber()
	require.Regexp(t, orderPattern, a)
	assert.NotEqual(t, a, b)

	i1, i2 := GenerateInvoiceID(), GenerateInvoiceID()
	assert.NotEqual(t, i1, i2)
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:          "0.00",
		5:          "5.00",
		349:        "349.00",
		1234.5:     "1,234.50",
		123456.789: "1,23,456.79",
		10000000:   "1,00,00,000.00",
		-42.1:      "-42.10",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(in), "input %v", in)
	}
	assert.Equal(t, "₹349.00", FormatINR(349))
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, time.March, 7, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "07 Mar 2025", FormatDate(d))
}
