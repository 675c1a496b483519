// Package pricing holds the deterministic money and identifier helpers shared
// by checkout, the invoice document and the confirmation email.
package pricing

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	// GSTRate is the combined GST rate included in every catalogue price.
	GSTRate = 0.18

	// FreeShippingThreshold is the subtotal at or above which shipping is free.
	FreeShippingThreshold = 500.0
	// FlatShippingFee applies below FreeShippingThreshold.
	FlatShippingFee = 50.0

	OrderPrefix   = "ORD"
	InvoicePrefix = "INV"

	suffixLen = 5
)

// now is swapped in tests.
var now = time.Now

// GST is the tax contained in a tax-inclusive amount. CGST and SGST are the two
// 9% halves; IGST reports the full tax as a single figure.
type GST struct {
	Base     float64
	CGST     float64
	SGST     float64
	IGST     float64
	TotalTax float64
}

// CalculateGST backs the 18% tax out of a tax-inclusive amount. No rounding is applied.
func CalculateGST(amount float64) GST {
	base := amount / (1 + GSTRate)
	tax := amount - base
	return GST{
		Base:     base,
		CGST:     tax / 2,
		SGST:     tax / 2,
		IGST:     tax,
		TotalTax: tax,
	}
}

// ShippingFee is free at or above FreeShippingThreshold and FlatShippingFee below it.
func ShippingFee(subtotal float64) float64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}

// Totals is the price breakdown printed on the invoice and in the email.
type Totals struct {
	Subtotal float64
	Shipping float64
	Total    float64
	GST      GST
}

// Breakdown computes shipping, total and the GST contained in the subtotal.
// Shipping is not taxed.
func Breakdown(subtotal float64) Totals {
	shipping := ShippingFee(subtotal)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
		GST:      CalculateGST(subtotal),
	}
}

// ToMinorUnits converts rupees to paise.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts paise to rupees.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// GenerateOrderNumber returns a human readable order id such as ORD-M1X2Y3Z4-7QK2P.
// It is collision resistant, not guaranteed unique.
func GenerateOrderNumber() string {
	return generateID(OrderPrefix)
}

// GenerateInvoiceID returns an invoice id such as INV-M1X2Y3Z4-A9C3D.
func GenerateInvoiceID() string {
	return generateID(InvoicePrefix)
}

func generateID(prefix string) string {
	ts := strings.ToUpper(strconv.FormatInt(now().UnixMilli(), 36))
	return prefix + "-" + ts + "-" + randomSuffix()
}

func randomSuffix() string {
	const space = 36 * 36 * 36 * 36 * 36
	s := strings.ToUpper(strconv.FormatInt(rand.Int64N(space), 36))
	if len(s) < suffixLen {
		s = strings.Repeat("0", suffixLen-len(s)) + s
	}
	return s
}
