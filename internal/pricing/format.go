package pricing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// RupeeSymbol prefixes amounts in HTML and text output.
const RupeeSymbol = "₹"

// FormatAmount renders v with exactly two decimals and Indian digit grouping, e.g. 1,23,456.50.
func FormatAmount(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	if neg && cents != 0 {
		b.WriteByte('-')
	}
	b.WriteString(groupIndian(whole))
	b.WriteByte('.')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

// FormatINR is FormatAmount with the rupee symbol, e.g. ₹349.00.
func FormatINR(v float64) string {
	return RupeeSymbol + FormatAmount(v)
}

// groupIndian inserts separators as 12,34,567: last three digits, then pairs.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// DateLayout is day, abbreviated month, four digit year.
const DateLayout = "02 Jan 2006"

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
