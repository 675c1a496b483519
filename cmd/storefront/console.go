package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/imrishuroy/go-template-storefront/internal/catalog"
	"github.com/imrishuroy/go-template-storefront/internal/checkout"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
)

// console prints notices, navigation and catalogue listings.
type console struct {
	out io.Writer
}

var levelTags = map[checkout.NoticeLevel]string{
	checkout.NoticeSuccess: "OK",
	checkout.NoticeInfo:    "INFO",
	checkout.NoticeWarning: "WARN",
	checkout.NoticeError:   "ERROR",
}

func (c console) Notify(n checkout.Notice) {
	fmt.Fprintf(c.out, "[%s] %s: %s\n", levelTags[n.Level], n.Title, n.Message)
}

func (c console) Navigate(url string) {
	fmt.Fprintf(c.out, "-> %s\n", url)
}

func (c console) added(p catalog.Product, qty int) {
	fmt.Fprintf(c.out, "added %s (now %d in cart)\n", p.Name, qty)
}

func (c console) listCatalog(products []catalog.Product) {
	for _, p := range products {
		stock := ""
		if !p.InStock {
			stock = " (out of stock)"
		}
		fmt.Fprintf(c.out, "%-22s %-36s %12s  %.1f* (%d reviews)%s\n",
			p.ID, p.Name, pricing.FormatINR(p.Price), p.Rating, p.ReviewCount, stock)
	}
}

func (c console) summary(lines int, subtotal float64) {
	t := pricing.Breakdown(subtotal)
	fmt.Fprintf(c.out, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(c.out, "%d line(s)  subtotal %s  shipping %s  total %s\n",
		lines, pricing.FormatINR(t.Subtotal), pricing.FormatINR(t.Shipping), pricing.FormatINR(t.Total))
}
