// Package invoice renders the PDF invoice attached to confirmation emails.
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/imrishuroy/go-template-storefront/internal/orders"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
)

// currencyPrefix stands in for the rupee sign, which the core PDF fonts do not carry.
const currencyPrefix = "Rs. "

const (
	pageMargin    = 15.0
	bottomMargin  = 20.0
	rowHeight     = 8.0
	maxDescLength = 40
	fontFamily    = "Helvetica"
)

// column widths: item, description, qty, unit price, line total (A4 usable width 180mm)
var colWidths = [5]float64{45, 65, 15, 27, 28}

var (
	brandColor = [3]int{79, 70, 229}
	zebraColor = [3]int{243, 244, 246}
	mutedColor = [3]int{107, 114, 128}
)

// Generator renders invoices for one seller.
type Generator struct {
	Seller   Seller
	compress bool
	now      func() time.Time
}

// NewGenerator returns a Generator for seller.
func NewGenerator(seller Seller) *Generator {
	return &Generator{Seller: seller, compress: true, now: time.Now}
}

// Generate renders order as a PDF. Any rendering failure returns an error and no bytes.
func (g *Generator) Generate(order orders.Details) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("render invoice %s: %v", order.InvoiceID, r)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.SetCreationDate(g.now())
	pdf.SetTitle("Invoice "+order.InvoiceID, true)
	pdf.SetAuthor(g.Seller.Name, true)
	pdf.AliasNbPages("")

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), seller: g.Seller}
	pdf.SetFooterFunc(r.footer)
	pdf.AddPage()

	r.header(order)
	r.parties(order)
	r.itemTable(order.Items)
	r.totals(order)
	r.terms()

	if pdf.Err() {
		return nil, fmt.Errorf("render invoice %s: %w", order.InvoiceID, pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write invoice %s: %w", order.InvoiceID, err)
	}
	return buf.Bytes(), nil
}

// Filename is the attachment name for order's invoice.
func Filename(order orders.Details) string {
	return "invoice-" + order.InvoiceID + ".pdf"
}

type renderer struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	seller Seller
}

func money(v float64) string {
	return currencyPrefix + pricing.FormatAmount(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n-3]), " ") + "..."
}

func (r *renderer) text(s string) string { return r.tr(s) }

func (r *renderer) setColor(c [3]int) { r.pdf.SetTextColor(c[0], c[1], c[2]) }

func (r *renderer) header(order orders.Details) {
	pdf := r.pdf
	pageW, _ := pdf.GetPageSize()

	pdf.SetFillColor(brandColor[0], brandColor[1], brandColor[2])
	pdf.Rect(0, 0, pageW, 32, "F")

	pdf.SetXY(pageMargin, 9)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 20)
	pdf.CellFormat(100, 9, r.text(r.seller.Name), "", 2, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 9)
	pdf.CellFormat(100, 5, r.text(r.seller.Tagline), "", 0, "L", false, 0, "")

	pdf.SetXY(pageW-pageMargin-60, 9)
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(60, 9, "TAX INVOICE", "", 2, "R", false, 0, "")
	pdf.SetFont(fontFamily, "", 9)
	pdf.CellFormat(60, 5, r.text(r.seller.Website), "", 0, "R", false, 0, "")

	pdf.SetY(40)
	r.setColor([3]int{0, 0, 0})
	meta := [][2]string{
		{"Invoice No.", order.InvoiceID},
		{"Order ID", order.OrderID},
		{"Payment ID", order.PaymentID},
		{"Payment Method", paymentLabel(order.PaymentMethod)},
		{"Date", pricing.FormatDate(order.OrderDate)},
	}
	for _, kv := range meta {
		pdf.SetFont(fontFamily, "B", 9)
		pdf.CellFormat(32, 5, kv[0], "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		pdf.CellFormat(0, 5, r.text(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func paymentLabel(m orders.PaymentMethod) string {
	if m == orders.PaymentManual {
		return "Bank transfer (pending verification)"
	}
	return "Card / UPI (Razorpay)"
}

func (r *renderer) parties(order orders.Details) {
	pdf := r.pdf
	top := pdf.GetY()
	half := 90.0

	block := func(x float64, title string, lines []string) float64 {
		pdf.SetXY(x, top)
		pdf.SetFont(fontFamily, "B", 10)
		r.setColor(brandColor)
		pdf.CellFormat(half, 6, title, "", 2, "L", false, 0, "")
		r.setColor([3]int{0, 0, 0})
		pdf.SetFont(fontFamily, "", 9)
		for _, l := range lines {
			if l == "" {
				continue
			}
			pdf.SetX(x)
			pdf.CellFormat(half, 5, r.text(l), "", 2, "L", false, 0, "")
		}
		return pdf.GetY()
	}

	sellerLines := append([]string{r.seller.Name}, r.seller.Address...)
	sellerLines = append(sellerLines, "GSTIN: "+r.seller.GSTIN, r.seller.Email)
	c := order.Customer
	customerLines := []string{c.Name, c.Email, c.Phone, c.Address}

	yLeft := block(pageMargin, "Sold By", sellerLines)
	yRight := block(pageMargin+half, "Billed To", customerLines)
	if yRight > yLeft {
		yLeft = yRight
	}
	pdf.SetXY(pageMargin, yLeft+6)
}

func (r *renderer) tableHeader() {
	pdf := r.pdf
	pdf.SetFont(fontFamily, "B", 9)
	pdf.SetFillColor(brandColor[0], brandColor[1], brandColor[2])
	pdf.SetTextColor(255, 255, 255)
	heads := [5]string{"Item", "Description", "Qty", "Unit Price", "Amount"}
	aligns := [5]string{"L", "L", "C", "R", "R"}
	for i, h := range heads {
		pdf.CellFormat(colWidths[i], rowHeight, h, "", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)
	r.setColor([3]int{0, 0, 0})
	pdf.SetFont(fontFamily, "", 9)
}

func (r *renderer) itemTable(items []orders.Item) {
	pdf := r.pdf
	_, pageH := pdf.GetPageSize()

	r.tableHeader()
	for i, it := range items {
		if pdf.GetY()+rowHeight > pageH-bottomMargin {
			pdf.AddPage()
			r.tableHeader()
		}
		fill := i%2 == 1
		pdf.SetFillColor(zebraColor[0], zebraColor[1], zebraColor[2])
		cells := [5]string{
			truncate(it.Name, 26),
			truncate(it.Description, maxDescLength),
			fmt.Sprintf("%d", it.Quantity),
			money(it.Price),
			money(it.LineTotal()),
		}
		aligns := [5]string{"L", "L", "C", "R", "R"}
		for j, c := range cells {
			pdf.CellFormat(colWidths[j], rowHeight, r.text(c), "", 0, aligns[j], fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func (r *renderer) totals(order orders.Details) {
	pdf := r.pdf
	_, pageH := pdf.GetPageSize()
	gst := order.GST()

	type line struct {
		label, value string
		bold         bool
	}
	lines := []line{{"Subtotal (incl. GST)", money(order.Subtotal), false}}
	if order.Shipping > 0 {
		lines = append(lines, line{"Shipping", money(order.Shipping), false})
	}
	lines = append(lines,
		line{"CGST (9%)", money(gst.CGST), false},
		line{"SGST (9%)", money(gst.SGST), false},
		line{"Total", money(order.Total), true},
	)

	if pdf.GetY()+float64(len(lines))*7 > pageH-bottomMargin {
		pdf.AddPage()
	}
	labelX := pageMargin + colWidths[0] + colWidths[1] + colWidths[2] - 20
	for _, l := range lines {
		style := ""
		if l.bold {
			style = "B"
			pdf.SetDrawColor(brandColor[0], brandColor[1], brandColor[2])
			y := pdf.GetY()
			pdf.Line(labelX, y, pageMargin+180, y)
		}
		pdf.SetX(labelX)
		pdf.SetFont(fontFamily, style, 10)
		pdf.CellFormat(colWidths[3]+20, 7, l.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[4], 7, r.text(l.value), "", 1, "R", false, 0, "")
	}
	pdf.SetFont(fontFamily, "I", 8)
	r.setColor(mutedColor)
	pdf.SetX(labelX)
	pdf.CellFormat(0, 5, "GST is included in item prices.", "", 1, "L", false, 0, "")
	r.setColor([3]int{0, 0, 0})
	pdf.Ln(6)
}

func (r *renderer) terms() {
	pdf := r.pdf
	pdf.SetFont(fontFamily, "B", 10)
	r.setColor(brandColor)
	pdf.CellFormat(0, 6, "Terms & Conditions", "", 1, "L", false, 0, "")
	r.setColor([3]int{0, 0, 0})
	pdf.SetFont(fontFamily, "", 8)
	pdf.MultiCell(0, 4.5, r.text(RefundPolicy), "", "L", false)
	pdf.Ln(2)
	pdf.MultiCell(0, 4.5, r.text(fmt.Sprintf("GSTIN: %s    PAN: %s", r.seller.GSTIN, r.seller.PAN)), "", "L", false)
	pdf.MultiCell(0, 4.5, r.text(fmt.Sprintf("Questions? Write to %s or call %s.", r.seller.Email, r.seller.Phone)), "", "L", false)
	pdf.Ln(2)
	pdf.SetFont(fontFamily, "I", 8)
	pdf.MultiCell(0, 4.5, "This is a computer generated invoice and does not require a signature.", "", "L", false)
}

func (r *renderer) footer() {
	pdf := r.pdf
	pdf.SetY(-12)
	pdf.SetFont(fontFamily, "", 8)
	r.setColor(mutedColor)
	pdf.CellFormat(0, 5, r.text(fmt.Sprintf("%s  |  %s  |  Page %d of {nb}", r.seller.Name, r.seller.Website, pdf.PageNo())), "", 0, "C", false, 0, "")
}
