package notify

import (
	"html/template"
	"io"

	"github.com/imrishuroy/go-template-storefront/internal/invoice"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
)

// BankDetails are the transfer instructions sent with manual orders.
type BankDetails struct {
	AccountName string
	AccountNo   string
	IFSC        string
	Bank        string
	UPI         string
}

// DefaultBankDetails is the storefront's receiving account.
var DefaultBankDetails = BankDetails{
	AccountName: invoice.DefaultSeller.Name,
	AccountNo:   "50200012345678",
	IFSC:        "HDFC0001234",
	Bank:        "HDFC Bank, Indiranagar",
	UPI:         "templify@hdfcbank",
}

type bodyData struct {
	Order  orders.Details
	Seller invoice.Seller
	Bank   BankDetails
	GST    pricing.GST
}

var bodyTemplate = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"inr":  pricing.FormatINR,
	"date": pricing.FormatDate,
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family:Helvetica,Arial,sans-serif;color:#111827;max-width:640px;margin:0 auto">
<div style="background:#4f46e5;color:#ffffff;padding:20px">
  <h1 style="margin:0">{{.Seller.Name}}</h1>
  <p style="margin:4px 0 0">{{.Seller.Tagline}}</p>
</div>
<p>Hi {{.Order.Customer.Name}},</p>
{{if .Order.IsManual -}}
<p>Thank you for your order. It is reserved and will be delivered once we receive your bank transfer.</p>
{{- else -}}
<p>Thank you for your purchase. Your payment was received and your invoice is attached.</p>
{{- end}}
<table style="width:100%;margin:16px 0">
  <tr><td>Order ID</td><td><strong>{{.Order.OrderID}}</strong></td></tr>
  <tr><td>Invoice No.</td><td>{{.Order.InvoiceID}}</td></tr>
  <tr><td>Date</td><td>{{date .Order.OrderDate}}</td></tr>
  {{if not .Order.IsManual}}<tr><td>Payment ID</td><td>{{.Order.PaymentID}}</td></tr>{{end}}
</table>
<table style="width:100%;border-collapse:collapse">
  <tr style="background:#f3f4f6"><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
  {{range .Order.Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{inr .Price}}</td><td align="right">{{inr .LineTotal}}</td></tr>
  {{end}}
</table>
<table style="width:100%;margin-top:16px">
  <tr><td>Subtotal (incl. GST)</td><td align="right">{{inr .Order.Subtotal}}</td></tr>
  {{if gt .Order.Shipping 0.0}}<tr><td>Shipping</td><td align="right">{{inr .Order.Shipping}}</td></tr>{{end}}
  <tr><td>CGST (9%)</td><td align="right">{{inr .GST.CGST}}</td></tr>
  <tr><td>SGST (9%)</td><td align="right">{{inr .GST.SGST}}</td></tr>
  <tr><td><strong>Total</strong></td><td align="right"><strong>{{inr .Order.Total}}</strong></td></tr>
</table>
{{if .Order.IsManual}}
<div style="border:1px solid #e5e7eb;padding:16px;margin-top:16px">
  <h3 style="margin-top:0">Payment instructions</h3>
  <p>Transfer <strong>{{inr .Order.Total}}</strong> and quote <strong>{{.Order.OrderID}}</strong> as the reference.</p>
  <p>Account name: {{.Bank.AccountName}}<br>Account no.: {{.Bank.AccountNo}}<br>IFSC: {{.Bank.IFSC}}<br>Bank: {{.Bank.Bank}}<br>UPI: {{.Bank.UPI}}</p>
</div>
{{end}}
<p style="color:#6b7280;font-size:12px">Questions? Write to {{.Seller.Email}} or call {{.Seller.Phone}}.</p>
</body>
</html>
`))

func renderBody(w io.Writer, order orders.Details, bank BankDetails) error {
	return bodyTemplate.Execute(w, bodyData{
		Order:  order,
		Seller: invoice.DefaultSeller,
		Bank:   bank,
		GST:    order.GST(),
	})
}
