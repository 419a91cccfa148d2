package httpx

import (
	"bytes"
	"html/template"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/money"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Brand}} • Payment received</title></head>
<body style="background:#0b1220;color:#e2e8f0;font-family:Inter,Segoe UI,Arial,sans-serif;padding:32px">
<main style="max-width:560px;margin:0 auto;background:#0f172a;border:1px solid #1e293b;border-radius:16px;padding:24px">
<h1 style="font-size:20px;margin:0 0 8px">Payment successful</h1>
<p style="color:#94a3b8;font-size:13px;margin:0 0 16px">Order <b>{{.OrderID}}</b>{{if .PaymentRef}} • Ref {{.PaymentRef}}{{end}}</p>
<ul style="padding-left:18px">
{{- range .Items}}
<li>{{.ProductID}} ({{.Plan}}) × {{.Quantity}}</li>
{{- end}}
</ul>
<p style="font-size:20px;font-weight:900">Total Paid: {{.Paid}}</p>
{{if ne .Paid .Total}}<p style="color:#94a3b8;font-size:12px">Order total {{.Total}}, raised to the minimum charge.</p>{{end}}
{{if .Emailed}}<p style="color:#94a3b8;font-size:12px">A receipt is on its way to your inbox.</p>{{end}}
</main>
</body>
</html>`))

type confirmationView struct {
	Brand      string
	OrderID    string
	PaymentRef string
	Items      []entity.LineItem
	Total      string
	Paid       string
	Emailed    bool
}

func renderConfirmation(brand, symbol string, out entity.Outcome) ([]byte, error) {
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, confirmationView{
		Brand:      brand,
		OrderID:    out.Order.ID,
		PaymentRef: out.Order.PaymentRef,
		Items:      out.Order.Items,
		Total:      money.Format(symbol, out.Order.Total),
		Paid:       money.Format(symbol, max(out.Charged, out.Order.Total)),
		Emailed:    out.Delivery.Sent || out.Delivery.Duplicate,
	})
	return buf.Bytes(), err
}
