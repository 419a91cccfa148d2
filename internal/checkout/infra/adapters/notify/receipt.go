package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/money"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`<div style="background:#0b1220;padding:24px;color:#e2e8f0;font-family:Inter,Segoe UI,Arial,sans-serif">
<table width="100%" cellspacing="0" cellpadding="0" style="max-width:640px;margin:0 auto;background:#0f172a;border:1px solid #1e293b;border-radius:16px">
<tr><td style="padding:20px 24px;border-bottom:1px solid #1e293b">
<div style="font-weight:900;font-size:18px">{{.Brand}} — Receipt</div>
<div style="color:#94a3b8;font-size:12px">Order <b>{{.ID}}</b> • {{.CreatedAt}}</div>
</td></tr>
<tr><td style="padding:0 24px">
<table width="100%" style="border-collapse:collapse;margin:14px 0">
{{- range .Lines}}
<tr>
<td style="padding:10px 12px;border-bottom:1px solid #0f172a24"><div style="font-weight:700">{{.Title}}</div>{{if .Meta}}<div style="color:#94a3b8;font-size:12px;margin-top:2px">{{.Meta}}</div>{{end}}</td>
<td style="padding:10px 12px;border-bottom:1px solid #0f172a24;text-align:right;font-weight:800">{{.Amount}}</td>
</tr>
{{- end}}
</table>
<div style="margin:8px 0 0;color:#94a3b8;font-size:13px">Subtotal: <b>{{.Subtotal}}</b> • Fees: <b>{{.Fees}}</b></div>
<div style="margin:6px 0 12px;font-size:20px;font-weight:900">Total: {{.Total}}</div>
<div style="display:flex;gap:12px;flex-wrap:wrap">
<div style="flex:1;min-width:220px;background:#0b1220;border:1px solid #1e293b;border-radius:12px;padding:12px">
<div style="color:#94a3b8;font-size:12px">Customer</div>
<div style="font-weight:700">{{.Customer.Name}}</div>
<div style="color:#94a3b8;font-size:12px">{{.Customer.Phone}}{{if .Customer.Email}} • {{.Customer.Email}}{{end}}</div>
</div>
<div style="flex:1;min-width:220px;background:#0b1220;border:1px solid #1e293b;border-radius:12px;padding:12px">
<div style="color:#94a3b8;font-size:12px">Payment</div>
<div style="font-weight:700;text-transform:uppercase">{{.PaymentMethod}}</div>
<div style="color:#94a3b8;font-size:12px">TxID: {{.PaymentRef}}</div>
</div>
</div>
<div style="margin-top:12px;color:#64748b;font-size:12px">Need help? Reply to this email with your Order ID.</div>
</td></tr>
<tr><td style="border-top:1px solid #1e293b;padding:10px 24px;color:#475569;font-size:12px;text-align:center">© {{.Brand}} • Bangladesh</td></tr>
</table>
</div>`))

type receiptLine struct {
	Title  string
	Meta   string
	Amount string
}

type receiptView struct {
	Brand         string
	ID            string
	CreatedAt     string
	Lines         []receiptLine
	Subtotal      string
	Fees          string
	Total         string
	Customer      entity.Customer
	PaymentMethod string
	PaymentRef    string
}

// RenderReceipt renders the itemized receipt for order. Lines keep the
// order in which they were placed in the cart.
func RenderReceipt(brand, symbol string, order entity.OrderSnapshot) (string, error) {
	view := receiptView{
		Brand:         brand,
		ID:            order.ID,
		CreatedAt:     order.CreatedAt.Format("02 Jan 2006 15:04 MST"),
		Subtotal:      money.Format(symbol, order.Subtotal),
		Fees:          money.Format(symbol, order.Fees),
		Total:         money.Format(symbol, order.Total),
		Customer:      order.Customer,
		PaymentMethod: order.PaymentMethod,
		PaymentRef:    order.PaymentRef,
	}
	if view.PaymentRef == "" {
		view.PaymentRef = "-"
	}
	for _, it := range order.Items {
		view.Lines = append(view.Lines, receiptLine{
			Title:  fmt.Sprintf("%s — %s × %d", it.ProductID, it.Plan, it.Quantity),
			Meta:   joinMeta(it.Meta),
			Amount: money.Format(symbol, it.LineTotal()),
		})
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("notify: render receipt %s: %w", order.ID, err)
	}
	return buf.String(), nil
}

func joinMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ": " + meta[k]
	}
	return strings.Join(pairs, " • ")
}
