package mailer

import (
	"bytes"
	"html/template"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif;">
<h2>Welcome, {{.Name}}!</h2>
<p>Your account is ready. Anything you added to your cart before signing up is waiting for you.</p>
</body></html>`))

var orderTmpl = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif;">
<h2>Thank you for your order, {{.CustomerName}}</h2>
<p>Your tracking code is <strong>{{.TrackingCode}}</strong>.</p>
<table style="width: 100%; border-collapse: collapse;">
<thead><tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{$.Currency}} {{.UnitPrice}}</td><td align="right">{{$.Currency}} {{.Subtotal}}</td></tr>
{{end}}</tbody>
</table>
<p><strong>Total: {{.Currency}} {{.Total}}</strong></p>
<p>Delivery: {{.DeliveryMethod}} &middot; Payment: {{.PaymentMethod}}</p>
{{if .TrackingURL}}<p><a href="{{.TrackingURL}}">Track your order</a></p>{{end}}
</body></html>`))

type WelcomeData struct {
	Name string
}

type OrderLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

type OrderConfirmationData struct {
	CustomerName   string
	TrackingCode   string
	TrackingURL    string
	Currency       string
	Lines          []OrderLine
	Total          string
	DeliveryMethod string
	PaymentMethod  string
}

func RenderWelcome(data WelcomeData) (string, error) {
	return render(welcomeTmpl, data)
}

func RenderOrderConfirmation(data OrderConfirmationData) (string, error) {
	return render(orderTmpl, data)
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
