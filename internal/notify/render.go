package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type view struct {
	StoreName string
	Currency  string
	Order     *orders.Order
}

func render(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func confirmationMessage(v view) (Message, error) {
	html, err := render("confirmation.html", v)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      v.Order.CustomerEmail,
		Subject: fmt.Sprintf("تأكيد طلبك %s | Order confirmed", v.Order.OrderNumber),
		HTML:    html,
		Text: fmt.Sprintf("Order %s confirmed. Total %s %s.",
			v.Order.OrderNumber, v.Order.TotalAmount.StringFixed(2), v.Currency),
	}, nil
}

func trackingMessage(v view) (Message, error) {
	html, err := render("tracking.html", v)
	if err != nil {
		return Message{}, err
	}
	text := fmt.Sprintf("Order %s shipped. Tracking number %s.", v.Order.OrderNumber, v.Order.TrackingNumber)
	if v.Order.ShippingCarrier != "" {
		text = strings.TrimSuffix(text, ".") + " via " + v.Order.ShippingCarrier + "."
	}
	return Message{
		To:      v.Order.CustomerEmail,
		Subject: fmt.Sprintf("تم شحن طلبك %s | Your order has shipped", v.Order.OrderNumber),
		HTML:    html,
		Text:    text,
	}, nil
}
