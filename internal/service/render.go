package service

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"fabro-storefront/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templateFS, "templates/order_confirmation.html"))

var rupeeLocale = language.MustParse("en-IN")

const whatsAppBaseURL = "https://wa.me/"

type confirmationLine struct {
	Name      string
	Quantity  int
	LineTotal string
}

type confirmationView struct {
	CustomerName  string
	OrderNumber   string
	Items         []confirmationLine
	Total         string
	Address       string
	City          string
	State         string
	Pincode       string
	PaymentMethod string
	Notes         string
	TrackingURL   string
}

// formatRupees renders an amount with the rupee sign and Indian digit grouping.
func formatRupees(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return message.NewPrinter(rupeeLocale).Sprintf("₹%v", number.Decimal(f, number.MaxFractionDigits(2)))
}

func lineTotal(item *model.OrderItem) decimal.Decimal {
	return decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func confirmationSubject(order *model.Order) string {
	return "Order Confirmation - " + order.OrderNumber
}

func renderConfirmationEmail(order *model.Order, trackURL string) (string, error) {
	view := confirmationView{
		OrderNumber:   order.OrderNumber,
		Total:         formatRupees(decimal.NewFromFloat(order.TotalAmount)),
		Address:       order.ShippingAddress,
		City:          order.ShippingCity,
		State:         order.ShippingState,
		Pincode:       order.ShippingPincode,
		PaymentMethod: paymentMethodLabel(order.PaymentMethod),
		TrackingURL:   trackURL,
	}
	if order.Customer != nil {
		view.CustomerName = order.Customer.Name
	}
	if order.OrderNotes != nil {
		view.Notes = strings.TrimSpace(*order.OrderNotes)
	}
	for i := range order.Items {
		item := &order.Items[i]
		view.Items = append(view.Items, confirmationLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			LineTotal: formatRupees(lineTotal(item)),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render confirmation email: %w", err)
	}
	return buf.String(), nil
}

func renderWhatsAppMessage(order *model.Order) string {
	var b strings.Builder

	name, phone, email := "", "", ""
	if order.Customer != nil {
		name, phone, email = order.Customer.Name, order.Customer.Phone, order.Customer.Email
	}

	fmt.Fprintf(&b, "🛍️ NEW ORDER %s from %s\n\n", order.OrderNumber, name)
	b.WriteString("📦 ITEMS:\n")
	for i := range order.Items {
		item := &order.Items[i]
		fmt.Fprintf(&b, "%s (x%d) - %s\n", item.ProductName, item.Quantity, formatRupees(lineTotal(item)))
	}
	fmt.Fprintf(&b, "\n💰 Total: %s\n\n", formatRupees(decimal.NewFromFloat(order.TotalAmount)))
	b.WriteString("📍 DELIVERY DETAILS:\n")
	fmt.Fprintf(&b, "Name: %s\nPhone: %s\nEmail: %s\n", name, phone, email)
	fmt.Fprintf(&b, "Address: %s, %s, %s - %s\n\n",
		order.ShippingAddress, order.ShippingCity, order.ShippingState, order.ShippingPincode)

	notes := "None"
	if order.OrderNotes != nil && strings.TrimSpace(*order.OrderNotes) != "" {
		notes = strings.TrimSpace(*order.OrderNotes)
	}
	fmt.Fprintf(&b, "📝 Notes: %s\n\n", notes)
	fmt.Fprintf(&b, "Payment: %s", paymentMethodLabel(order.PaymentMethod))

	return b.String()
}

// trackingURL points at the storefront's order tracking page with the number filled in.
// Without a base URL there is no link.
func trackingURL(baseURL, orderNumber string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ""
	}
	return baseURL + "/track-order?" + url.Values{"orderNumber": {orderNumber}}.Encode()
}

// whatsAppURL builds a wa.me deep link; spaces are sent as %20 rather than '+'.
func whatsAppURL(businessNumber, text string) string {
	return whatsAppBaseURL + digitsOnly(businessNumber) + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func paymentMethodLabel(method model.PaymentMethod) string {
	if method == model.PaymentMethodCOD {
		return "Cash on Delivery"
	}
	return string(method)
}
