package dto

import (
	"time"

	"fabro-storefront/internal/cart"
	"fabro-storefront/internal/catalog"
	"fabro-storefront/internal/model"
)

type OrderItemRequest struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductImage *string `json:"productImage,omitempty"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
}

type CreateOrderRequest struct {
	CustomerName    string             `json:"customerName"`
	Email           string             `json:"email"`
	Phone           string             `json:"phone"`
	ShippingAddress string             `json:"shippingAddress"`
	ShippingCity    string             `json:"shippingCity"`
	ShippingState   string             `json:"shippingState"`
	ShippingPincode string             `json:"shippingPincode"`
	OrderNotes      *string            `json:"orderNotes,omitempty"`
	Items           []OrderItemRequest `json:"items"`
	TotalAmount     float64            `json:"totalAmount"`
	PaymentMethod   string             `json:"paymentMethod"`
}

type CreateOrderResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	CustomerID  string `json:"customerId"`
}

// UpdateOrderRequest is the only patch shape accepted by PUT /api/orders/:orderId.
type UpdateOrderRequest struct {
	OrderStatus string `json:"order_status"`
	Note        string `json:"note,omitempty"`
}

type CreatePaymentOrderRequest struct {
	Amount        *int64 `json:"amount,omitempty"` // minor units (paise)
	OrderID       string `json:"orderId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
}

// PaymentOrderResponse carries the gateway's order object. Razorpay checkout needs
// KeyID; Stripe confirmation needs ClientSecret.
type PaymentOrderResponse struct {
	Gateway      string            `json:"gateway"`
	ID           string            `json:"id"`
	Entity       string            `json:"entity,omitempty"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Receipt      string            `json:"receipt,omitempty"`
	Status       string            `json:"status"`
	Notes        map[string]string `json:"notes,omitempty"`
	KeyID        string            `json:"keyId,omitempty"`
	ClientSecret string            `json:"clientSecret,omitempty"`
	OrderID      string            `json:"orderId"`
	OrderNumber  string            `json:"orderNumber"`
}

type VerifyPaymentRequest struct {
	OrderID          string `json:"orderId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewaySignature string `json:"gatewaySignature"`
}

type VerifyPaymentResponse struct {
	Success bool         `json:"success"`
	Order   *model.Order `json:"order"`
}

type OrderListQuery struct {
	Status string `query:"status"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

type OrderListResponse struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type DashboardResponse struct {
	TotalOrders     int64                       `json:"totalOrders"`
	ByStatus        map[model.OrderStatus]int64 `json:"byStatus"`
	PendingPayments int64                       `json:"pendingPayments"`
	PaidRevenue     float64                     `json:"paidRevenue"`
}

type NotificationRequest struct {
	OrderID string `json:"orderId"`
}

type NotificationResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Skipped   bool   `json:"skipped"`
}

type WhatsAppLinkResponse struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

type ProductListResponse struct {
	Products []catalog.Product `json:"products"`
	Total    int               `json:"total"`
}

type ProductDetailResponse struct {
	Product       *catalog.Product `json:"product"`
	Reviews       []catalog.Review `json:"reviews"`
	AverageRating float64          `json:"averageRating"`
}

type CartQuoteItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CartQuoteRequest struct {
	Items []CartQuoteItem `json:"items"`
}

type CartQuoteResponse struct {
	Items      []cart.Item `json:"items"`
	TotalItems int         `json:"totalItems"`
	TotalPrice float64     `json:"totalPrice"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
