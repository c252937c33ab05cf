package model

import "time"

type Customer struct {
	ID        string    `gorm:"primaryKey;size:36;not null" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"` // lookup key
	Phone     string    `gorm:"size:32;not null" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID              string    `gorm:"primaryKey;size:36;not null" json:"id"`
	OrderNumber     string    `gorm:"size:40;uniqueIndex;not null" json:"order_number"` // FABRO-YYYYMMDD-XXXXX
	CustomerID      string    `gorm:"size:36;index;not null" json:"customer_id"`
	Customer        *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	ShippingAddress string    `gorm:"size:512;not null" json:"shipping_address"`
	ShippingCity    string    `gorm:"size:128;not null" json:"shipping_city"`
	ShippingState   string    `gorm:"size:128;not null" json:"shipping_state"`
	ShippingPincode string    `gorm:"size:16;not null" json:"shipping_pincode"`
	OrderNotes      *string   `gorm:"type:text" json:"order_notes"`
	TotalAmount     float64   `gorm:"not null" json:"total_amount"` // rupees

	PaymentMethod PaymentMethod `gorm:"size:16;not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"size:16;index;not null" json:"payment_status"`
	OrderStatus   OrderStatus   `gorm:"size:16;index;not null" json:"order_status"`

	// set by the payment gateway
	GatewayOrderID   *string `gorm:"size:64;index" json:"gateway_order_id"`
	GatewayPaymentID *string `gorm:"size:64;uniqueIndex" json:"gateway_payment_id"` // one payment settles one order
	GatewaySignature *string `gorm:"size:128" json:"gateway_signature"`

	NotifiedAt *time.Time  `json:"notified_at"`
	Items      []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem snapshots catalog data at order time.
type OrderItem struct {
	ID           string    `gorm:"primaryKey;size:36;not null" json:"id"`
	OrderID      string    `gorm:"size:36;index;not null" json:"order_id"`
	LineNo       int       `gorm:"not null" json:"line_no"`
	ProductID    string    `gorm:"size:64;not null" json:"product_id"`
	ProductName  string    `gorm:"size:255;not null" json:"product_name"`
	ProductImage *string   `gorm:"size:512" json:"product_image"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	Price        float64   `gorm:"not null" json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

type OrderStatusHistory struct {
	ID         string      `gorm:"primaryKey;size:26;not null" json:"id"` // ulid
	OrderID    string      `gorm:"size:36;index;not null" json:"order_id"`
	FromStatus OrderStatus `gorm:"size:16" json:"from_status"` // empty for the initial entry
	ToStatus   OrderStatus `gorm:"size:16;not null" json:"to_status"`
	Actor      string      `gorm:"size:255;not null" json:"actor"`
	Note       string      `gorm:"type:text" json:"note"`
	ChangedAt  time.Time   `gorm:"not null" json:"changed_at"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

type AdminUser struct {
	ID           string    `gorm:"primaryKey;size:36;not null" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []any {
	return []any{
		&Customer{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&WebhookEvent{},
		&AdminUser{},
	}
}
