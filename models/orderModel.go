package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order statuses. Every order is created PENDING; later transitions are driven
// by the admin status endpoint and must follow the lifecycle graph there.
const (
	OrderStatusPending        = "PENDING"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

// Payment statuses, shared by Order.PaymentStatus and Payment.Status.
const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusProcessing = "PROCESSING"
	PaymentStatusPaid       = "PAID"
	PaymentStatusFailed     = "FAILED"
)

const (
	DeliveryMethodStandard = "standard"
	DeliveryMethodExpress  = "express"
)

type Order struct {
	gorm.Model
	CustomerID          *int        `json:"customerId,omitempty"`
	OrderNumber         string      `json:"orderNumber" gorm:"size:32;uniqueIndex"`
	CustomerName        string      `json:"customerName"`
	Email               string      `json:"email"`
	Phone               string      `json:"phone"`
	DeliveryAddress     string      `json:"deliveryAddress"`
	DeliveryCity        string      `json:"deliveryCity"`
	SpecialInstructions string      `json:"specialInstructions,omitempty"`
	DeliveryMethod      string      `json:"deliveryMethod"`
	Subtotal            float64     `json:"subtotal"`
	DeliveryFee         float64     `json:"deliveryFee"`
	VatRate             float64     `json:"vatRate"`
	VatAmount           float64     `json:"vatAmount"`
	Total               float64     `json:"total"`
	Status              string      `json:"status"`
	PaymentMethod       string      `json:"paymentMethod"`
	PaymentStatus       string      `json:"paymentStatus,omitempty"`
	PaymentReference    *string     `json:"paymentReference,omitempty" gorm:"size:191"`
	PaidAt              *time.Time  `json:"paidAt,omitempty"`
	OrderItems          []OrderItem `json:"orderItems" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments            []Payment   `json:"payments,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem snapshots the menu item as it was sold. Name and price are copied
// at order time on purpose: editing the menu later must not rewrite history.
type OrderItem struct {
	gorm.Model
	OrderID         int              `json:"orderId"`
	MenuItemID      int              `json:"menuItemId"`
	Name            string           `json:"name"`
	Price           float64          `json:"price"`
	Quantity        int              `json:"quantity"`
	Variant         string           `json:"variant,omitempty"`
	VariantPrice    *float64         `json:"variantPrice,omitempty"`
	Measurement     string           `json:"measurement,omitempty"`
	MeasurementType string           `json:"measurementType,omitempty"`
	Extras          []OrderItemExtra `json:"extras,omitempty" gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE"`
}

type OrderItemExtra struct {
	gorm.Model
	OrderItemID int     `json:"orderItemId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Payment is one reconciliation with the payment authority. The raw gateway
// response is kept verbatim for audit; Amount is the gateway's figure and may
// diverge from Order.Total, which is logged rather than corrected.
type Payment struct {
	gorm.Model
	OrderID         int            `json:"orderId"`
	Reference       string         `json:"reference" gorm:"size:191;uniqueIndex"`
	Amount          float64        `json:"amount"`
	Currency        string         `json:"currency"`
	Status          string         `json:"status"`
	Method          string         `json:"method"`
	Gateway         string         `json:"gateway"`
	GatewayResponse datatypes.JSON `json:"gatewayResponse,omitempty"`
	ProcessedAt     time.Time      `json:"processedAt"`
}
