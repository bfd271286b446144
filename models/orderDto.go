package models

// Request shapes for the order endpoints. Validation that Gin's binding layer
// can express lives in the tags; cross-field checks (delivery method values,
// total arithmetic) happen in the services.

type OrderItemExtraInput struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity" binding:"omitempty,gt=0"`
}

type OrderItemInput struct {
	ID              int                   `json:"id"`
	Name            string                `json:"name" binding:"required"`
	Price           float64               `json:"price" binding:"gte=0"`
	Quantity        int                   `json:"quantity" binding:"required,gt=0"`
	Variant         string                `json:"variant"`
	VariantPrice    *float64              `json:"variantPrice" binding:"omitempty,gte=0"`
	Measurement     string                `json:"measurement"`
	MeasurementType string                `json:"measurementType"`
	Extras          []OrderItemExtraInput `json:"extras" binding:"omitempty,dive"`
}

type CreateOrderRequest struct {
	CustomerName        string           `json:"customerName" binding:"required"`
	Email               string           `json:"email" binding:"required,email"`
	Phone               string           `json:"phone" binding:"required"`
	DeliveryAddress     string           `json:"deliveryAddress" binding:"required"`
	DeliveryCity        string           `json:"deliveryCity" binding:"required"`
	SpecialInstructions string           `json:"specialInstructions"`
	DeliveryMethod      string           `json:"deliveryMethod" binding:"required"`
	PaymentMethod       string           `json:"paymentMethod" binding:"required"`
	Items               []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Subtotal            float64          `json:"subtotal" binding:"gte=0"`
	DeliveryFee         float64          `json:"deliveryFee" binding:"gte=0"`
	VatRate             *float64         `json:"vatRate" binding:"omitempty,gte=0"`
	VatAmount           *float64         `json:"vatAmount" binding:"omitempty,gte=0"`
	Total               float64          `json:"total" binding:"gt=0"`
}

type ConfirmOrderRequest struct {
	PaymentIntentID string              `json:"paymentIntentId" binding:"required"`
	OrderData       ConfirmOrderPayload `json:"orderData" binding:"required"`
}

type ConfirmOrderPayload struct {
	CreateOrderRequest
	CustomerID *int `json:"customerId"`
}
