package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/Nkemdi/ezichop-api/models"
)

// PricingConfig carries the request-time pricing inputs that are configured
// outside the order payload. It is built once at startup and injected so tests
// can supply fixed values.
type PricingConfig struct {
	StandardDeliveryFee float64
	ExpressDeliveryFee  float64
	VatRate             float64 // percent, e.g. 7.5
	VatEnabled          bool
}

// Pricing is the authoritative set of totals for an order.
type Pricing struct {
	Subtotal    float64
	DeliveryFee float64
	VatRate     float64
	VatAmount   float64
	Total       float64
}

// ValidationError marks input the caller must fix; it is never retried and maps
// to a 400 at the endpoint.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NormalizeDeliveryMethod lowercases the client-supplied method and rejects
// anything outside the closed set.
func NormalizeDeliveryMethod(method string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case models.DeliveryMethodStandard:
		return models.DeliveryMethodStandard, nil
	case models.DeliveryMethodExpress:
		return models.DeliveryMethodExpress, nil
	default:
		return "", validationErrorf("deliveryMethod must be one of standard, express")
	}
}

// ResolvePricing computes line totals, subtotal, delivery fee and VAT for the
// requested items. It performs no I/O. VAT applies to the subtotal only, never
// to the delivery fee.
func ResolvePricing(items []models.OrderItemInput, deliveryMethod string, cfg PricingConfig) (Pricing, error) {
	if len(items) == 0 {
		return Pricing{}, validationErrorf("at least one item is required")
	}

	var subtotal float64
	for i, item := range items {
		if item.Quantity <= 0 {
			return Pricing{}, validationErrorf("items[%d]: quantity must be greater than zero", i)
		}
		if item.Price < 0 {
			return Pricing{}, validationErrorf("items[%d]: price must not be negative", i)
		}

		effectivePrice := item.Price
		if item.VariantPrice != nil {
			if *item.VariantPrice < 0 {
				return Pricing{}, validationErrorf("items[%d]: variant price must not be negative", i)
			}
			effectivePrice = *item.VariantPrice
		}

		var extrasTotal float64
		for j, extra := range item.Extras {
			if extra.Price < 0 {
				return Pricing{}, validationErrorf("items[%d].extras[%d]: price must not be negative", i, j)
			}
			qty := extra.Quantity
			if qty == 0 {
				qty = 1
			}
			if qty < 0 {
				return Pricing{}, validationErrorf("items[%d].extras[%d]: quantity must be greater than zero", i, j)
			}
			extrasTotal += extra.Price * float64(qty)
		}

		subtotal += (effectivePrice + extrasTotal) * float64(item.Quantity)
	}

	deliveryFee := cfg.StandardDeliveryFee
	if deliveryMethod == models.DeliveryMethodExpress {
		deliveryFee = cfg.ExpressDeliveryFee
	}

	pricing := Pricing{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
	}
	if cfg.VatEnabled && cfg.VatRate > 0 {
		pricing.VatRate = cfg.VatRate
		pricing.VatAmount = subtotal * cfg.VatRate / 100
	}
	pricing.Total = pricing.Subtotal + pricing.DeliveryFee + pricing.VatAmount
	return pricing, nil
}

// Round2 rounds a monetary value to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
