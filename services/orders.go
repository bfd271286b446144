package services

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Nkemdi/ezichop-api/models"
)

// ErrDatastoreUnavailable is returned once the bounded retry for transient
// datastore failures is exhausted. Endpoints map it to a 503 so clients know
// to resubmit rather than fix their input.
var ErrDatastoreUnavailable = errors.New("datastore unavailable")

// generateOrderNumber is swappable so tests can force collisions.
var generateOrderNumber = GenerateOrderNumber

const (
	maxWriteAttempts = 3
	retryBackoffBase = 100 * time.Millisecond

	// Tolerance for the total invariant re-check; amounts are currency values
	// held as float64, so exact equality is not meaningful below one cent.
	moneyTolerance = 0.01
)

// PaymentRecord is the ledger row to write alongside the order in Flow B.
type PaymentRecord struct {
	Reference       string
	Amount          float64
	Currency        string
	Method          string
	Gateway         string
	GatewayResponse []byte
}

// CreateOrderParams is a fully priced, reconciled order ready to persist.
type CreateOrderParams struct {
	CustomerID          *int
	CustomerName        string
	Email               string
	Phone               string
	DeliveryAddress     string
	DeliveryCity        string
	SpecialInstructions string
	DeliveryMethod      string
	PaymentMethod       string
	Items               []models.OrderItemInput
	Pricing             Pricing
	Payment             *PaymentRecord
}

// FindOrderByPaymentReference returns the order already created for a payment
// reference, or nil when none exists. It backs the idempotency check for
// replayed confirmation calls.
func FindOrderByPaymentReference(db *gorm.DB, reference string) (*models.Order, error) {
	var payment models.Payment
	err := db.Where("reference = ?", reference).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := db.Preload("OrderItems.Extras").Preload("Payments").First(&order, payment.OrderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder writes the order, its items, their extras and the optional
// payment ledger row as one transaction and returns the durable order with
// children re-read. Transient datastore errors are retried with backoff; a
// duplicate order number triggers one regeneration; a duplicate payment
// reference resolves to the already-persisted order.
func CreateOrder(db *gorm.DB, params CreateOrderParams) (*models.Order, error) {
	p := params.Pricing
	if math.Abs(p.Total-(p.Subtotal+p.DeliveryFee+p.VatAmount)) > moneyTolerance {
		return nil, validationErrorf(
			"total %.2f does not match subtotal %.2f + delivery fee %.2f + VAT %.2f",
			p.Total, p.Subtotal, p.DeliveryFee, p.VatAmount)
	}

	prefix := OrderPrefix()
	orderNumber := generateOrderNumber(prefix)
	regenerated := false

	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		order, err := writeOrder(db, params, orderNumber)
		if err == nil {
			return reloadOrder(db, order.ID)
		}

		if isDuplicateKey(err) {
			if params.Payment != nil {
				// A concurrent confirmation for the same reference may have won
				// the race; if so the existing order is the answer.
				existing, findErr := FindOrderByPaymentReference(db, params.Payment.Reference)
				if findErr == nil && existing != nil {
					return existing, nil
				}
			}
			if !regenerated {
				regenerated = true
				orderNumber = generateOrderNumber(prefix)
				logrus.WithField("orderNumber", orderNumber).
					Warn("order number collision, regenerated once")
				attempt--
				continue
			}
			return nil, fmt.Errorf("order write failed after regenerating order number: %w", err)
		}

		if !isTransient(err) {
			return nil, err
		}

		lastErr = err
		logrus.WithFields(logrus.Fields{
			"attempt":     attempt,
			"orderNumber": orderNumber,
		}).WithError(err).Warn("transient datastore error while writing order")
		if attempt < maxWriteAttempts {
			time.Sleep(retryBackoffBase << (attempt - 1))
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrDatastoreUnavailable, lastErr)
}

func writeOrder(db *gorm.DB, params CreateOrderParams, orderNumber string) (*models.Order, error) {
	now := time.Now()
	order := models.Order{
		CustomerID:          params.CustomerID,
		OrderNumber:         orderNumber,
		CustomerName:        params.CustomerName,
		Email:               params.Email,
		Phone:               params.Phone,
		DeliveryAddress:     params.DeliveryAddress,
		DeliveryCity:        params.DeliveryCity,
		SpecialInstructions: params.SpecialInstructions,
		DeliveryMethod:      params.DeliveryMethod,
		Subtotal:            Round2(params.Pricing.Subtotal),
		DeliveryFee:         Round2(params.Pricing.DeliveryFee),
		VatRate:             params.Pricing.VatRate,
		VatAmount:           Round2(params.Pricing.VatAmount),
		Total:               Round2(params.Pricing.Total),
		Status:              models.OrderStatusPending,
		PaymentMethod:       params.PaymentMethod,
	}
	if params.Payment != nil {
		order.PaymentStatus = models.PaymentStatusPaid
		order.PaymentReference = &params.Payment.Reference
		order.PaidAt = &now
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("OrderItems", "Payments").Create(&order).Error; err != nil {
			return err
		}

		for _, item := range params.Items {
			orderItem := models.OrderItem{
				OrderID:         int(order.ID),
				MenuItemID:      item.ID,
				Name:            item.Name,
				Price:           item.Price,
				Quantity:        item.Quantity,
				Variant:         item.Variant,
				VariantPrice:    item.VariantPrice,
				Measurement:     item.Measurement,
				MeasurementType: item.MeasurementType,
			}
			if err := tx.Omit("Extras").Create(&orderItem).Error; err != nil {
				return err
			}

			for _, extra := range item.Extras {
				qty := extra.Quantity
				if qty == 0 {
					qty = 1
				}
				itemExtra := models.OrderItemExtra{
					OrderItemID: int(orderItem.ID),
					Name:        extra.Name,
					Price:       extra.Price,
					Quantity:    qty,
				}
				if err := tx.Create(&itemExtra).Error; err != nil {
					return err
				}
			}
		}

		if params.Payment != nil {
			payment := models.Payment{
				OrderID:         int(order.ID),
				Reference:       params.Payment.Reference,
				Amount:          params.Payment.Amount,
				Currency:        params.Payment.Currency,
				Status:          models.PaymentStatusPaid,
				Method:          params.Payment.Method,
				Gateway:         params.Payment.Gateway,
				GatewayResponse: datatypes.JSON(params.Payment.GatewayResponse),
				ProcessedAt:     now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func reloadOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("OrderItems.Extras").Preload("Payments").First(&order, orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1205, 1213, 2006, 2013:
			return true
		}
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
