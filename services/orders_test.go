package services

import (
	"database/sql/driver"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Nkemdi/ezichop-api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{}, &models.OrderItem{}, &models.OrderItemExtra{}, &models.Payment{},
	))
	return db
}

func testOrderParams() CreateOrderParams {
	return CreateOrderParams{
		CustomerName:    "Ngozi Okafor",
		Email:           "ngozi@example.com",
		Phone:           "+2348012345678",
		DeliveryAddress: "14 Adeola Odeku Street",
		DeliveryCity:    "Lagos",
		DeliveryMethod:  models.DeliveryMethodStandard,
		PaymentMethod:   "card",
		Items: []models.OrderItemInput{
			{
				ID: 7, Name: "Egusi Soup", Price: 12.50, Quantity: 2,
				Extras: []models.OrderItemExtraInput{
					{Name: "Extra Meat", Price: 1.50, Quantity: 2},
					{Name: "Pounded Yam", Price: 3.00},
				},
			},
			{ID: 9, Name: "Moi Moi", Price: 3.25, Quantity: 1, Variant: "Large", VariantPrice: floatPtr(4.00)},
		},
		Pricing: Pricing{
			Subtotal:    41.00,
			DeliveryFee: 2.99,
			VatRate:     7.5,
			VatAmount:   3.075,
			Total:       47.065,
		},
	}
}

func TestCreateOrderPersistsFullGraph(t *testing.T) {
	db := newTestDB(t)

	order, err := CreateOrder(db, testOrderParams())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderNumber, OrderPrefix()+"-"))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Empty(t, order.PaymentStatus)
	assert.Nil(t, order.PaidAt)
	assert.InDelta(t, 47.065, order.Total, 0.01)

	require.Len(t, order.OrderItems, 2)
	first := order.OrderItems[0]
	assert.Equal(t, "Egusi Soup", first.Name)
	require.Len(t, first.Extras, 2)
	assert.Equal(t, 2, first.Extras[0].Quantity)
	assert.Equal(t, 1, first.Extras[1].Quantity, "extra quantity defaults to 1")

	second := order.OrderItems[1]
	require.NotNil(t, second.VariantPrice)
	assert.Equal(t, "Large", second.Variant)

	assert.Empty(t, order.Payments)
}

func TestCreateOrderRejectsTotalMismatch(t *testing.T) {
	db := newTestDB(t)

	params := testOrderParams()
	params.Pricing.Total = 99.99

	_, err := CreateOrder(db, params)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count, "order must not be created on an invariant violation")
}

func TestCreateOrderWritesPaymentLedger(t *testing.T) {
	db := newTestDB(t)

	params := testOrderParams()
	params.Payment = &PaymentRecord{
		Reference:       "pi_abc123",
		Amount:          47.07,
		Currency:        "ngn",
		Method:          "card",
		Gateway:         "stripe",
		GatewayResponse: []byte(`{"id":"pi_abc123","status":"succeeded"}`),
	}

	order, err := CreateOrder(db, params)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	require.NotNil(t, order.PaidAt)
	require.NotNil(t, order.PaymentReference)
	assert.Equal(t, "pi_abc123", *order.PaymentReference)

	require.Len(t, order.Payments, 1)
	payment := order.Payments[0]
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	assert.InDelta(t, 47.07, payment.Amount, 0.001)
	assert.Equal(t, "ngn", payment.Currency)
	assert.JSONEq(t, `{"id":"pi_abc123","status":"succeeded"}`, string(payment.GatewayResponse))
}

func TestCreateOrderIdempotentOnPaymentReference(t *testing.T) {
	db := newTestDB(t)

	params := testOrderParams()
	params.Payment = &PaymentRecord{
		Reference: "pi_replay",
		Amount:    47.07,
		Currency:  "ngn",
		Method:    "card",
		Gateway:   "stripe",
	}

	first, err := CreateOrder(db, params)
	require.NoError(t, err)

	second, err := CreateOrder(db, params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "replayed confirmation must resolve to the existing order")

	var orderCount, paymentCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	db.Model(&models.Payment{}).Count(&paymentCount)
	assert.EqualValues(t, 1, orderCount)
	assert.EqualValues(t, 1, paymentCount)
}

func TestFindOrderByPaymentReference(t *testing.T) {
	db := newTestDB(t)

	missing, err := FindOrderByPaymentReference(db, "pi_absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	params := testOrderParams()
	params.Payment = &PaymentRecord{Reference: "pi_present", Amount: 47.07, Currency: "ngn", Method: "card", Gateway: "stripe"}
	created, err := CreateOrder(db, params)
	require.NoError(t, err)

	found, err := FindOrderByPaymentReference(db, "pi_present")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Len(t, found.OrderItems, 2)
}

// failCreates makes the first n INSERT statements on db fail with a transient
// MySQL error, using GORM's callback hook as the injection point.
func failCreates(t *testing.T, db *gorm.DB, n int) *int {
	t.Helper()

	calls := 0
	err := db.Callback().Create().Before("gorm:create").Register("inject_transient_failure", func(tx *gorm.DB) {
		calls++
		if calls <= n {
			tx.AddError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
		}
	})
	require.NoError(t, err)
	return &calls
}

func TestCreateOrderRetriesTransientErrors(t *testing.T) {
	db := newTestDB(t)
	failCreates(t, db, 2)

	start := time.Now()
	order, err := CreateOrder(db, testOrderParams())
	require.NoError(t, err, "third attempt must succeed once the outage clears")

	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond, "retries back off between attempts")

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.EqualValues(t, 1, count)
	assert.Len(t, order.OrderItems, 2)
}

func TestCreateOrderSurfacesDatastoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	calls := failCreates(t, db, 1000)

	_, err := CreateOrder(db, testOrderParams())
	require.ErrorIs(t, err, ErrDatastoreUnavailable)
	assert.Equal(t, maxWriteAttempts, *calls, "retry is bounded")

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestTransientAndDuplicateClassification(t *testing.T) {
	assert.True(t, isTransient(driver.ErrBadConn))
	assert.True(t, isTransient(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isTransient(&mysql.MySQLError{Number: 2006}))
	assert.False(t, isTransient(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isTransient(errors.New("syntax error")))

	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213}))
}

// stubOrderNumbers replaces the generator with one that returns the given
// numbers in sequence, repeating the last one.
func stubOrderNumbers(t *testing.T, numbers ...string) *int {
	t.Helper()

	calls := 0
	orig := generateOrderNumber
	generateOrderNumber = func(prefix string) string {
		idx := calls
		if idx >= len(numbers) {
			idx = len(numbers) - 1
		}
		calls++
		return numbers[idx]
	}
	t.Cleanup(func() { generateOrderNumber = orig })
	return &calls
}

func TestCreateOrderRegeneratesOrderNumberOnCollision(t *testing.T) {
	db := newTestDB(t)

	first, err := CreateOrder(db, testOrderParams())
	require.NoError(t, err)

	calls := stubOrderNumbers(t, first.OrderNumber, "EZC-00000001-FRESH1")

	second, err := CreateOrder(db, testOrderParams())
	require.NoError(t, err)
	assert.Equal(t, "EZC-00000001-FRESH1", second.OrderNumber)
	assert.Equal(t, 2, *calls, "exactly one regeneration")

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestCreateOrderFailsWhenRegeneratedNumberStillCollides(t *testing.T) {
	db := newTestDB(t)

	first, err := CreateOrder(db, testOrderParams())
	require.NoError(t, err)

	calls := stubOrderNumbers(t, first.OrderNumber)

	_, err = CreateOrder(db, testOrderParams())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDatastoreUnavailable, "a persistent collision is not a retryable outage")
	assert.Equal(t, 2, *calls, "regeneration happens once, not in a loop")

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestOrderNumberUniqueIndexBackstop(t *testing.T) {
	db := newTestDB(t)

	first, err := CreateOrder(db, testOrderParams())
	require.NoError(t, err)

	dup := models.Order{
		OrderNumber:  first.OrderNumber,
		CustomerName: "Someone Else",
		Status:       models.OrderStatusPending,
	}
	err = db.Create(&dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
