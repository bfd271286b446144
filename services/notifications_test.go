package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nkemdi/ezichop-api/models"
)

type fakeEmailSender struct {
	mu                sync.Mutex
	adminCalls        int
	customerCalls     int
	customerInvoice   []byte
	failAdmin         bool
	failCustomer      bool
	panicOnAdminEmail bool
}

func (f *fakeEmailSender) SendAdminNewOrder(order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnAdminEmail {
		panic("smtp exploded")
	}
	f.adminCalls++
	if f.failAdmin {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (f *fakeEmailSender) SendCustomerConfirmation(order *models.Order, invoice []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customerCalls++
	f.customerInvoice = invoice
	if f.failCustomer {
		return errors.New("smtp unavailable")
	}
	return nil
}

type fakeSMSSender struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeSMSSender) SendAdminNewOrder(order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errors.New("sms gateway unavailable")
	}
	return nil
}

type fakeInvoiceGenerator struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeInvoiceGenerator) Generate(order *models.Order) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("pdf renderer unavailable")
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakeArchive struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeArchive) Put(filename string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "s3://invoices/" + filename, nil
}

func notifierOrder() *models.Order {
	return &models.Order{
		OrderNumber:  "EZC-12345678-ABCDEF",
		CustomerName: "Ngozi Okafor",
		Email:        "ngozi@example.com",
		Status:       models.OrderStatusPending,
		Total:        29.87,
	}
}

func TestDispatchRunsAllTasks(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	invoices := &fakeInvoiceGenerator{}
	archive := &fakeArchive{}

	n := NewNotifier(email, sms, invoices, archive)
	n.Dispatch(notifierOrder())
	n.Wait()

	assert.Equal(t, 1, email.adminCalls)
	assert.Equal(t, 1, email.customerCalls)
	assert.Equal(t, 1, sms.calls)
	assert.Equal(t, 1, invoices.calls)
	assert.Equal(t, 1, archive.calls)
	assert.NotNil(t, email.customerInvoice, "customer email carries the generated invoice")
}

func TestDispatchIsolatesFailures(t *testing.T) {
	email := &fakeEmailSender{failCustomer: true}
	sms := &fakeSMSSender{}
	invoices := &fakeInvoiceGenerator{}

	n := NewNotifier(email, sms, invoices, nil)
	n.Dispatch(notifierOrder())
	n.Wait()

	assert.Equal(t, 1, email.adminCalls, "admin email unaffected by customer email failure")
	assert.Equal(t, 1, sms.calls, "SMS unaffected by customer email failure")
	assert.Equal(t, 1, invoices.calls, "invoice generation unaffected by customer email failure")
}

func TestDispatchSendsConfirmationWithoutInvoiceOnGenerationFailure(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	invoices := &fakeInvoiceGenerator{fail: true}

	n := NewNotifier(email, sms, invoices, nil)
	n.Dispatch(notifierOrder())
	n.Wait()

	assert.Equal(t, 1, email.customerCalls, "customer email still sent when invoice generation fails")
	assert.Nil(t, email.customerInvoice)
}

func TestDispatchRecoversFromPanics(t *testing.T) {
	email := &fakeEmailSender{panicOnAdminEmail: true}
	sms := &fakeSMSSender{}
	invoices := &fakeInvoiceGenerator{}

	n := NewNotifier(email, sms, invoices, nil)
	n.Dispatch(notifierOrder())
	n.Wait()

	assert.Equal(t, 1, sms.calls)
	assert.Equal(t, 1, email.customerCalls)
}
