package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Nkemdi/ezichop-api/models"
)

// Collaborator interfaces for the post-persistence side effects. Concrete
// implementations live in utils; tests substitute fakes.

type EmailSender interface {
	SendAdminNewOrder(order *models.Order) error
	SendCustomerConfirmation(order *models.Order, invoice []byte) error
}

type SMSSender interface {
	SendAdminNewOrder(order *models.Order) error
}

type InvoiceGenerator interface {
	Generate(order *models.Order) ([]byte, error)
}

// InvoiceArchive stores a generated invoice somewhere durable. Optional; a nil
// archive means invoices are generated on demand only.
type InvoiceArchive interface {
	Put(filename string, data []byte) (string, error)
}

// Notifier fans out the side effects of a persisted order: admin email, admin
// SMS, invoice generation and customer confirmation email. Dispatch returns
// immediately; every task catches and logs its own failure so none can affect
// another task or the already-sent HTTP response.
type Notifier struct {
	Email    EmailSender
	SMS      SMSSender
	Invoices InvoiceGenerator
	Archive  InvoiceArchive

	wg sync.WaitGroup
}

func NewNotifier(email EmailSender, sms SMSSender, invoices InvoiceGenerator, archive InvoiceArchive) *Notifier {
	return &Notifier{Email: email, SMS: sms, Invoices: invoices, Archive: archive}
}

// Dispatch spawns the notification tasks for a durable order and returns
// without waiting. Admin email and admin SMS run fully independently; invoice
// generation and the customer email run as a joined pair because the email
// attaches the invoice when it could be generated.
func (n *Notifier) Dispatch(order *models.Order) {
	log := logrus.WithFields(logrus.Fields{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
	})

	n.spawn(func() {
		if err := n.Email.SendAdminNewOrder(order); err != nil {
			log.WithError(err).Error("admin new-order email failed")
		}
	})

	n.spawn(func() {
		if err := n.SMS.SendAdminNewOrder(order); err != nil {
			log.WithError(err).Error("admin new-order SMS failed")
		}
	})

	n.spawn(func() {
		invoice, err := n.Invoices.Generate(order)
		if err != nil {
			log.WithError(err).Error("invoice generation failed")
			invoice = nil
		} else if n.Archive != nil {
			location, err := n.Archive.Put("invoice-"+order.OrderNumber+".pdf", invoice)
			if err != nil {
				log.WithError(err).Error("invoice archival failed")
			} else {
				log.WithField("location", location).Info("invoice archived")
			}
		}

		if err := n.Email.SendCustomerConfirmation(order, invoice); err != nil {
			log.WithError(err).Error("customer confirmation email failed")
		}
	})
}

// Wait blocks until every dispatched task has finished. Used by tests and by
// graceful shutdown to drain in-flight notifications; request handlers never
// call it.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) spawn(task func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("notification task panicked")
			}
		}()
		task()
	}()
}
