package services

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// PaymentFacts is what the payment authority could tell us about a reference.
// Any field may be missing; callers fall back to locally computed values.
type PaymentFacts struct {
	Reference  string
	Amount     *float64
	Currency   string
	ReceiptURL string
	Raw        []byte
}

// PaymentReconciler enriches a payment reference with authoritative facts.
// Reconciliation is best-effort by contract: implementations never fail the
// order, they return whatever they managed to obtain.
type PaymentReconciler interface {
	Reconcile(reference string) PaymentFacts
}

// PaymentClient talks to the payment authority's REST API. The base URL is
// injectable so tests can point it at a local server.
type PaymentClient struct {
	BaseURL   string
	SecretKey string
	Gateway   string
	http      *resty.Client
}

func NewPaymentClient() *PaymentClient {
	base := os.Getenv("PAYMENT_API_BASE")
	if base == "" {
		base = "https://api.stripe.com"
	}
	return NewPaymentClientWith(base, os.Getenv("PAYMENT_SECRET_KEY"))
}

func NewPaymentClientWith(baseURL, secretKey string) *PaymentClient {
	return &PaymentClient{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		Gateway:   "stripe",
		http:      resty.New().SetTimeout(15 * time.Second),
	}
}

// Reconcile fetches the payment intent for the reference, chases its most
// recent charge when the intent does not expose one directly, and finally the
// charge's receipt URL. Every step tolerates failure: whatever was retrieved
// so far is returned and the gap is logged, because the order must still be
// created when the payment authority is slow or partially available.
func (c *PaymentClient) Reconcile(reference string) PaymentFacts {
	facts := PaymentFacts{Reference: reference}

	intent, body, err := c.getJSON("/v1/payment_intents/" + reference)
	if err != nil {
		logrus.WithField("paymentIntentId", reference).WithError(err).
			Warn("payment reconciliation: could not retrieve payment intent")
		return facts
	}
	facts.Raw = body

	if amount, ok := intent["amount"].(float64); ok {
		major := amount / 100
		facts.Amount = &major
	}
	if currency, ok := intent["currency"].(string); ok {
		facts.Currency = currency
	}

	chargeID, _ := intent["latest_charge"].(string)
	if chargeID == "" {
		charges, _, err := c.getJSON("/v1/charges?payment_intent=" + reference + "&limit=1")
		if err != nil {
			logrus.WithField("paymentIntentId", reference).WithError(err).
				Warn("payment reconciliation: could not list charges")
			return facts
		}
		if data, ok := charges["data"].([]any); ok && len(data) > 0 {
			if charge, ok := data[0].(map[string]any); ok {
				chargeID, _ = charge["id"].(string)
				if receipt, ok := charge["receipt_url"].(string); ok {
					facts.ReceiptURL = receipt
				}
			}
		}
	}

	if chargeID != "" && facts.ReceiptURL == "" {
		charge, _, err := c.getJSON("/v1/charges/" + chargeID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"paymentIntentId": reference,
				"chargeId":        chargeID,
			}).WithError(err).Warn("payment reconciliation: could not retrieve charge")
			return facts
		}
		if receipt, ok := charge["receipt_url"].(string); ok {
			facts.ReceiptURL = receipt
		}
	}

	return facts
}

func (c *PaymentClient) getJSON(path string) (map[string]any, []byte, error) {
	resp, err := c.http.R().
		SetHeader("Authorization", "Bearer "+c.SecretKey).
		SetHeader("Accept", "application/json").
		Get(c.BaseURL + path)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, nil, fmt.Errorf("payment authority returned status %d: %s", resp.StatusCode(), resp.Body())
	}

	var parsed map[string]any
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to parse payment authority response: %w", err)
	}
	return parsed, resp.Body(), nil
}
