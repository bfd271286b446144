package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Nkemdi/ezichop-api/models"
)

// SMSClient sends SMS through the Termii messaging API.
type SMSClient struct {
	BaseURL string
	http    *resty.Client
}

func NewSMSClient() *SMSClient {
	base := os.Getenv("TERMII_API_BASE")
	if base == "" {
		base = "https://api.ng.termii.com"
	}
	return &SMSClient{
		BaseURL: base,
		http:    resty.New().SetTimeout(15 * time.Second),
	}
}

func (c *SMSClient) SendAdminNewOrder(order *models.Order) error {
	adminPhone := os.Getenv("ADMIN_PHONE")
	if adminPhone == "" {
		return fmt.Errorf("ADMIN_PHONE is not set")
	}

	message := fmt.Sprintf(
		"New order %s: %s, %d item(s), total %.2f, %s delivery to %s.",
		order.OrderNumber, order.CustomerName, len(order.OrderItems),
		order.Total, order.DeliveryMethod, order.DeliveryCity,
	)

	requestBody := map[string]any{
		"api_key": os.Getenv("TERMII_API_KEY"),
		"to":      adminPhone,
		"from":    os.Getenv("TERMII_SENDER_ID"),
		"sms":     message,
		"type":    "plain",
		"channel": "generic",
	}

	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(requestBody).
		Post(c.BaseURL + "/api/sms/send")
	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("sms request failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}
