package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"path/filepath"

	"github.com/Nkemdi/ezichop-api/models"
)

// Mailer sends order emails over SMTP using the HTML templates in
// TemplateDir. SMTP settings come from the environment.
type Mailer struct {
	TemplateDir string
}

func NewMailer() *Mailer {
	return &Mailer{TemplateDir: "templates"}
}

func (m *Mailer) SendAdminNewOrder(order *models.Order) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		return fmt.Errorf("ADMIN_EMAIL is not set")
	}
	subject := fmt.Sprintf("New order %s from %s", order.OrderNumber, order.CustomerName)
	return m.send(adminEmail, subject, "adminOrderEmail.html", order, "", nil)
}

func (m *Mailer) SendCustomerConfirmation(order *models.Order, invoice []byte) error {
	subject := fmt.Sprintf("Your order %s is confirmed", order.OrderNumber)
	attachmentName := ""
	if invoice != nil {
		attachmentName = "invoice-" + order.OrderNumber + ".pdf"
	}
	return m.send(order.Email, subject, "customerOrderEmail.html", order, attachmentName, invoice)
}

func (m *Mailer) send(emailTo, emailSubject, templateName string, order *models.Order, attachmentName string, attachment []byte) error {
	tmpl, err := template.ParseFiles(filepath.Join(m.TemplateDir, templateName))
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, order); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	message := buildMessage(os.Getenv("FROM_EMAIL"), emailTo, emailSubject, body.String(), attachmentName, attachment)

	auth := smtp.PlainAuth(
		"",
		os.Getenv("FROM_EMAIL"),
		os.Getenv("FROM_EMAIL_PASSWORD"),
		os.Getenv("FROM_EMAIL_SMTP"),
	)

	if err := smtp.SendMail(os.Getenv("SMTP_ADDRESS"), auth, os.Getenv("FROM_EMAIL"), []string{emailTo}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// buildMessage assembles the raw RFC 5322 message: plain HTML when there is no
// attachment, multipart/mixed with a base64 PDF part otherwise.
func buildMessage(from, to, subject, htmlBody, attachmentName string, attachment []byte) []byte {
	var msg bytes.Buffer

	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-version: 1.0;\r\n")

	if attachment == nil {
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n")
		msg.WriteString(htmlBody)
		return msg.Bytes()
	}

	boundary := "ezichop-invoice-boundary"
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: application/pdf\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", attachmentName)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		msg.WriteString(encoded[:76] + "\r\n")
		encoded = encoded[76:]
	}
	msg.WriteString(encoded + "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return msg.Bytes()
}
