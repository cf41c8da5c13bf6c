// Package notifier implements the fire-and-forget order status email. The
// caller passes an order id; the notifier looks up the order, customer and
// address itself and sends the status-appropriate message through Brevo.
// Failures are reported back once and never retried here.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"washbot/config"
	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type Notifier interface {
	SendOrderStatusEmail(ctx context.Context, orderID uuid.UUID) error
}

type brevoNotifier struct {
	apiKey       string
	senderName   string
	senderEmail  string
	supportPhone string
	endpoint     string
	httpClient   *http.Client
	stg          storage.IStorage
	log          logger.ILogger
}

func New(cfg config.Config, stg storage.IStorage, log logger.ILogger) Notifier {
	return &brevoNotifier{
		apiKey:       cfg.BrevoAPIKey,
		senderName:   cfg.SenderName,
		senderEmail:  cfg.SenderEmail,
		supportPhone: cfg.SupportPhone,
		endpoint:     brevoEndpoint,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		stg:          stg,
		log:          log,
	}
}

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoPayload struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

func (n *brevoNotifier) SendOrderStatusEmail(ctx context.Context, orderID uuid.UUID) error {
	err := n.send(ctx, orderID)
	if err != nil {
		n.log.Warning("order status email failed", logger.String("order_id", orderID.String()), logger.Error(err))
		n.logAttempt(ctx, orderID, "failed", nil, err)
		return err
	}
	return nil
}

func (n *brevoNotifier) send(ctx context.Context, orderID uuid.UUID) error {
	order, err := n.stg.Order().GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %s not found", orderID)
	}

	customer, err := n.stg.User().GetByID(ctx, order.UserID)
	if err != nil {
		return err
	}
	if customer == nil || customer.Email == nil || *customer.Email == "" {
		return fmt.Errorf("no recipient email for order %s", order.OrderNumber)
	}

	subject, html, ok := renderEmail(order, customer.FullName, n.supportPhone)
	if !ok {
		return fmt.Errorf("no email template for status %s", order.Status)
	}

	payload := brevoPayload{
		Sender:      brevoParty{Name: n.senderName, Email: n.senderEmail},
		To:          []brevoParty{{Name: customer.FullName, Email: *customer.Email}},
		Subject:     subject,
		HTMLContent: html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("brevo api error: %d - %s", resp.StatusCode, string(respBody))
	}

	n.logAttempt(ctx, orderID, "sent", respBody, nil)
	n.log.Info("order status email sent",
		logger.String("order_number", order.OrderNumber),
		logger.String("status", string(order.Status)),
	)
	return nil
}

// logAttempt records the outcome in email_logs; logging failure must not
// mask the email result.
func (n *brevoNotifier) logAttempt(ctx context.Context, orderID uuid.UUID, status string, response []byte, sendErr error) {
	entry := &models.EmailLog{
		OrderID:     orderID,
		EmailStatus: status,
		SentAt:      time.Now(),
	}
	if len(response) > 0 {
		s := string(response)
		entry.Response = &s
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := n.stg.Audit().LogEmail(ctx, entry); err != nil {
		n.log.Error("failed to record email log", logger.Error(err))
	}
}
