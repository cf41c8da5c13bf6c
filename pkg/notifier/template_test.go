package notifier

import (
	"strings"
	"testing"
	"time"

	"washbot/pkg/models"
)

func fptr(f float64) *float64 { return &f }

func TestRenderEmailSubject(t *testing.T) {
	order := &models.Order{OrderNumber: "AW000042", Status: models.StatusConfirmed}
	subject, html, ok := renderEmail(order, "Priya Sharma", "+91 8928478081")
	if !ok {
		t.Fatal("confirmed must have a template")
	}
	if subject != "Order Confirmed - AW000042" {
		t.Fatalf("subject wrong: %q", subject)
	}
	if !strings.Contains(html, "Hello <strong>Priya!") {
		t.Fatal("greeting should use the first name")
	}
	if !strings.Contains(html, "AW000042") {
		t.Fatal("body must carry the order number")
	}
}

func TestRenderEmailUnknownStatus(t *testing.T) {
	order := &models.Order{OrderNumber: "AW000001", Status: "garbage"}
	if _, _, ok := renderEmail(order, "", ""); ok {
		t.Fatal("unknown statuses must not render")
	}
}

func TestRenderEmailCancellationDetails(t *testing.T) {
	reason := "machine breakdown"
	at := time.Date(2026, 7, 3, 12, 0, 0, 0, time.UTC)
	order := &models.Order{
		OrderNumber:        "AW000042",
		Status:             models.StatusCancelledByAdmin,
		CancellationReason: &reason,
		CancelledAt:        &at,
	}
	_, html, ok := renderEmail(order, "", "")
	if !ok {
		t.Fatal("cancelled must have a template")
	}
	if !strings.Contains(html, "machine breakdown") {
		t.Fatal("cancellation reason missing from body")
	}
	if !strings.Contains(html, "03/07/2026") {
		t.Fatal("cancellation date missing from body")
	}
	if !strings.Contains(html, "Dear Customer") {
		t.Fatal("empty name should fall back to the generic greeting")
	}
}

func TestDisplayPricePrefersFinal(t *testing.T) {
	order := &models.Order{EstimatedPrice: fptr(360), FinalPrice: fptr(416)}
	if p := displayPrice(order); p == nil || *p != 416 {
		t.Fatal("final price should win over the estimate")
	}
	order.FinalPrice = fptr(0)
	if p := displayPrice(order); p == nil || *p != 360 {
		t.Fatal("zero final price should fall back to the estimate")
	}
	if p := displayPrice(&models.Order{}); p != nil {
		t.Fatal("no prices means no display price")
	}
}

func TestStatusLabel(t *testing.T) {
	if got := statusLabel(models.StatusReadyForDelivery); got != "Ready For Delivery" {
		t.Fatalf("label wrong: %q", got)
	}
	if got := statusLabel(models.StatusConfirmed); got != "Confirmed" {
		t.Fatalf("label wrong: %q", got)
	}
}
