package notifier

import (
	"fmt"
	"strings"

	"washbot/pkg/models"
)

type statusTemplate struct {
	Subject string
	Title   string
	Message string
}

// One template per lifecycle status, cancellation variants included.
var statusTemplates = map[models.OrderStatus]statusTemplate{
	models.StatusPending: {
		Subject: "Order Placed Successfully - %s",
		Title:   "Order Placed Successfully!",
		Message: "Thank you for choosing Advance Washing! Your order has been received and we're excited to take care of your laundry.",
	},
	models.StatusConfirmed: {
		Subject: "Order Confirmed - %s",
		Title:   "Order Confirmed!",
		Message: "Great news! Your order has been confirmed and our team is preparing to give your clothes the care they deserve.",
	},
	models.StatusPickedUp: {
		Subject: "Your Laundry Has Been Picked Up - %s",
		Title:   "Your Laundry Has Been Picked Up!",
		Message: "We've successfully picked up your laundry and it's now on its way to our facility.",
	},
	models.StatusInProcess: {
		Subject: "We're Washing Your Clothes - %s",
		Title:   "We're Washing Your Clothes!",
		Message: "Your laundry is currently being processed with utmost care at our facility.",
	},
	models.StatusReadyForDelivery: {
		Subject: "Ready for Delivery - %s",
		Title:   "Ready for Delivery!",
		Message: "Your freshly cleaned and folded laundry is ready and will be delivered to your doorstep soon.",
	},
	models.StatusDelivered: {
		Subject: "Order Delivered - %s",
		Title:   "Order Delivered Successfully!",
		Message: "Your order has been delivered! Thank you for trusting Advance Washing with your clothes.",
	},
	models.StatusCancelledByUser: {
		Subject: "Order Cancelled - %s",
		Title:   "Order Cancelled",
		Message: "Your order has been cancelled as requested. We're always here when you need us again!",
	},
	models.StatusCancelledByAdmin: {
		Subject: "Order Cancelled - %s",
		Title:   "Order Cancelled",
		Message: "We regret to inform you that your order has been cancelled due to unforeseen circumstances. Our team will contact you shortly.",
	},
}

// renderEmail builds the subject and HTML body for the order's current
// status, or ok=false when the status has no template.
func renderEmail(order *models.Order, customerName, supportPhone string) (subject, html string, ok bool) {
	tpl, ok := statusTemplates[order.Status]
	if !ok {
		return "", "", false
	}

	subject = fmt.Sprintf(tpl.Subject, order.OrderNumber)

	firstName := "Dear Customer"
	if customerName != "" {
		firstName = strings.Fields(customerName)[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<html><body>")
	fmt.Fprintf(&b, "<h2>%s</h2>", tpl.Title)
	fmt.Fprintf(&b, "<p>Hello <strong>%s!</strong><br/>%s</p>", firstName, tpl.Message)

	if order.Status.Cancelled() && order.CancellationReason != nil {
		fmt.Fprintf(&b, "<p><strong>Cancellation Details</strong><br/><em>%q</em>", *order.CancellationReason)
		if order.CancelledAt != nil {
			fmt.Fprintf(&b, "<br/>Cancelled on: %s", order.CancelledAt.Format("02/01/2006"))
		}
		fmt.Fprintf(&b, "</p>")
	}

	fmt.Fprintf(&b, "<p><strong>Order Number:</strong> %s<br/>", order.OrderNumber)
	fmt.Fprintf(&b, "<strong>Status:</strong> %s", statusLabel(order.Status))
	if order.FinalWeight != nil {
		fmt.Fprintf(&b, "<br/><strong>Weight:</strong> %.1f kg", *order.FinalWeight)
	}
	if price := displayPrice(order); price != nil {
		fmt.Fprintf(&b, "<br/><strong>Total Amount:</strong> ₹%.0f", *price)
	}
	if order.Address != nil {
		fmt.Fprintf(&b, "<br/><strong>Address:</strong> %s", order.Address.Line())
	}
	fmt.Fprintf(&b, "</p>")

	fmt.Fprintf(&b, "<p>Questions? Call us at %s.</p>", supportPhone)
	fmt.Fprintf(&b, "</body></html>")

	return subject, b.String(), true
}

// displayPrice prefers the final price once calculated, else the estimate.
func displayPrice(order *models.Order) *float64 {
	if order.FinalPrice != nil && *order.FinalPrice > 0 {
		return order.FinalPrice
	}
	if order.EstimatedPrice != nil && *order.EstimatedPrice > 0 {
		return order.EstimatedPrice
	}
	return nil
}

func statusLabel(s models.OrderStatus) string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
