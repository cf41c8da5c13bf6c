package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v3"

	"washbot/pkg/lifecycle"
	"washbot/pkg/models"
	"washbot/service"
)

// weightEntry walks the admin through entering a final weight for every
// item of one order, then the final price.
type weightEntry struct {
	OrderID uuid.UUID
	Items   []*models.OrderItem
	Index   int
	Weights map[uuid.UUID]float64
	Total   float64
}

func (b *Bot) requireAdmin(c tele.Context) *models.User {
	user := b.currentUser(c)
	if user == nil || !user.IsAdmin() {
		c.Send(messages["no_entry"])
		return nil
	}
	return user
}

func (b *Bot) handleAdminOrders(c tele.Context) error {
	admin := b.requireAdmin(c)
	if admin == nil {
		return nil
	}
	orders, err := b.Svc.Order().List(context.Background(), admin)
	if err != nil {
		return c.Send("Failed to load orders.")
	}
	if len(orders) == 0 {
		return c.Send(messages["no_orders"])
	}

	for _, o := range orders {
		txt := fmt.Sprintf("📦 %s — %s\n👤 User #%d\n📅 Pickup: %s\n💰 %s",
			o.OrderNumber, statusLabel(o.Status), o.UserID, pickupLine(o), priceLine(o))
		if o.CancellationReason != nil {
			txt += "\n✍️ " + *o.CancellationReason
		}

		menu := &tele.ReplyMarkup{}
		var row tele.Row
		if next, ok := lifecycle.NextStatus(o.Status); ok {
			row = append(row, menu.Data("➡ "+statusLabel(next), "adv_"+o.ID.String()))
		}
		if lifecycle.CanEditWeights(o.Status) {
			row = append(row, menu.Data("⚖ Set Weights", "wgt_"+o.ID.String()))
		}
		if lifecycle.CanAdminCancel(o.Status) {
			row = append(row, menu.Data("❌ Cancel", "cancel_"+o.ID.String()))
		}
		if len(row) > 0 {
			menu.Inline(menu.Row(row...))
			c.Send(txt, menu)
		} else {
			c.Send(txt)
		}
	}
	return nil
}

func (b *Bot) adminText(c tele.Context, session *UserSession) error {
	switch session.State {
	case StateCancelReason:
		return b.adminCancelWithReason(c, session)
	case StateItemWeight:
		return b.adminItemWeight(c, session)
	case StateFinalPrice:
		return b.adminFinalPrice(c, session)
	case StateServiceName:
		name := strings.TrimSpace(c.Text())
		if name == "" {
			return c.Send("Please send a service name.")
		}
		session.ServiceName = name
		session.State = StateServicePrice
		return c.Send("💰 Price per kg? (e.g. 80)")
	case StateServicePrice:
		return b.adminServicePrice(c, session)
	}
	return nil
}

func (b *Bot) adminCallback(c tele.Context) error {
	data := strings.TrimSpace(c.Callback().Data)
	session := b.session(c)

	switch {
	case strings.HasPrefix(data, "adv_"):
		return b.advanceOrder(c, strings.TrimPrefix(data, "adv_"))
	case strings.HasPrefix(data, "wgt_"):
		return b.startWeightEntry(c, session, strings.TrimPrefix(data, "wgt_"))
	case strings.HasPrefix(data, "cancel_"):
		session.TempOrderID = strings.TrimPrefix(data, "cancel_")
		session.State = StateCancelReason
		c.Respond()
		return c.Send(messages["cancel_reason"])
	case strings.HasPrefix(data, "ub_"):
		return b.setUserStatus(c, strings.TrimPrefix(data, "ub_"), "blocked")
	case strings.HasPrefix(data, "ua_"):
		return b.setUserStatus(c, strings.TrimPrefix(data, "ua_"), "active")
	case strings.HasPrefix(data, "ss_"):
		return b.toggleService(c, strings.TrimPrefix(data, "ss_"))
	}
	return c.Respond()
}

func (b *Bot) advanceOrder(c tele.Context, raw string) error {
	admin := b.requireAdmin(c)
	if admin == nil {
		return c.Respond()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return c.Respond()
	}
	order, err := b.Svc.Order().Get(context.Background(), id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Order not found.", ShowAlert: true})
	}
	next, ok := lifecycle.NextStatus(order.Status)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "No further transition possible.", ShowAlert: true})
	}

	result, err := b.Svc.Order().Update(context.Background(), service.UpdateOrderInput{
		OrderID: id,
		Actor:   admin,
		Status:  next,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			return c.Respond(&tele.CallbackResponse{Text: "Status changed in the meantime, reload the list.", ShowAlert: true})
		}
		return c.Respond(&tele.CallbackResponse{Text: "Update failed.", ShowAlert: true})
	}

	msg := fmt.Sprintf("✅ %s → %s", result.Order.OrderNumber, statusLabel(result.Order.Status))
	if !result.Notified {
		msg += " (email failed)"
	}
	b.Bot.Edit(c.Callback().Message, msg)
	return c.Respond()
}

func (b *Bot) startWeightEntry(c tele.Context, session *UserSession, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return c.Respond()
	}
	order, err := b.Svc.Order().Get(context.Background(), id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Order not found.", ShowAlert: true})
	}
	if !lifecycle.CanEditWeights(order.Status) {
		return c.Respond(&tele.CallbackResponse{Text: "Weights can no longer be edited for this order.", ShowAlert: true})
	}
	if len(order.Items) == 0 {
		return c.Respond(&tele.CallbackResponse{Text: "Order has no items.", ShowAlert: true})
	}

	session.WeightEntry = &weightEntry{
		OrderID: id,
		Items:   order.Items,
		Weights: make(map[uuid.UUID]float64),
	}
	session.State = StateItemWeight
	c.Respond()
	return c.Send(b.weightPrompt(session.WeightEntry))
}

func (b *Bot) weightPrompt(we *weightEntry) string {
	item := we.Items[we.Index]
	name := "item"
	if item.ItemName != nil {
		name = *item.ItemName
	}
	return fmt.Sprintf("⚖ Final weight for %s (%d/%d), in kg:", name, we.Index+1, len(we.Items))
}

func (b *Bot) adminItemWeight(c tele.Context, session *UserSession) error {
	we := session.WeightEntry
	if we == nil {
		session.State = StateIdle
		return nil
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(c.Text()), 64)
	if err != nil || weight <= 0 {
		return c.Send("Please send the weight in kg, e.g. 4.5")
	}

	we.Weights[we.Items[we.Index].ID] = weight
	we.Total += weight
	we.Index++

	if we.Index < len(we.Items) {
		return c.Send(b.weightPrompt(we))
	}
	session.State = StateFinalPrice
	return c.Send(fmt.Sprintf("Total %.1f kg. 💰 Final price?", we.Total))
}

func (b *Bot) adminFinalPrice(c tele.Context, session *UserSession) error {
	admin := b.requireAdmin(c)
	we := session.WeightEntry
	if admin == nil || we == nil {
		session.State = StateIdle
		return nil
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(c.Text()), 64)
	if err != nil || price < 0 {
		return c.Send("Please send the final price as a number, e.g. 450")
	}

	total := we.Total
	_, err = b.Svc.Order().Update(context.Background(), service.UpdateOrderInput{
		OrderID:     we.OrderID,
		Actor:       admin,
		FinalWeight: &total,
		FinalPrice:  &price,
		ItemWeights: we.Weights,
	})
	session.WeightEntry = nil
	session.State = StateIdle
	if err != nil {
		return c.Send("Failed to save weights.")
	}
	return c.Send(fmt.Sprintf("✅ Saved: %.1f kg, ₹%.0f", total, price))
}

func (b *Bot) adminCancelWithReason(c tele.Context, session *UserSession) error {
	admin := b.requireAdmin(c)
	if admin == nil {
		return nil
	}
	// Admin cancellations always carry a reason; this prompt loops until
	// one is provided.
	reason := strings.TrimSpace(c.Text())
	if reason == "" {
		return c.Send(messages["cancel_reason"])
	}
	id, err := uuid.Parse(session.TempOrderID)
	session.TempOrderID = ""
	session.State = StateIdle
	if err != nil {
		return c.Send("Order reference lost, please reopen the list.")
	}

	result, err := b.Svc.Order().Cancel(context.Background(), service.CancelOrderInput{
		OrderID: id,
		Actor:   admin,
		Reason:  reason,
	})
	if err != nil {
		if errors.Is(err, service.ErrCancellationNotAllowed) {
			return c.Send("This order is already in a terminal state.")
		}
		return c.Send("Cancellation failed.")
	}
	msg := fmt.Sprintf("❌ Order %s cancelled.", result.Order.OrderNumber)
	if !result.Notified {
		msg += " (email failed)"
	}
	return c.Send(msg)
}

func (b *Bot) handleAdminUsers(c tele.Context) error {
	if b.requireAdmin(c) == nil {
		return nil
	}
	users, err := b.Stg.User().GetAll(context.Background())
	if err != nil {
		return c.Send("Failed to load users.")
	}

	for _, u := range users {
		phone := "-"
		if u.Phone != nil {
			phone = *u.Phone
		}
		txt := fmt.Sprintf("👤 %s (@%s)\n📱 %s\n🏷 %s, %s", u.FullName, u.Username, phone, u.Role, u.Status)

		menu := &tele.ReplyMarkup{}
		teleID := strconv.FormatInt(u.TelegramID, 10)
		switch {
		case u.Status == "blocked":
			menu.Inline(menu.Row(menu.Data("✅ Activate", "ua_"+teleID)))
			c.Send(txt, menu)
		case u.Role != models.RoleAdmin:
			menu.Inline(menu.Row(menu.Data("🚫 Block", "ub_"+teleID)))
			c.Send(txt, menu)
		default:
			c.Send(txt)
		}
	}
	return nil
}

func (b *Bot) setUserStatus(c tele.Context, raw, status string) error {
	admin := b.requireAdmin(c)
	if admin == nil {
		return c.Respond()
	}
	teleID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return c.Respond()
	}
	ctx := context.Background()
	if err := b.Stg.User().UpdateStatus(ctx, teleID, status); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Update failed.", ShowAlert: true})
	}
	b.Svc.User().SignOut(ctx, teleID) // drop the cached profile

	b.Stg.Audit().Append(ctx, &models.AdminLog{
		AdminID:    admin.ID,
		Action:     "user_" + status,
		TargetType: "user",
		TargetID:   raw,
	})
	return c.Respond(&tele.CallbackResponse{Text: "User " + status + "."})
}

func (b *Bot) handleAdminServices(c tele.Context) error {
	if b.requireAdmin(c) == nil {
		return nil
	}
	services, err := b.Stg.Service().GetActive(context.Background())
	if err != nil {
		return c.Send("Failed to load services.")
	}
	if len(services) == 0 {
		return c.Send("No active services. Add one with ➕ Add Service.")
	}
	for _, svc := range services {
		txt := fmt.Sprintf("🧼 %s — ₹%.0f/kg", svc.Name, svc.BasePricePerKg)
		menu := &tele.ReplyMarkup{}
		menu.Inline(menu.Row(menu.Data("🚫 Deactivate", "ss_"+svc.ID.String())))
		c.Send(txt, menu)
	}
	return nil
}

func (b *Bot) toggleService(c tele.Context, raw string) error {
	admin := b.requireAdmin(c)
	if admin == nil {
		return c.Respond()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return c.Respond()
	}
	ctx := context.Background()
	if err := b.Stg.Service().SetStatus(ctx, id, "inactive"); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Update failed.", ShowAlert: true})
	}
	b.Stg.Audit().Append(ctx, &models.AdminLog{
		AdminID:    admin.ID,
		Action:     "service_deactivated",
		TargetType: "service",
		TargetID:   raw,
	})
	b.Bot.Edit(c.Callback().Message, "🚫 Service deactivated.")
	return c.Respond()
}

func (b *Bot) handleServiceAddStart(c tele.Context) error {
	if b.requireAdmin(c) == nil {
		return nil
	}
	session := b.session(c)
	session.State = StateServiceName
	return c.Send("🧼 Service name?")
}

func (b *Bot) adminServicePrice(c tele.Context, session *UserSession) error {
	admin := b.requireAdmin(c)
	if admin == nil || session.ServiceName == "" {
		session.State = StateIdle
		return nil
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(c.Text()), 64)
	if err != nil || price <= 0 {
		return c.Send("Please send the price per kg as a number, e.g. 80")
	}

	ctx := context.Background()
	name := session.ServiceName
	session.ServiceName = ""
	session.State = StateIdle

	if err := b.Stg.Service().Create(ctx, name, price); err != nil {
		return c.Send("Failed to create the service.")
	}
	b.Stg.Audit().Append(ctx, &models.AdminLog{
		AdminID:    admin.ID,
		Action:     "service_created",
		TargetType: "service",
		TargetID:   name,
		Details:    map[string]string{"price_per_kg": fmt.Sprintf("%.2f", price)},
	})
	return c.Send(fmt.Sprintf("✅ Service %q added at ₹%.0f/kg.", name, price))
}

func (b *Bot) handleAdminStats(c tele.Context) error {
	if b.requireAdmin(c) == nil {
		return nil
	}
	ctx := context.Background()
	totalOrders, _ := b.Stg.Order().GetTotalCount(ctx)
	activeOrders, _ := b.Stg.Order().GetActiveCount(ctx)
	totalUsers, _ := b.Stg.User().GetTotalUsers(ctx)

	return c.Send(fmt.Sprintf("📊 Stats\n\n📦 Orders: %d total, %d active\n👥 Users: %d",
		totalOrders, activeOrders, totalUsers))
}

func (b *Bot) handleAdminAudit(c tele.Context) error {
	if b.requireAdmin(c) == nil {
		return nil
	}
	entries, err := b.Stg.Audit().Recent(context.Background(), 15)
	if err != nil {
		return c.Send("Failed to load the audit log.")
	}
	if len(entries) == 0 {
		return c.Send("📭 No admin actions recorded yet.")
	}

	var sb strings.Builder
	sb.WriteString("📜 Recent admin actions:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "• %s — %s %s %s", e.CreatedAt.Format("Jan 2 15:04"), e.Action, e.TargetType, e.TargetID)
		if r, ok := e.Details["reason"]; ok && r != "" {
			fmt.Fprintf(&sb, " (%s)", r)
		}
		sb.WriteString("\n")
	}
	return c.Send(sb.String())
}
