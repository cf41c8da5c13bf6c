package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v3"

	"washbot/pkg/lifecycle"
	"washbot/pkg/models"
	"washbot/service"
)

// orderDraft accumulates the order placement conversation.
type orderDraft struct {
	ServiceID   uuid.UUID
	ServiceName string
	PricePerKg  float64
	Quantity    int
	Weight      float64
	AddressID   uuid.UUID
	AddressLine string
	Date        time.Time
	Slot        string
	Note        string
}

func (d *orderDraft) estimatedTotal() float64 {
	return d.Weight * d.PricePerKg
}

func (b *Bot) handleOrderStart(c tele.Context) error {
	services, err := b.Stg.Service().GetActive(context.Background())
	if err != nil || len(services) == 0 {
		return c.Send("No services available right now, please try later.")
	}

	session := b.session(c)
	session.OrderDraft = &orderDraft{}
	session.State = StateIdle

	menu := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, svc := range services {
		label := fmt.Sprintf("%s (₹%.0f/kg)", svc.Name, svc.BasePricePerKg)
		rows = append(rows, menu.Row(menu.Data(label, "sv_"+svc.ID.String())))
	}
	menu.Inline(rows...)
	return c.Send(messages["order_service"], menu)
}

func (b *Bot) customerText(c tele.Context, session *UserSession) error {
	switch session.State {
	case StateEmail:
		email := strings.TrimSpace(c.Text())
		if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
			return c.Send(messages["email_invalid"])
		}
		return b.finishRegistration(c, email)

	case StateOrderQuantity:
		qty, err := strconv.Atoi(strings.TrimSpace(c.Text()))
		if err != nil || qty <= 0 {
			return c.Send("Please send a whole number of items, e.g. 12")
		}
		session.OrderDraft.Quantity = qty
		session.State = StateOrderWeight
		return c.Send(messages["order_weight"])

	case StateOrderWeight:
		weight, err := strconv.ParseFloat(strings.TrimSpace(c.Text()), 64)
		if err != nil || weight <= 0 {
			return c.Send("Please send the weight in kg, e.g. 4.5")
		}
		session.OrderDraft.Weight = weight
		session.State = StateIdle
		return b.promptAddressPick(c, session)

	case StateOrderDate:
		date, err := time.Parse("02-01-2006", strings.TrimSpace(c.Text()))
		if err != nil {
			return c.Send("Please send the date as DD-MM-YYYY, e.g. 25-08-2026")
		}
		session.OrderDraft.Date = date
		session.State = StateIdle
		return b.promptSlotPick(c)

	case StateOrderNote:
		session.OrderDraft.Note = strings.TrimSpace(c.Text())
		session.State = StateIdle
		return b.promptOrderConfirm(c, session)

	case StateAddrDoor:
		session.AddrDraft.DoorNo = strings.TrimSpace(c.Text())
		session.State = StateAddrStreet
		return c.Send("🛣 Street?")
	case StateAddrStreet:
		session.AddrDraft.Street = strings.TrimSpace(c.Text())
		session.State = StateAddrCity
		return c.Send("🏙 City?")
	case StateAddrCity:
		session.AddrDraft.City = strings.TrimSpace(c.Text())
		session.State = StateAddrState
		return c.Send("🗺 State?")
	case StateAddrState:
		session.AddrDraft.State = strings.TrimSpace(c.Text())
		session.State = StateAddrPincode
		return c.Send("📮 Pincode?")
	case StateAddrPincode:
		session.AddrDraft.Pincode = strings.TrimSpace(c.Text())
		session.State = StateIdle
		return b.saveAddress(c, session)
	}
	return nil
}

func (b *Bot) customerCallback(c tele.Context) error {
	data := strings.TrimSpace(c.Callback().Data)
	session := b.session(c)

	switch {
	case strings.HasPrefix(data, "sv_"):
		return b.pickService(c, session, strings.TrimPrefix(data, "sv_"))
	case strings.HasPrefix(data, "pa_"):
		return b.pickAddress(c, session, strings.TrimPrefix(data, "pa_"))
	case strings.HasPrefix(data, "slot_"):
		return b.pickSlot(c, session, strings.TrimPrefix(data, "slot_"))
	case data == "note_skip":
		session.OrderDraft.Note = ""
		session.State = StateIdle
		return b.promptOrderConfirm(c, session)
	case data == "confirm_yes":
		return b.placeOrder(c, session)
	case data == "confirm_no":
		session.State = StateIdle
		session.OrderDraft = nil
		c.Send("❌ Order discarded.")
		return b.showMenu(c)
	case strings.HasPrefix(data, "tl_"):
		return b.showTimeline(c, strings.TrimPrefix(data, "tl_"))
	case strings.HasPrefix(data, "cancel_"):
		return b.cancelOwnOrder(c, strings.TrimPrefix(data, "cancel_"))
	case strings.HasPrefix(data, "lbl_"):
		return b.pickAddressLabel(c, session, strings.TrimPrefix(data, "lbl_"))
	case strings.HasPrefix(data, "ad_"):
		return b.makeAddressDefault(c, session, strings.TrimPrefix(data, "ad_"))
	case strings.HasPrefix(data, "adel_"):
		return b.deleteAddress(c, session, strings.TrimPrefix(data, "adel_"))
	case data == "delacc_yes":
		return b.deleteAccount(c)
	case data == "delacc_no":
		c.Send("Glad you're staying! 💙")
		return b.showMenu(c)
	}
	return c.Respond()
}

func (b *Bot) pickService(c tele.Context, session *UserSession, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil || session.OrderDraft == nil {
		return c.Respond()
	}
	svc, err := b.Stg.Service().GetByID(context.Background(), id)
	if err != nil || svc == nil {
		return c.Respond(&tele.CallbackResponse{Text: "Service unavailable", ShowAlert: true})
	}
	session.OrderDraft.ServiceID = svc.ID
	session.OrderDraft.ServiceName = svc.Name
	session.OrderDraft.PricePerKg = svc.BasePricePerKg
	session.State = StateOrderQuantity
	b.Bot.Edit(c.Callback().Message, "🧼 Service: "+svc.Name)
	return c.Send(messages["order_quantity"])
}

func (b *Bot) promptAddressPick(c tele.Context, session *UserSession) error {
	addrs, err := b.Svc.Address().List(context.Background(), session.DBID)
	if err != nil {
		return c.Send("Failed to load your addresses.")
	}
	if len(addrs) == 0 {
		return c.Send(messages["no_addresses"])
	}

	menu := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, a := range addrs {
		label := fmt.Sprintf("%s: %s, %s", a.Label, a.DoorNo, a.Street)
		if a.IsDefault {
			label = "⭐ " + label
		}
		rows = append(rows, menu.Row(menu.Data(label, "pa_"+a.ID.String())))
	}
	menu.Inline(rows...)
	return c.Send(messages["order_address"], menu)
}

func (b *Bot) pickAddress(c tele.Context, session *UserSession, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil || session.OrderDraft == nil {
		return c.Respond()
	}
	addr, err := b.Stg.Address().GetOwned(context.Background(), id, session.DBID)
	if err != nil || addr == nil {
		return c.Respond(&tele.CallbackResponse{Text: "Address not found", ShowAlert: true})
	}
	session.OrderDraft.AddressID = addr.ID
	session.OrderDraft.AddressLine = addr.Line()
	session.State = StateOrderDate
	b.Bot.Edit(c.Callback().Message, "📍 Pickup at: "+addr.Line())
	return c.Send(messages["order_date"])
}

func (b *Bot) promptSlotPick(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row
	for i, slot := range pickupSlots {
		rows = append(rows, menu.Row(menu.Data(slot, fmt.Sprintf("slot_%d", i))))
	}
	menu.Inline(rows...)
	return c.Send(messages["order_slot"], menu)
}

func (b *Bot) pickSlot(c tele.Context, session *UserSession, raw string) error {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= len(pickupSlots) || session.OrderDraft == nil {
		return c.Respond()
	}
	session.OrderDraft.Slot = pickupSlots[idx]
	session.State = StateOrderNote
	b.Bot.Edit(c.Callback().Message, "⏰ Slot: "+pickupSlots[idx])

	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("Skip", "note_skip")))
	return c.Send(messages["order_note"], menu)
}

func (b *Bot) promptOrderConfirm(c tele.Context, session *UserSession) error {
	d := session.OrderDraft
	if d == nil {
		return nil
	}
	summary := fmt.Sprintf("🧼 %s\n🔢 %d items, ~%.1f kg\n📍 %s\n📅 %s, %s",
		d.ServiceName, d.Quantity, d.Weight, d.AddressLine, d.Date.Format("Jan 2, 2006"), d.Slot)
	if d.Note != "" {
		summary += "\n📝 " + d.Note
	}

	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("✅ Confirm", "confirm_yes"), menu.Data("❌ Discard", "confirm_no")))
	return c.Send(fmt.Sprintf(messages["order_confirm"], summary, d.estimatedTotal()), menu)
}

func (b *Bot) placeOrder(c tele.Context, session *UserSession) error {
	d := session.OrderDraft
	if d == nil {
		return c.Respond()
	}
	user := b.currentUser(c)
	if user == nil {
		return c.Send("Please /start first.")
	}

	itemName := fmt.Sprintf("%s (%d items)", d.ServiceName, d.Quantity)
	result, err := b.Svc.Order().Create(context.Background(), service.CreateOrderInput{
		Actor:          user,
		AddressID:      d.AddressID,
		PickupDate:     d.Date,
		PickupSlot:     d.Slot,
		SpecialNote:    d.Note,
		EstimatedTotal: d.estimatedTotal(),
		Items: []service.OrderItemInput{{
			ServiceID:       d.ServiceID,
			ItemName:        itemName,
			Quantity:        d.Quantity,
			EstimatedWeight: d.Weight,
		}},
	})

	session.State = StateIdle
	session.OrderDraft = nil

	if err != nil {
		if errors.Is(err, service.ErrInvalidAddress) {
			c.Send("Selected address is not valid.")
		} else {
			c.Send("Failed to place the order, please try again.")
		}
		return b.showMenu(c)
	}

	if result.Notified {
		c.Send(fmt.Sprintf("✅ Order %s placed! A confirmation email is on its way.", result.Order.OrderNumber))
	} else {
		c.Send(fmt.Sprintf("✅ Order %s placed! (confirmation email failed)", result.Order.OrderNumber))
	}
	return b.showMenu(c)
}

func (b *Bot) handleMyOrders(c tele.Context) error {
	user := b.currentUser(c)
	if user == nil {
		return c.Send("Please /start first.")
	}
	orders, err := b.Svc.Order().List(context.Background(), user)
	if err != nil {
		return c.Send("Failed to load orders.")
	}
	if len(orders) == 0 {
		return c.Send(messages["no_orders"])
	}

	now := time.Now()
	for _, o := range orders {
		txt := fmt.Sprintf("📦 %s — %s\n📅 Pickup: %s\n💰 %s",
			o.OrderNumber, statusLabel(o.Status), pickupLine(o), priceLine(o))

		menu := &tele.ReplyMarkup{}
		row := tele.Row{menu.Data("📜 Timeline", "tl_"+o.ID.String())}
		if lifecycle.CanCustomerCancel(user.Role, o.CreatedAt, now, o.Status) {
			remaining := lifecycle.TimeRemaining(o.CreatedAt, now)
			label := fmt.Sprintf("❌ Cancel (%dm left)", int(remaining.Minutes())+1)
			row = append(row, menu.Data(label, "cancel_"+o.ID.String()))
		}
		menu.Inline(menu.Row(row...))
		c.Send(txt, menu)
	}
	return nil
}

func pickupLine(o *models.Order) string {
	if o.PickupSlotText != nil && o.PickupDateFormatted != nil {
		return *o.PickupSlotText + " on " + *o.PickupDateFormatted
	}
	if o.Booking != nil {
		return o.Booking.PickupTime.Format("Jan 2, 2006 03:04 PM")
	}
	return "-"
}

func priceLine(o *models.Order) string {
	if o.FinalPrice != nil && *o.FinalPrice > 0 {
		return fmt.Sprintf("₹%.0f", *o.FinalPrice)
	}
	if o.EstimatedPrice != nil && *o.EstimatedPrice > 0 {
		return fmt.Sprintf("~₹%.0f (estimated)", *o.EstimatedPrice)
	}
	return "not yet calculated"
}

func (b *Bot) showTimeline(c tele.Context, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return c.Respond()
	}
	order, err := b.Svc.Order().Get(context.Background(), id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Order not found", ShowAlert: true})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Order %s\n\n", order.OrderNumber)
	for _, step := range lifecycle.Timeline(order) {
		icon := "⏳"
		if step.Completed {
			icon = "✅"
		} else if step.Scheduled {
			icon = "🕒"
		}
		fmt.Fprintf(&sb, "%s %s — %s\n", icon, step.Label, step.Time)
	}
	c.Respond()
	return c.Send(sb.String())
}

// cancelOwnOrder executes the customer cancellation. The reason is optional
// on this path and omitted by the bot flow; eligibility is re-checked
// against fresh state inside the service.
func (b *Bot) cancelOwnOrder(c tele.Context, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return c.Respond()
	}
	user := b.currentUser(c)
	if user == nil {
		return c.Respond()
	}

	result, err := b.Svc.Order().Cancel(context.Background(), service.CancelOrderInput{
		OrderID: id,
		Actor:   user,
	})
	if err != nil {
		if errors.Is(err, service.ErrCancellationNotAllowed) {
			return c.Respond(&tele.CallbackResponse{
				Text:      "Orders can only be cancelled within 1 hour of placement and must still be pending or confirmed.",
				ShowAlert: true,
			})
		}
		return c.Respond(&tele.CallbackResponse{Text: "Cancellation failed.", ShowAlert: true})
	}

	b.Bot.Edit(c.Callback().Message, fmt.Sprintf("❌ Order %s cancelled.", result.Order.OrderNumber))
	if result.Notified {
		c.Send("Your order has been cancelled and a confirmation email sent.")
	} else {
		c.Send("Your order has been cancelled (email notification failed).")
	}
	return c.Respond()
}

func (b *Bot) handleMyAddresses(c tele.Context) error {
	session := b.session(c)
	addrs, err := b.Svc.Address().List(context.Background(), session.DBID)
	if err != nil {
		return c.Send("Failed to load addresses.")
	}
	if len(addrs) == 0 {
		return c.Send(messages["no_addresses"])
	}

	for _, a := range addrs {
		txt := fmt.Sprintf("📍 %s\n%s", a.Label, a.Line())
		if a.IsDefault {
			txt = "⭐ Default\n" + txt
		}
		menu := &tele.ReplyMarkup{}
		row := tele.Row{menu.Data("🗑 Delete", "adel_"+a.ID.String())}
		if !a.IsDefault {
			row = append(tele.Row{menu.Data("⭐ Make Default", "ad_"+a.ID.String())}, row...)
		}
		menu.Inline(menu.Row(row...))
		c.Send(txt, menu)
	}
	return nil
}

func (b *Bot) handleAddressAddStart(c tele.Context) error {
	session := b.session(c)
	session.AddrDraft = &models.Address{UserID: session.DBID}

	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data("🏠 Home", "lbl_home"),
		menu.Data("🏢 Work", "lbl_work"),
		menu.Data("📌 Other", "lbl_other"),
	))
	return c.Send("🏷 What kind of address is this?", menu)
}

func (b *Bot) pickAddressLabel(c tele.Context, session *UserSession, label string) error {
	if session.AddrDraft == nil || !models.ValidAddressLabel(label) {
		return c.Respond()
	}
	session.AddrDraft.Label = label
	session.State = StateAddrDoor
	b.Bot.Edit(c.Callback().Message, "🏷 Label: "+label)
	return c.Send("🚪 Door / flat number?")
}

func (b *Bot) saveAddress(c tele.Context, session *UserSession) error {
	addr := session.AddrDraft
	session.AddrDraft = nil

	existing, _ := b.Svc.Address().List(context.Background(), session.DBID)
	addr.IsDefault = len(existing) == 0 // first address becomes the default

	if _, err := b.Svc.Address().Create(context.Background(), addr); err != nil {
		c.Send("Failed to save the address.")
		return b.showMenu(c)
	}
	c.Send("✅ Address saved!")
	return b.showMenu(c)
}

func (b *Bot) makeAddressDefault(c tele.Context, session *UserSession, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return c.Respond()
	}
	if err := b.Svc.Address().SetDefault(context.Background(), id, session.DBID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Failed to set default.", ShowAlert: true})
	}
	return c.Respond(&tele.CallbackResponse{Text: "⭐ Default address updated."})
}

func (b *Bot) deleteAddress(c tele.Context, session *UserSession, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return c.Respond()
	}
	if err := b.Svc.Address().Delete(context.Background(), id, session.DBID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Failed to delete.", ShowAlert: true})
	}
	b.Bot.Edit(c.Callback().Message, "🗑 Address deleted.")
	return c.Respond()
}

func (b *Bot) handleDeleteAccountStart(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data("⚠️ Yes, delete everything", "delacc_yes"),
		menu.Data("Keep my account", "delacc_no"),
	))
	return c.Send("This permanently deletes your account, orders, bookings and addresses. Are you sure?", menu)
}

func (b *Bot) deleteAccount(c tele.Context) error {
	user := b.currentUser(c)
	if user == nil {
		return c.Respond()
	}
	if err := b.Svc.User().EraseAccount(context.Background(), user); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Deletion failed, please contact support.", ShowAlert: true})
	}
	delete(b.Sessions, c.Sender().ID)
	b.Bot.Edit(c.Callback().Message, "Your account and all associated data have been permanently deleted. 👋")
	return c.Respond()
}
