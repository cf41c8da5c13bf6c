package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"washbot/config"
	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/service"
	"washbot/storage"
)

type BotType string

const (
	BotTypeCustomer BotType = "customer"
	BotTypeAdmin    BotType = "admin"
)

// UserSession tracks the per-chat conversation state machine.
type UserSession struct {
	DBID  int64
	Role  models.Role
	State string

	OrderDraft  *orderDraft
	AddrDraft   *models.Address
	WeightEntry *weightEntry
	TempOrderID string
	ServiceName string
}

type Bot struct {
	Type BotType
	Bot  *tele.Bot
	Log  logger.ILogger
	Cfg  *config.Config
	Svc  service.IServiceManager
	Stg  storage.IStorage

	Sessions map[int64]*UserSession
}

const (
	StateIdle = "idle"

	StateEmail = "awaiting_email"

	StateOrderQuantity = "awaiting_order_quantity"
	StateOrderWeight   = "awaiting_order_weight"
	StateOrderDate     = "awaiting_order_date"
	StateOrderNote     = "awaiting_order_note"

	StateAddrDoor    = "awaiting_addr_door"
	StateAddrStreet  = "awaiting_addr_street"
	StateAddrCity    = "awaiting_addr_city"
	StateAddrState   = "awaiting_addr_state"
	StateAddrPincode = "awaiting_addr_pincode"

	StateCancelReason = "awaiting_cancel_reason"
	StateItemWeight   = "awaiting_item_weight"
	StateFinalPrice   = "awaiting_final_price"

	StateServiceName  = "awaiting_service_name"
	StateServicePrice = "awaiting_service_price"
)

// pickupSlots is the fixed slot list offered during order placement; the
// chosen text is stored verbatim and shown on the timeline.
var pickupSlots = []string{
	"9:00 AM - 11:00 AM",
	"11:00 AM - 1:00 PM",
	"2:00 PM - 4:00 PM",
	"4:00 PM - 6:00 PM",
}

var messages = map[string]string{
	"welcome":        "👋 Welcome to Advance Washing! Fresh laundry, picked up and delivered.",
	"contact_msg":    "Please share your phone number to register:",
	"share_contact":  "📱 Share Phone Number",
	"email_msg":      "Almost done! Please send your email address (order updates are sent there):",
	"email_invalid":  "That doesn't look like an email address, please try again:",
	"registered":     "🎉 You're all set!",
	"blocked":        "🚫 Your account has been blocked.",
	"no_entry":       "🚫 This bot is for admins only.",
	"menu_customer":  "🧺 What can we wash for you today?",
	"menu_admin":     "🛠 Admin console:",
	"order_service":  "🧼 Pick a service:",
	"order_quantity": "🔢 How many items? (e.g. 12)",
	"order_weight":   "⚖️ Estimated weight in kg? (e.g. 4.5)",
	"order_address":  "📍 Where should we pick up?",
	"order_date":     "📅 Pickup date? (DD-MM-YYYY)",
	"order_slot":     "⏰ Pick a time slot:",
	"order_note":     "📝 Any special instructions? (or tap Skip)",
	"order_confirm":  "🧾 Order summary:\n%s\nEstimated total: ₹%.0f\n\nPlace this order?",
	"no_orders":      "📭 No orders yet.",
	"no_addresses":   "📭 No saved addresses. Add one first.",
	"cancel_reason":  "✍️ Please provide a cancellation reason:",
}

func New(botType BotType, cfg *config.Config, svc service.IServiceManager, stg storage.IStorage, log logger.ILogger) (*Bot, error) {
	token := cfg.CustomerBotToken
	if botType == BotTypeAdmin {
		token = cfg.AdminBotToken
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}
	bot := &Bot{
		Type:     botType,
		Bot:      b,
		Log:      log,
		Cfg:      cfg,
		Svc:      svc,
		Stg:      stg,
		Sessions: make(map[int64]*UserSession),
	}
	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	b.Log.Info(fmt.Sprintf("🤖 %s bot started", b.Type))
	b.Bot.Start()
}

func (b *Bot) Stop() {
	b.Bot.Stop()
}

func (b *Bot) registerHandlers() {
	b.Bot.Handle("/start", b.handleStart)

	if b.Type == BotTypeCustomer {
		b.Bot.Handle(tele.OnContact, b.handleContact)
		b.Bot.Handle("🧺 Place Order", b.handleOrderStart)
		b.Bot.Handle("📦 My Orders", b.handleMyOrders)
		b.Bot.Handle("📍 My Addresses", b.handleMyAddresses)
		b.Bot.Handle("➕ Add Address", b.handleAddressAddStart)
		b.Bot.Handle("🗑 Delete Account", b.handleDeleteAccountStart)
		b.Bot.Handle("🏠 Main Menu", b.handleStart)
	} else {
		b.Bot.Handle("📦 All Orders", b.handleAdminOrders)
		b.Bot.Handle("👥 Users", b.handleAdminUsers)
		b.Bot.Handle("🧼 Services", b.handleAdminServices)
		b.Bot.Handle("➕ Add Service", b.handleServiceAddStart)
		b.Bot.Handle("📊 Stats", b.handleAdminStats)
		b.Bot.Handle("📜 Audit Log", b.handleAdminAudit)
		b.Bot.Handle("🏠 Main Menu", b.handleStart)
	}

	b.Bot.Handle(tele.OnCallback, b.handleCallback)
	b.Bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx := context.Background()
	user, err := b.Svc.User().GetOrCreate(ctx, c.Sender().ID, c.Sender().Username,
		strings.TrimSpace(fmt.Sprintf("%s %s", c.Sender().FirstName, c.Sender().LastName)))
	if err != nil {
		return c.Send("Something went wrong, please try again.")
	}

	// Bootstrap admin by configured ID or username.
	isAdmin := (b.Cfg.AdminID != 0 && c.Sender().ID == b.Cfg.AdminID) ||
		(b.Cfg.AdminUsername != "" && c.Sender().Username == b.Cfg.AdminUsername)
	if isAdmin && user.Role != models.RoleAdmin {
		b.Svc.User().UpdateRole(ctx, c.Sender().ID, models.RoleAdmin)
		b.Stg.User().UpdateStatus(ctx, c.Sender().ID, "active")
		user, _ = b.Svc.User().Get(ctx, c.Sender().ID)
	}

	b.Sessions[c.Sender().ID] = &UserSession{DBID: user.ID, Role: user.Role, State: StateIdle}

	if user.Status == "blocked" {
		return c.Send(messages["blocked"])
	}

	if b.Type == BotTypeAdmin && user.Role != models.RoleAdmin {
		return c.Send(messages["no_entry"])
	}

	if user.Status == "pending" && b.Type == BotTypeCustomer {
		menu := &tele.ReplyMarkup{ResizeKeyboard: true}
		menu.Reply(menu.Row(menu.Contact(messages["share_contact"])))
		c.Send(messages["welcome"])
		return c.Send(messages["contact_msg"], menu)
	}

	return b.showMenu(c)
}

func (b *Bot) handleContact(c tele.Context) error {
	if b.Type != BotTypeCustomer {
		return nil
	}
	if c.Message().Contact.UserID != c.Sender().ID {
		return c.Send("Please share your own phone number.")
	}
	ctx := context.Background()
	b.Svc.User().UpdatePhone(ctx, c.Sender().ID, c.Message().Contact.PhoneNumber)

	session := b.session(c)
	session.State = StateEmail
	return c.Send(messages["email_msg"], tele.RemoveKeyboard)
}

func (b *Bot) finishRegistration(c tele.Context, email string) error {
	ctx := context.Background()
	if err := b.Svc.User().UpdateEmail(ctx, c.Sender().ID, email); err != nil {
		return c.Send("Failed to save your email, please try again.")
	}
	b.Stg.User().UpdateStatus(ctx, c.Sender().ID, "active")
	b.session(c).State = StateIdle
	c.Send(messages["registered"])
	return b.showMenu(c)
}

func (b *Bot) showMenu(c tele.Context) error {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}

	if b.Type == BotTypeCustomer {
		menu.Reply(
			menu.Row(menu.Text("🧺 Place Order"), menu.Text("📦 My Orders")),
			menu.Row(menu.Text("📍 My Addresses"), menu.Text("➕ Add Address")),
			menu.Row(menu.Text("🗑 Delete Account")),
		)
		return c.Send(messages["menu_customer"], menu)
	}

	menu.Reply(
		menu.Row(menu.Text("📦 All Orders"), menu.Text("👥 Users")),
		menu.Row(menu.Text("🧼 Services"), menu.Text("➕ Add Service")),
		menu.Row(menu.Text("📊 Stats"), menu.Text("📜 Audit Log")),
	)
	return c.Send(messages["menu_admin"], menu)
}

// session returns the chat's session, creating an idle one when the bot
// restarted and lost the in-memory map.
func (b *Bot) session(c tele.Context) *UserSession {
	s, ok := b.Sessions[c.Sender().ID]
	if !ok {
		user, _ := b.Svc.User().Get(context.Background(), c.Sender().ID)
		s = &UserSession{State: StateIdle}
		if user != nil {
			s.DBID = user.ID
			s.Role = user.Role
		}
		b.Sessions[c.Sender().ID] = s
	}
	return s
}

func (b *Bot) currentUser(c tele.Context) *models.User {
	u, _ := b.Svc.User().Get(context.Background(), c.Sender().ID)
	return u
}

func (b *Bot) handleText(c tele.Context) error {
	session := b.session(c)
	if session.State == StateIdle {
		return nil
	}
	if b.Type == BotTypeCustomer {
		return b.customerText(c, session)
	}
	return b.adminText(c, session)
}

func (b *Bot) handleCallback(c tele.Context) error {
	if b.Type == BotTypeCustomer {
		return b.customerCallback(c)
	}
	return b.adminCallback(c)
}

// HandleOrderEvent pushes a status-change notification to the order owner
// (customer bot) or refreshes nothing and just informs admins (admin bot).
// List views are re-fetched on demand, so no state is merged here.
func (b *Bot) HandleOrderEvent(evt models.OrderEvent) {
	if evt.OldStatus == evt.NewStatus {
		return
	}

	if b.Type == BotTypeCustomer {
		owner, err := b.Stg.User().GetByID(context.Background(), evt.UserID)
		if err != nil || owner == nil {
			return
		}
		text := fmt.Sprintf("🔔 Order %s status changed to %s", evt.OrderNumber, statusLabel(evt.NewStatus))
		if _, err := b.Bot.Send(&tele.User{ID: owner.TelegramID}, text); err != nil {
			b.Log.Warning("failed to push order notification", logger.Error(err))
		}
		return
	}

	if b.Cfg.AdminID != 0 {
		text := fmt.Sprintf("📦 Order %s: %s → %s", evt.OrderNumber, statusLabel(evt.OldStatus), statusLabel(evt.NewStatus))
		b.Bot.Send(&tele.User{ID: b.Cfg.AdminID}, text)
	}
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
