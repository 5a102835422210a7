package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	applog "walletwatch/internal/log"
	"walletwatch/internal/model"
	"walletwatch/internal/repository"
	"walletwatch/internal/service"
)

const recentNotifications = 5

// botAPI is the part of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram channel. It copies alerts to linked chats and answers
// a few read-only commands for users who linked their chat id.
type Bot struct {
	api           botAPI
	userRepo      *repository.UserRepository
	expenseSvc    *service.ExpenseService
	budgetSvc     *service.BudgetService
	notifications *service.NotificationService
	clock         service.Clock
	loc           *time.Location
	logger        *slog.Logger
}

func New(
	token string,
	userRepo *repository.UserRepository,
	expenseSvc *service.ExpenseService,
	budgetSvc *service.BudgetService,
	notifications *service.NotificationService,
	clock service.Clock,
	loc *time.Location,
	logger *slog.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(api, userRepo, expenseSvc, budgetSvc, notifications, clock, loc, logger)
	b.logger.Info("Bot authorized", "account", api.Self.UserName)
	return b, nil
}

func newBot(
	api botAPI,
	userRepo *repository.UserRepository,
	expenseSvc *service.ExpenseService,
	budgetSvc *service.BudgetService,
	notifications *service.NotificationService,
	clock service.Clock,
	loc *time.Location,
	logger *slog.Logger,
) *Bot {
	if loc == nil {
		loc = time.UTC
	}
	return &Bot{
		api:           api,
		userRepo:      userRepo,
		expenseSvc:    expenseSvc,
		budgetSvc:     budgetSvc,
		notifications: notifications,
		clock:         clock,
		loc:           loc,
		logger:        applog.WithComponent(logger, applog.ComponentTelegram),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("Start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error("Handle message", "chat_id", update.Message.Chat.ID, applog.FieldError, err)
		}
	}

	return ctx.Err()
}

// SendHTML delivers an HTML formatted message to chatID.
func (b *Bot) SendHTML(_ context.Context, chatID int64, text string) error {
	return b.sendText(chatID, text)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I only understand commands. Try /help.")
	}

	b.logger.Debug("Command received", "chat_id", msg.Chat.ID, "command", msg.Command())
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "categories":
		return b.handleCategories(msg)
	case "summary":
		return b.withUser(ctx, msg, b.handleSummary)
	case "budgets":
		return b.withUser(ctx, msg, b.handleBudgets)
	case "notifications":
		return b.withUser(ctx, msg, b.handleNotifications)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := "there"
	if msg.From != nil && strings.TrimSpace(msg.From.FirstName) != "" {
		name = strings.TrimSpace(msg.From.FirstName)
	}
	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I deliver your WalletWatch alerts.</b>\n\n"+
			"Your chat id is <code>%d</code>.\n"+
			"Link it with <code>PUT /me/telegram</code> and send {\"chatId\": %d}.\n\n"+
			"See /help for commands.",
		escape(name), msg.Chat.ID, msg.Chat.ID,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /start — show your chat id\n" +
		"• /summary — spending this month by category\n" +
		"• /budgets — usage of your active budgets\n" +
		"• /notifications — your latest notifications\n" +
		"• /categories — expense categories"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCategories(msg *tgbotapi.Message) error {
	var sb strings.Builder
	sb.WriteString("📂 <b>Categories</b>\n")
	for _, c := range model.Categories {
		sb.WriteString("• " + escape(string(c)) + "\n")
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) withUser(ctx context.Context, msg *tgbotapi.Message, handler func(context.Context, *tgbotapi.Message, *model.User) error) error {
	user, err := b.userRepo.FindByTelegramChat(ctx, msg.Chat.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return b.sendText(msg.Chat.ID, "This chat is not linked to a WalletWatch account yet. Send /start to see how.")
	}
	if err != nil {
		return err
	}
	return handler(ctx, msg, user)
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	now := b.clock.Now().In(b.loc)
	summary, err := b.expenseSvc.MonthlySummary(ctx, user.ID, now)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 <b>%s</b>\n", now.Format("January 2006")))
	if len(summary.Categories) == 0 {
		sb.WriteString("— no expenses yet")
	} else {
		for _, c := range summary.Categories {
			sb.WriteString(fmt.Sprintf("• %s: %s (%d)\n", escape(string(c.Category)), c.Amount.StringFixed(2), c.Count))
		}
		sb.WriteString(fmt.Sprintf("\n<b>Total:</b> %s", summary.Total.StringFixed(2)))
	}
	return b.sendText(msg.Chat.ID, sb.String())
}

func (b *Bot) handleBudgets(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	budgets, err := b.budgetSvc.ListActive(ctx, user.ID, b.clock.Now())
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		return b.sendText(msg.Chat.ID, "— no active budgets")
	}

	var sb strings.Builder
	sb.WriteString("💰 <b>Active budgets</b>\n")
	for _, budget := range budgets {
		usage, err := b.budgetSvc.Usage(ctx, budget)
		if errors.Is(err, service.ErrZeroBudgetAmount) {
			continue
		}
		if err != nil {
			return err
		}
		icon := "🟢"
		if usage.Overspent {
			icon = "⚠️"
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s: %s of %s (%s%%)\n",
			icon,
			budget.StartDate.In(b.loc).Format(time.DateOnly),
			budget.EndDate.In(b.loc).Format(time.DateOnly),
			usage.Spent.StringFixed(2),
			usage.Amount.StringFixed(2),
			usage.Percentage.StringFixed(2),
		))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleNotifications(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	list, err := b.notifications.List(ctx, user.ID, "")
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return b.sendText(msg.Chat.ID, "— no notifications yet")
	}
	if len(list) > recentNotifications {
		list = list[:recentNotifications]
	}

	var sb strings.Builder
	sb.WriteString("🔔 <b>Latest notifications</b>\n")
	for _, n := range list {
		sb.WriteString(fmt.Sprintf("• %s <i>%s</i>\n   %s\n",
			n.SentAt.In(b.loc).Format("2006-01-02 15:04"), escape(string(n.Type)), escape(n.Message)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func escape(s string) string {
	return html.EscapeString(s)
}
