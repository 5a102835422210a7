package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/model"
	"walletwatch/internal/repository"
	"walletwatch/internal/service"
)

type fakeAPI struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixture struct {
	bot      *Bot
	api      *fakeAPI
	users    *repository.UserRepository
	expenses *repository.ExpenseRepository
	budgets  *repository.BudgetRepository
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(repository.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := fixedClock{now: now}
	users := repository.NewUserRepository(db)
	expenses := repository.NewExpenseRepository(db)
	budgets := repository.NewBudgetRepository(db)
	api := &fakeAPI{}
	b := newBot(api, users,
		service.NewExpenseService(expenses, clock),
		service.NewBudgetService(budgets, expenses),
		service.NewNotificationService(repository.NewNotificationRepository(db), clock, nil, nil),
		clock, time.UTC, nil)
	return fixture{bot: b, api: api, users: users, expenses: expenses, budgets: budgets}
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		From:     &tgbotapi.User{ID: chatID, FirstName: "Ana"},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func TestStartShowsChatID(t *testing.T) {
	f := newFixture(t, time.Now())

	require.NoError(t, f.bot.handleMessage(context.Background(), command(777, "/start")))

	msg := f.api.last(t)
	assert.Equal(t, int64(777), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "<code>777</code>")
	assert.Contains(t, msg.Text, "Hi, Ana!")
}

func TestUnlinkedChatIsToldToLink(t *testing.T) {
	f := newFixture(t, time.Now())

	require.NoError(t, f.bot.handleMessage(context.Background(), command(5, "/summary")))
	assert.Contains(t, f.api.last(t).Text, "not linked")
}

func TestSummaryAndBudgetsForLinkedChat(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	ctx := context.Background()

	chatID := int64(99)
	user := model.User{Name: "Ana", Email: "ana@example.com", TelegramChatID: &chatID}
	require.NoError(t, f.users.Create(ctx, &user))
	require.NoError(t, f.expenses.Create(ctx, &model.Expense{
		UserID: user.ID, Amount: decimal.RequireFromString("120.00"), Category: model.CategoryFood, SpentAt: now.Add(-time.Hour),
	}))
	require.NoError(t, f.budgets.Create(ctx, &model.Budget{
		UserID: user.ID, Type: model.BudgetMonthly, Amount: decimal.NewFromInt(100),
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	}))

	require.NoError(t, f.bot.handleMessage(ctx, command(chatID, "/summary")))
	summary := f.api.last(t).Text
	assert.Contains(t, summary, "March 2024")
	assert.Contains(t, summary, "Food &amp; Dining: 120.00 (1)")

	require.NoError(t, f.bot.handleMessage(ctx, command(chatID, "/budgets")))
	budgets := f.api.last(t).Text
	assert.Contains(t, budgets, "⚠️")
	assert.Contains(t, budgets, "120.00 of 100.00 (120.00%)")
}

func TestSendHTML(t *testing.T) {
	f := newFixture(t, time.Now())

	require.NoError(t, f.bot.SendHTML(context.Background(), 42, "<b>Budget Reminder</b>"))
	msg := f.api.last(t)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "<b>Budget Reminder</b>", msg.Text)
}

func TestNonCommandGetsHint(t *testing.T) {
	f := newFixture(t, time.Now())
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1, Type: "private"}, Text: "hello"}

	require.NoError(t, f.bot.handleMessage(context.Background(), msg))
	assert.Contains(t, f.api.last(t).Text, "/help")
}
