package mail

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/model"
)

func TestWelcomeEscapesName(t *testing.T) {
	msg, err := Welcome("<script>", "https://app.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Welcome to WalletWatch!", msg.Subject)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.HTML, `href="https://app.example.com/"`)
}

func TestOverspendFormatsAmounts(t *testing.T) {
	msg, err := Overspend(OverspendData{
		Name:       "Ana",
		Start:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.NewFromInt(100),
		Spent:      decimal.RequireFromString("150.5"),
		Percentage: decimal.RequireFromString("150.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Budget Overspending Alert", msg.Subject)
	assert.Contains(t, msg.HTML, "150.50%")
	assert.Contains(t, msg.HTML, "2024-03-01 to 2024-03-31")
	assert.Contains(t, msg.HTML, "against a budget of 100.00")
}

func TestReportListsCategoriesAndBudgets(t *testing.T) {
	msg, err := Report(ReportData{
		Name:   "Ana",
		Period: "March 2024",
		Total:  "42.00",
		Categories: []model.CategoryTotal{
			{Category: model.CategoryFood, Amount: decimal.NewFromInt(42), Count: 3},
		},
		Budgets: []BudgetLine{
			{Start: "2024-03-01", End: "2024-03-31", Amount: decimal.NewFromInt(40), Spent: decimal.NewFromInt(42), Overspent: true},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "Food &amp; Dining")
	assert.Contains(t, msg.HTML, "42.00 of 40.00")
	assert.Contains(t, msg.HTML, "over budget")
}

func TestReportWithoutExpenses(t *testing.T) {
	msg, err := Report(ReportData{Name: "Ana", Period: "March 2024", Total: "0.00"})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "No expenses were recorded.")
}

func TestLogSenderNeverFails(t *testing.T) {
	receipt, err := NewLogSender(nil).Send(context.Background(), "a@example.com", "hi", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "log-only", receipt.MessageID)
}

func TestSMTPSenderRequiresHost(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{From: "noreply@example.com"}, nil)
	assert.Error(t, err)
}
