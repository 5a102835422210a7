package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"walletwatch/internal/mail"
	"walletwatch/internal/model"
	"walletwatch/internal/repository"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type sentMail struct {
	to      string
	subject string
	html    string
}

// fakeMailer records deliveries. Recipients in fail get an error, recipients
// in panicOn make Send panic.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	fail    map[string]bool
	panicOn map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) (mail.Receipt, error) {
	if m.panicOn[to] {
		panic("smtp exploded")
	}
	if m.fail[to] {
		return mail.Receipt{}, errors.New("connection refused")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return mail.Receipt{MessageID: fmt.Sprintf("<%d@test>", len(m.sent))}, nil
}

func (m *fakeMailer) to(addr string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.to == addr {
			out = append(out, s)
		}
	}
	return out
}

type fakeChat struct {
	messages map[int64][]string
	err      error
}

func (c *fakeChat) SendHTML(_ context.Context, chatID int64, text string) error {
	if c.err != nil {
		return c.err
	}
	if c.messages == nil {
		c.messages = map[int64][]string{}
	}
	c.messages[chatID] = append(c.messages[chatID], text)
	return nil
}

type fakeTrigger struct {
	jobs map[string]func()
}

func (t *fakeTrigger) Schedule(spec string, job func()) error {
	if t.jobs == nil {
		t.jobs = map[string]func(){}
	}
	t.jobs[spec] = job
	return nil
}

type fakePublisher struct {
	published []model.Notification
	err       error
}

func (p *fakePublisher) PublishNotification(_ context.Context, n model.Notification) error {
	p.published = append(p.published, n)
	return p.err
}

type env struct {
	db            *gorm.DB
	ctx           context.Context
	clock         *fixedClock
	users         *repository.UserRepository
	expenseRepo   *repository.ExpenseRepository
	budgetRepo    *repository.BudgetRepository
	notifRepo     *repository.NotificationRepository
	budgets       *BudgetService
	expenses      *ExpenseService
	goals         *GoalService
	notifications *NotificationService
	auth          *AuthService
}

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(repository.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := &fixedClock{now: now}
	e := &env{
		db:          db,
		ctx:         context.Background(),
		clock:       clock,
		users:       repository.NewUserRepository(db),
		expenseRepo: repository.NewExpenseRepository(db),
		budgetRepo:  repository.NewBudgetRepository(db),
		notifRepo:   repository.NewNotificationRepository(db),
	}
	e.budgets = NewBudgetService(e.budgetRepo, e.expenseRepo)
	e.expenses = NewExpenseService(e.expenseRepo, clock)
	e.goals = NewGoalService(repository.NewGoalRepository(db), clock)
	e.notifications = NewNotificationService(e.notifRepo, clock, nil, nil)
	e.auth = NewAuthService(e.users, repository.NewSessionRepository(db), nil, clock, "", nil)
	return e
}

func (e *env) user(t *testing.T, name string) model.User {
	t.Helper()
	u := model.User{Name: name, Email: strings.ToLower(name) + "@example.com"}
	require.NoError(t, e.users.Create(e.ctx, &u))
	return u
}

func (e *env) expense(t *testing.T, userID uint, amount string, at time.Time) {
	t.Helper()
	a := dec(amount)
	c := model.CategoryFood
	_, err := e.expenses.Create(e.ctx, userID, ExpenseInput{Amount: &a, Category: &c, SpentAt: &at})
	require.NoError(t, err)
}
