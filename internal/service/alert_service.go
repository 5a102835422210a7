package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	applog "walletwatch/internal/log"
	"walletwatch/internal/mail"
	"walletwatch/internal/model"
	"walletwatch/internal/repository"
)

const (
	JobMonthlyReport = "monthly_report"
	JobDailyReminder = "daily_reminder"
	JobOverspend     = "overspend_check"
)

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) (mail.Receipt, error)
}

// ChatNotifier delivers a short HTML message to a chat.
type ChatNotifier interface {
	SendHTML(ctx context.Context, chatID int64, text string) error
}

// Schedules holds the cron specs of the alert jobs and the per-run timeout.
type Schedules struct {
	Report     string
	Reminder   string
	Overspend  string
	JobTimeout time.Duration
}

func DefaultSchedules() Schedules {
	return Schedules{
		Report:     "0 0 10 1 * *",
		Reminder:   "0 0 20 * * *",
		Overspend:  "0 0 9 * * *",
		JobTimeout: 5 * time.Minute,
	}
}

// BatchResult summarises one run of a job. Sent counts dispatched messages,
// Failed counts users whose step failed.
type BatchResult struct {
	Job    string `json:"job"`
	Users  int    `json:"users"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}

// AlertService runs the all-user batch jobs: monthly report, daily reminder
// and overspend check. Users are processed sequentially, each inside its own
// error boundary.
type AlertService struct {
	users         *repository.UserRepository
	budgets       *BudgetService
	expenses      *ExpenseService
	notifications *NotificationService
	mailer        Mailer
	chat          ChatNotifier
	clock         Clock
	loc           *time.Location
	logger        *slog.Logger
}

// NewAlertService accepts a nil chat notifier when Telegram is disabled.
func NewAlertService(
	users *repository.UserRepository,
	budgets *BudgetService,
	expenses *ExpenseService,
	notifications *NotificationService,
	mailer Mailer,
	chat ChatNotifier,
	clock Clock,
	loc *time.Location,
	logger *slog.Logger,
) *AlertService {
	if loc == nil {
		loc = time.UTC
	}
	return &AlertService{
		users:         users,
		budgets:       budgets,
		expenses:      expenses,
		notifications: notifications,
		mailer:        mailer,
		chat:          chat,
		clock:         clock,
		loc:           loc,
		logger:        applog.WithComponent(logger, applog.ComponentScheduler),
	}
}

// Register wires the three jobs to trigger. Each fire gets its own timeout.
func (s *AlertService) Register(trigger Trigger, sched Schedules) error {
	if sched.JobTimeout <= 0 {
		sched.JobTimeout = DefaultSchedules().JobTimeout
	}
	jobs := []struct {
		spec string
		run  func(context.Context) (BatchResult, error)
	}{
		{sched.Report, s.SendMonthlyReports},
		{sched.Reminder, s.SendDailyReminders},
		{sched.Overspend, s.CheckOverspending},
	}
	for _, job := range jobs {
		run := job.run
		if err := trigger.Schedule(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), sched.JobTimeout)
			defer cancel()
			if _, err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Job aborted", applog.FieldError, err)
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

// SendMonthlyReports mails every user a summary of the previous calendar month.
func (s *AlertService) SendMonthlyReports(ctx context.Context) (BatchResult, error) {
	thisMonth, _ := monthBounds(s.clock.Now().In(s.loc))
	start, end := monthBounds(thisMonth.Add(-time.Nanosecond))
	period := start.Format("January 2006")

	return s.runBatch(ctx, JobMonthlyReport, func(ctx context.Context, user model.User) (int, error) {
		summary, err := s.expenses.MonthlySummary(ctx, user.ID, start)
		if err != nil {
			return 0, fmt.Errorf("summary: %w", err)
		}
		lines, err := s.reportBudgets(ctx, user.ID, start, end)
		if err != nil {
			return 0, err
		}

		msg, err := mail.Report(mail.ReportData{
			Name:       displayName(user),
			Period:     period,
			Total:      summary.Total.StringFixed(2),
			Categories: summary.Categories,
			Budgets:    lines,
		})
		if err != nil {
			return 0, err
		}
		text := fmt.Sprintf("Your monthly budget report for %s has been sent to your email. Total spent: %s.",
			period, summary.Total.StringFixed(2))
		if err := s.deliver(ctx, user, msg, model.NotificationReport, text); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// reportBudgets lists budgets overlapping [start, end] with their usage.
func (s *AlertService) reportBudgets(ctx context.Context, userID uint, start, end time.Time) ([]mail.BudgetLine, error) {
	budgets, err := s.budgets.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("budgets: %w", err)
	}
	var lines []mail.BudgetLine
	for _, b := range budgets {
		if b.StartDate.After(end) || b.EndDate.Before(start) {
			continue
		}
		usage, err := s.budgets.Usage(ctx, b)
		if errors.Is(err, ErrZeroBudgetAmount) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("budget %d usage: %w", b.ID, err)
		}
		lines = append(lines, mail.BudgetLine{
			Start:     b.StartDate.In(s.loc).Format(time.DateOnly),
			End:       b.EndDate.In(s.loc).Format(time.DateOnly),
			Amount:    usage.Amount,
			Spent:     usage.Spent,
			Overspent: usage.Overspent,
		})
	}
	return lines, nil
}

// SendDailyReminders nudges every user to log the day's expenses.
func (s *AlertService) SendDailyReminders(ctx context.Context) (BatchResult, error) {
	return s.runBatch(ctx, JobDailyReminder, func(ctx context.Context, user model.User) (int, error) {
		msg, err := mail.Reminder(displayName(user))
		if err != nil {
			return 0, err
		}
		if err := s.deliver(ctx, user, msg, model.NotificationReminder, "This is your daily budget reminder."); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// CheckOverspending alerts on every overspent budget whose window contains
// the current time.
func (s *AlertService) CheckOverspending(ctx context.Context) (BatchResult, error) {
	now := s.clock.Now()
	return s.runBatch(ctx, JobOverspend, func(ctx context.Context, user model.User) (int, error) {
		budgets, err := s.budgets.ListActive(ctx, user.ID, now)
		if err != nil {
			return 0, fmt.Errorf("budgets: %w", err)
		}
		sent := 0
		for _, b := range budgets {
			usage, err := s.budgets.Usage(ctx, b)
			if errors.Is(err, ErrZeroBudgetAmount) {
				s.logger.WarnContext(ctx, "Skipping budget without amount",
					applog.FieldUserID, user.ID, applog.FieldBudgetID, b.ID)
				continue
			}
			if err != nil {
				return sent, fmt.Errorf("budget %d usage: %w", b.ID, err)
			}
			if !usage.Overspent {
				continue
			}

			msg, err := mail.Overspend(mail.OverspendData{
				Name:       displayName(user),
				Start:      b.StartDate.In(s.loc),
				End:        b.EndDate.In(s.loc),
				Amount:     usage.Amount,
				Spent:      usage.Spent,
				Percentage: usage.Percentage,
			})
			if err != nil {
				return sent, err
			}
			text := fmt.Sprintf("Budget %s to %s exceeded: spent %s of %s (%s%%).",
				b.StartDate.In(s.loc).Format(time.DateOnly),
				b.EndDate.In(s.loc).Format(time.DateOnly),
				usage.Spent.StringFixed(2),
				usage.Amount.StringFixed(2),
				usage.Percentage.StringFixed(2))
			if err := s.deliver(ctx, user, msg, model.NotificationOverspending, text); err != nil {
				return sent, err
			}
			sent++
		}
		return sent, nil
	})
}

// deliver emails the user, copies the text to Telegram when linked, then
// records the notification. The chat copy is best effort.
func (s *AlertService) deliver(ctx context.Context, user model.User, msg mail.Message, kind model.NotificationType, text string) error {
	if _, err := s.mailer.Send(ctx, user.Email, msg.Subject, msg.HTML); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if s.chat != nil && user.TelegramChatID != nil {
		chatText := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(msg.Subject), html.EscapeString(text))
		if err := s.chat.SendHTML(ctx, *user.TelegramChatID, chatText); err != nil {
			s.logger.WarnContext(ctx, "Failed to send chat copy",
				applog.FieldUserID, user.ID, applog.FieldError, err)
		}
	}
	if _, err := s.notifications.Record(ctx, user.ID, kind, text); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func (s *AlertService) runBatch(ctx context.Context, job string, step func(context.Context, model.User) (int, error)) (BatchResult, error) {
	result := BatchResult{Job: job}
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("%s: list users: %w", job, err)
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "Job interrupted", applog.FieldJob, job, "processed", result.Users, applog.FieldError, err)
			return result, err
		}
		result.Users++
		sent, err := runPerUser(ctx, user, step)
		result.Sent += sent
		if err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "Job step failed",
				applog.FieldJob, job,
				applog.FieldUserID, user.ID,
				applog.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "Job finished",
		applog.FieldJob, job,
		"users", result.Users,
		"sent", result.Sent,
		"failed", result.Failed)
	return result, nil
}

// runPerUser isolates one user's step, turning a panic into an error.
func runPerUser(ctx context.Context, user model.User, step func(context.Context, model.User) (int, error)) (sent int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step(ctx, user)
}

func displayName(u model.User) string {
	if u.Name != "" {
		return u.Name
	}
	return "there"
}
