package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"walletwatch/internal/bot"
	"walletwatch/internal/config"
	"walletwatch/internal/events"
	"walletwatch/internal/httpapi"
	applog "walletwatch/internal/log"
	"walletwatch/internal/mail"
	"walletwatch/internal/repository"
	"walletwatch/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("WalletWatch stopped", applog.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := applog.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	appLogger := applog.WithComponent(logger, applog.ComponentApp)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	defer sqlDB.Close()

	var mailer service.Mailer
	if cfg.SMTPEnabled() {
		sender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			Secure:   cfg.SMTPSecure,
		}, logger)
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		mailer = sender
	} else {
		appLogger.Warn("SMTP_HOST not set, emails are only logged")
		mailer = mail.NewLogSender(logger)
	}

	var publisher service.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	clock := service.SystemClock{}

	userRepo := repository.NewUserRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authSvc := service.NewAuthService(userRepo, repository.NewSessionRepository(db), mailer, clock, cfg.AppURL, logger)
	expenseSvc := service.NewExpenseService(expenseRepo, clock)
	budgetSvc := service.NewBudgetService(budgetRepo, expenseRepo)
	goalSvc := service.NewGoalService(repository.NewGoalRepository(db), clock)
	notificationSvc := service.NewNotificationService(notificationRepo, clock, publisher, logger)

	var (
		chat        service.ChatNotifier
		telegramBot *bot.Bot
	)
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, userRepo, expenseSvc, budgetSvc, notificationSvc, clock, loc, logger)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		chat = telegramBot
	}

	var googleAuth *service.GoogleAuth
	if cfg.GoogleEnabled() {
		secret, err := stateSecret(cfg.SessionSecret)
		if err != nil {
			return err
		}
		googleAuth = service.NewGoogleAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, secret, authSvc, clock)
	}

	alertSvc := service.NewAlertService(userRepo, budgetSvc, expenseSvc, notificationSvc, mailer, chat, clock, loc, logger)
	scheduler := service.NewSchedulerService(loc, logger)
	if err := alertSvc.Register(scheduler, service.Schedules{
		Report:     cfg.ReportSchedule,
		Reminder:   cfg.ReminderSchedule,
		Overspend:  cfg.OverspendSchedule,
		JobTimeout: cfg.JobTimeout,
	}); err != nil {
		return fmt.Errorf("schedule alerts: %w", err)
	}
	if _, err := scheduler.ScheduleInterval(time.Hour, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := authSvc.CleanExpiredSessions(jobCtx); err != nil {
			appLogger.Error("Clean sessions", applog.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("schedule session cleanup: %w", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpapi.New(httpapi.Deps{
		Auth:          authSvc,
		Google:        googleAuth,
		Expenses:      expenseSvc,
		Budgets:       budgetSvc,
		Goals:         goalSvc,
		Notifications: notificationSvc,
		Logger:        logger,
		Location:      loc,
		AppURL:        cfg.AppURL,
		SecureCookie:  cfg.Production(),
		Health:        sqlDB.PingContext,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		appLogger.Info("Scheduler started", "jobs", scheduler.Entries(), "timezone", loc.String())
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	if telegramBot != nil {
		g.Go(func() error {
			if err := telegramBot.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("bot: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	appLogger.Info("Shutdown complete")
	return nil
}

// stateSecret returns the key OAuth state tokens are signed with. Without
// SESSION_SECRET a random per-process key is used, so pending logins do not
// survive a restart.
func stateSecret(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate state secret: %w", err)
	}
	slog.Warn("SESSION_SECRET not set, using a random OAuth state key")
	return secret, nil
}
