package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	applog "walletwatch/internal/log"
	"walletwatch/internal/mail"
	"walletwatch/internal/model"
	"walletwatch/internal/repository"
)

// SessionTTL is the lifetime of a session; it is extended on use once more
// than half of it has elapsed.
const SessionTTL = 14 * 24 * time.Hour

const maxNameLen = 50

// RegisterInput represents data required to create a local account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Income   decimal.Decimal
}

// AuthService handles local accounts, OAuth-linked accounts and sessions.
type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	mailer   Mailer
	clock    Clock
	appURL   string
	logger   *slog.Logger
}

// NewAuthService accepts a nil mailer, in which case no welcome email is sent.
func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, mailer Mailer, clock Clock, appURL string, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		clock:    clock,
		appURL:   strings.TrimRight(appURL, "/"),
		logger:   applog.WithComponent(logger, applog.ComponentAuth),
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Income.IsNegative() {
		return nil, ErrNegativeAmount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)
	user := model.User{
		Name:         truncate(strings.TrimSpace(input.Name), maxNameLen),
		Email:        email,
		PasswordHash: &hashed,
		Income:       input.Income,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.sendWelcome(ctx, user)
	return &user, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, user model.User) {
	if s.mailer == nil {
		return
	}
	msg, err := mail.Welcome(displayName(user), s.appURL)
	if err == nil {
		_, err = s.mailer.Send(ctx, user.Email, msg.Subject, msg.HTML)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to send welcome email", applog.FieldUserID, user.ID, applog.FieldError, err)
	}
}

// Login checks a local password. Unknown emails, OAuth-only accounts and
// wrong passwords all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// LoginOAuth resolves an external identity: by provider id first, then by
// email (linking the identity), otherwise a new password-less account.
func (s *AuthService) LoginOAuth(ctx context.Context, provider, externalID, email, name string) (*model.User, error) {
	if externalID == "" {
		return nil, ErrUnauthorized
	}
	user, err := s.users.FindByOAuth(ctx, provider, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkOAuth(ctx, user, provider, externalID); err != nil {
			return nil, err
		}
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	user = &model.User{
		Name:          truncate(strings.TrimSpace(name), maxNameLen),
		Email:         email,
		OAuthProvider: provider,
		OAuthID:       externalID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.sendWelcome(ctx, *user)
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// LinkTelegram stores the chat id alerts are copied to. Nil unlinks.
func (s *AuthService) LinkTelegram(ctx context.Context, userID uint, chatID *int64) (*model.User, error) {
	if err := s.users.SetTelegramChat(ctx, userID, chatID); err != nil {
		return nil, notFound(err)
	}
	return s.GetUser(ctx, userID)
}

func (s *AuthService) CreateSession(ctx context.Context, userID uint) (*model.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	session := model.Session{
		Token:        token,
		UserID:       userID,
		ExpiresAt:    now.Add(SessionTTL),
		LastActivity: now,
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Authenticate resolves a session token to its user, extending the session
// when less than half of its lifetime remains.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, *model.Session, error) {
	if token == "" {
		return nil, nil, ErrUnauthorized
	}
	now := s.clock.Now()
	session, err := s.sessions.FindValid(ctx, token, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}

	if session.ExpiresAt.Sub(now) < SessionTTL/2 {
		session.ExpiresAt = now.Add(SessionTTL)
		session.LastActivity = now
		if err := s.sessions.Renew(ctx, token, session.ExpiresAt, now); err != nil {
			return nil, nil, err
		}
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// CleanExpiredSessions removes expired sessions.
func (s *AuthService) CleanExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Removed expired sessions", "count", n)
	}
	return n, nil
}

// ValidatePassword enforces 8-64 characters with at least one digit, one
// uppercase and one lowercase letter.
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 64 {
		return ErrWeakPassword
	}
	var digit, upper, lower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	if !digit || !upper || !lower {
		return ErrWeakPassword
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
