package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/model"
	"walletwatch/internal/repository"
	"walletwatch/internal/service"
)

type testServer struct {
	router        *gin.Engine
	notifications *service.NotificationService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newRateLimitedServer(t, 100)
}

func newRateLimitedServer(t *testing.T, authRate int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(repository.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := service.SystemClock{}
	users := repository.NewUserRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), clock, nil, nil)

	api := New(Deps{
		Auth:          service.NewAuthService(users, repository.NewSessionRepository(db), nil, clock, "http://localhost", nil),
		Expenses:      service.NewExpenseService(expenseRepo, clock),
		Budgets:       service.NewBudgetService(repository.NewBudgetRepository(db), expenseRepo),
		Goals:         service.NewGoalService(repository.NewGoalRepository(db), clock),
		Notifications: notifications,
		Location:      time.UTC,
		AuthRate:      authRate,
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
	return &testServer{router: api.Router(), notifications: notifications}
}

func performRequest(r http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

// signUp registers a user and returns its session cookie.
func (s *testServer) signUp(t *testing.T, email string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Test","email":%q,"password":"Secret123"}`, email)
	rec := performRequest(s.router, http.MethodPost, "/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := performRequest(s.router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := performRequest(s.router, http.MethodPost, "/auth/register",
		`{"name":"Ana","email":"Ana@Example.com","password":"Secret123","income":2500}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "ana@example.com", decode(t, rec)["email"])

	rec = performRequest(s.router, http.MethodGet, "/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode(t, rec)["name"])

	rec = performRequest(s.router, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = performRequest(s.router, http.MethodPost, "/auth/logout", "", cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = performRequest(s.router, http.MethodGet, "/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = performRequest(s.router, http.MethodPost, "/auth/login",
		`{"email":"ana@example.com","password":"Secret123"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionCookie(t, rec)

	rec = performRequest(s.router, http.MethodPost, "/auth/login",
		`{"email":"ana@example.com","password":"Wrong1234"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "dup@example.com")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"duplicate email", `{"email":"dup@example.com","password":"Secret123"}`, http.StatusConflict},
		{"weak password", `{"email":"weak@example.com","password":"secret"}`, http.StatusUnprocessableEntity},
		{"invalid email", `{"email":"not-an-email","password":"Secret123"}`, http.StatusUnprocessableEntity},
		{"missing password", `{"email":"x@example.com"}`, http.StatusBadRequest},
		{"malformed json", `{"email":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performRequest(s.router, http.MethodPost, "/auth/register", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	s := newRateLimitedServer(t, 5)
	body := `{"email":"nobody@example.com","password":"Secret123"}`
	for i := 0; i < 5; i++ {
		rec := performRequest(s.router, http.MethodPost, "/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := performRequest(s.router, http.MethodPost, "/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestBudgetFlow(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signUp(t, "budget@example.com")

	rec := performRequest(s.router, http.MethodPost, "/budgets",
		`{"amount":"100","startDate":"2024-03-01","endDate":"2024-03-31"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budget := decode(t, rec)
	assert.Equal(t, "monthly", budget["type"])
	id := int(budget["id"].(float64))

	rec = performRequest(s.router, http.MethodPost, "/budgets",
		`{"amount":"50","startDate":"2024-03-01","endDate":"2024-03-31"}`, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = performRequest(s.router, http.MethodPost, "/expenses",
		`{"amount":"150","category":"Food & Dining","spentAt":"2024-03-31T22:00:00Z"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = performRequest(s.router, http.MethodGet, fmt.Sprintf("/budgets/%d/usage", id), "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	usage := decode(t, rec)
	assert.Equal(t, "150", usage["spent"])
	assert.Equal(t, "-50", usage["remaining"])
	assert.Equal(t, "150", usage["percentage"])
	assert.Equal(t, true, usage["overspent"])

	rec = performRequest(s.router, http.MethodPut, fmt.Sprintf("/budgets/%d", id), `{"amount":"200"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "200", decode(t, rec)["amount"])

	rec = performRequest(s.router, http.MethodDelete, fmt.Sprintf("/budgets/%d", id), "", cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = performRequest(s.router, http.MethodGet, fmt.Sprintf("/budgets/%d", id), "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetValidation(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signUp(t, "validation@example.com")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"zero amount", `{"amount":"0","startDate":"2024-03-01","endDate":"2024-03-31"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"amount":"-5","startDate":"2024-03-01","endDate":"2024-03-31"}`, http.StatusUnprocessableEntity},
		{"inverted window", `{"amount":"10","startDate":"2024-03-31","endDate":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"missing dates", `{"amount":"10"}`, http.StatusBadRequest},
		{"bad date", `{"amount":"10","startDate":"March","endDate":"2024-03-01"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performRequest(s.router, http.MethodPost, "/budgets", tt.body, cookie)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestResourcesAreScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner@example.com")
	other := s.signUp(t, "other@example.com")

	rec := performRequest(s.router, http.MethodPost, "/expenses",
		`{"amount":"12.50","category":"Transportation"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	path := fmt.Sprintf("/expenses/%d", int(decode(t, rec)["id"].(float64)))

	assert.Equal(t, http.StatusNotFound, performRequest(s.router, http.MethodGet, path, "", other).Code)
	assert.Equal(t, http.StatusNotFound, performRequest(s.router, http.MethodPut, path, `{"amount":"1"}`, other).Code)
	assert.Equal(t, http.StatusNotFound, performRequest(s.router, http.MethodDelete, path, "", other).Code)
	assert.Equal(t, http.StatusOK, performRequest(s.router, http.MethodGet, path, "", owner).Code)

	assert.Equal(t, http.StatusNotFound, performRequest(s.router, http.MethodGet, "/expenses/abc", "", owner).Code)
}

func TestExpenseSummaryAndFilter(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signUp(t, "summary@example.com")

	for _, body := range []string{
		`{"amount":"10","category":"Food & Dining","spentAt":"2024-03-02"}`,
		`{"amount":"5.25","category":"Food & Dining","spentAt":"2024-03-20T08:00:00Z"}`,
		`{"amount":"40","category":"Education","spentAt":"2024-03-10"}`,
		`{"amount":"99","category":"Education","spentAt":"2024-04-01"}`,
	} {
		rec := performRequest(s.router, http.MethodPost, "/expenses", body, cookie)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := performRequest(s.router, http.MethodGet, "/expenses/summary?month=2024-03", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode(t, rec)
	assert.Equal(t, "2024-03", summary["month"])
	assert.Equal(t, "55.25", summary["total"])
	assert.Len(t, summary["categories"], 2)

	rec = performRequest(s.router, http.MethodGet, "/expenses/summary?month=03-2024", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(s.router, http.MethodGet,
		"/expenses?category=Food+%26+Dining&from=2024-03-01&to=2024-03-31", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var expenses []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expenses))
	assert.Len(t, expenses, 2)

	rec = performRequest(s.router, http.MethodGet, "/expenses?category=Nope", "", cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGoalEndpoints(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signUp(t, "goals@example.com")

	rec := performRequest(s.router, http.MethodPost, "/goals",
		`{"title":"Bike","targetAmount":"400","currentAmount":"100","deadline":"2000-01-01"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decode(t, rec)
	assert.Equal(t, true, goal["expired"])
	assert.Equal(t, "active", goal["status"])
	assert.Equal(t, "25", goal["progress"])

	rec = performRequest(s.router, http.MethodPost, "/goals", `{"targetAmount":"400","deadline":"2030-01-01"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(s.router, http.MethodPost, "/goals", `{"title":" ","targetAmount":"400","deadline":"2030-01-01"}`, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = performRequest(s.router, http.MethodGet, "/goals", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var goals []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goals))
	assert.Len(t, goals, 1)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signUp(t, "notify@example.com")

	rec := performRequest(s.router, http.MethodGet, "/me", "", cookie)
	userID := uint(decode(t, rec)["id"].(float64))
	ctx := context.Background()
	_, err := s.notifications.Record(ctx, userID, model.NotificationReminder, "reminder")
	require.NoError(t, err)
	_, err = s.notifications.Record(ctx, userID, model.NotificationReport, "report")
	require.NoError(t, err)

	var list []map[string]any
	rec = performRequest(s.router, http.MethodGet, "/notifications", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = performRequest(s.router, http.MethodGet, "/reports", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "report", list[0]["type"])

	rec = performRequest(s.router, http.MethodGet, "/notifications?type=sms", "", cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLinkTelegram(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signUp(t, "tg@example.com")

	rec := performRequest(s.router, http.MethodPut, "/me/telegram", `{"chatId":424242}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(424242), decode(t, rec)["telegramChatId"])

	rec = performRequest(s.router, http.MethodPut, "/me/telegram", `{"chatId":null}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "telegramChatId")
}

func TestGoogleRoutesOnlyWhenConfigured(t *testing.T) {
	s := newTestServer(t)
	rec := performRequest(s.router, http.MethodGet, "/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", service.ErrBudgetConflict), http.StatusConflict},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrInvalidState, http.StatusUnauthorized},
		{service.ErrMissingFields, http.StatusBadRequest},
		{service.ErrInvalidWindow, http.StatusUnprocessableEntity},
		{service.ErrZeroBudgetAmount, http.StatusUnprocessableEntity},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}

func TestAPITimeParsing(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	var d apiTime
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-05"`), &d))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, loc), *d.in(loc))

	var ts apiTime
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-05T10:00:00Z"`), &ts))
	assert.True(t, ts.in(loc).Equal(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))

	var bad apiTime
	assert.Error(t, json.Unmarshal([]byte(`"05/03/2024"`), &bad))

	var missing *apiTime
	assert.Nil(t, missing.in(loc))
}
