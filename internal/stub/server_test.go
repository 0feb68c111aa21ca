package stub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/worldcup-storefront/internal/api"
	"github.com/mmeshcher/worldcup-storefront/internal/cart"
	"github.com/mmeshcher/worldcup-storefront/internal/checkout"
	"github.com/mmeshcher/worldcup-storefront/internal/model"
	"github.com/mmeshcher/worldcup-storefront/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	srv := NewServer("test-secret", zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return ts, &http.Client{Jar: jar}
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (int, testEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env testEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))

	return resp.StatusCode, env
}

func signUp(t *testing.T, client *http.Client, baseURL, email string) {
	t.Helper()

	status, _ := doJSON(t, client, http.MethodPost, baseURL+"/api/auth/signup", map[string]string{
		"email":     email,
		"password":  "correct-horse",
		"firstname": "Ivan",
		"lastname":  "Petrov",
	})
	require.Equal(t, http.StatusCreated, status)
}

func TestSignUpAndMe(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	status, env := doJSON(t, client, http.MethodGet, ts.URL+"/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)

	var data struct {
		User model.UserProfile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ivan@example.com", data.User.Email)
	assert.NotEmpty(t, data.User.ID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup", map[string]string{
		"email":    "ivan@example.com",
		"password": "another-pass",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already registered", env.Message)
}

func TestSignUpValidation(t *testing.T) {
	ts, client := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{
			name: "invalid email",
			body: map[string]string{"email": "not-an-email", "password": "correct-horse"},
		},
		{
			name: "short password",
			body: map[string]string{"email": "ok@example.com", "password": "short"},
		},
		{
			name: "future birth date",
			body: map[string]string{"email": "ok@example.com", "password": "correct-horse", "birthDate": "2100-01-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
		})
	}
}

func TestSignInWrongPassword(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signin", map[string]string{
		"email":    "ivan@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", env.Message)
}

func TestProtectedWithoutSession(t *testing.T) {
	ts, _ := newTestServer(t)

	// клиент без cookie jar — запрос без сессии
	status, env := doJSON(t, http.DefaultClient, http.MethodGet, ts.URL+"/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not authenticated", env.Message)
}

func TestSignOutClearsSession(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signout", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, client, http.MethodGet, ts.URL+"/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMatchAvailability(t *testing.T) {
	ts, client := newTestServer(t)

	status, env := doJSON(t, client, http.MethodGet, ts.URL+"/api/matches/42/availability", nil)
	require.Equal(t, http.StatusOK, status)

	var data struct {
		Categories          map[model.CategoryName]model.TicketCategory `json:"categories"`
		TotalAvailableSeats int                                         `json:"totalAvailableSeats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	assert.Equal(t, 360, data.TotalAvailableSeats)
	assert.Equal(t, 10, data.Categories[model.CategoryVIP].AvailableSeats)
	assert.Equal(t, 250.0, data.Categories[model.CategoryVIP].Price)
	assert.True(t, data.Categories[model.Category3].Available)
}

func TestMatchNotFound(t *testing.T) {
	ts, client := newTestServer(t)

	status, _ := doJSON(t, client, http.MethodGet, ts.URL+"/api/matches/99999", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAddTicketEnforcesLimitAndStock(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	addTicket := func(matchID int64, category model.CategoryName, quantity int) (int, testEnvelope) {
		return doJSON(t, client, http.MethodPost, ts.URL+"/api/tickets", map[string]any{
			"matchId":  matchID,
			"category": category,
			"quantity": quantity,
		})
	}

	status, _ := addTicket(42, model.Category1, 6)
	require.Equal(t, http.StatusCreated, status)

	// лимит на матч считается по всем категориям вместе
	status, env := addTicket(42, model.CategoryVIP, 1)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "per-match ticket limit exceeded", env.Message)

	// другой матч лимитом первого не ограничен
	status, _ = addTicket(7, model.CategoryVIP, 2)
	assert.Equal(t, http.StatusCreated, status)

	// запрос больше остатка: на VIP всего 10 мест
	status, env = addTicket(9, model.CategoryVIP, 11)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "not enough seats available", env.Message)
}

func TestAddTicketDecrementsStock(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/tickets", map[string]any{
		"matchId":  42,
		"category": model.CategoryVIP,
		"quantity": 4,
	})
	require.Equal(t, http.StatusCreated, status)

	_, env := doJSON(t, client, http.MethodGet, ts.URL+"/api/matches/42/availability", nil)

	var data struct {
		Categories map[model.CategoryName]model.TicketCategory `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 6, data.Categories[model.CategoryVIP].AvailableSeats)
}

func TestRemoveTicketRestoresStock(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/tickets", map[string]any{
		"matchId":  42,
		"category": model.CategoryVIP,
		"quantity": 1,
	})
	require.Equal(t, http.StatusCreated, status)

	_, env := doJSON(t, client, http.MethodGet, ts.URL+"/api/tickets/pending", nil)

	var booking model.PendingBooking
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	require.Len(t, booking.Tickets, 1)

	status, _ = doJSON(t, client, http.MethodDelete,
		fmt.Sprintf("%s/api/tickets/%d", ts.URL, booking.Tickets[0].ID), nil)
	require.Equal(t, http.StatusOK, status)

	_, env = doJSON(t, client, http.MethodGet, ts.URL+"/api/matches/42/availability", nil)

	var data struct {
		Categories map[model.CategoryName]model.TicketCategory `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 10, data.Categories[model.CategoryVIP].AvailableSeats)
}

func TestPayPendingWithoutBooking(t *testing.T) {
	ts, client := newTestServer(t)

	signUp(t, client, ts.URL, "ivan@example.com")

	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/tickets/pay-pending", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "no pending booking", env.Message)
}

type memStore struct {
	lines []model.CartLine
}

func (s *memStore) Load() ([]model.CartLine, error) { return s.lines, nil }

func (s *memStore) Save(lines []model.CartLine) error {
	s.lines = lines
	return nil
}

// TestSessionSurvivesClientRestart имитирует два вызова CLI: вход в одном
// процессе, восстановление сессии из файла — в следующем.
func TestSessionSurvivesClientRestart(t *testing.T) {
	srv := NewServer("test-secret", zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	logger := zap.NewNop()

	first, err := api.NewPersistentClient(ts.URL, 5*time.Second, sessionFile)
	require.NoError(t, err)

	firstSession := session.New(first, cart.New(&memStore{}, logger), logger)
	firstSession.Initialize(context.Background())
	require.NoError(t, firstSession.Register(context.Background(), api.SignupRequest{
		Email:    "returning@example.com",
		Password: "correct-horse",
	}))

	// "новый процесс": другой клиент, тот же файл сессии
	second, err := api.NewPersistentClient(ts.URL, 5*time.Second, sessionFile)
	require.NoError(t, err)

	secondSession := session.New(second, cart.New(&memStore{}, logger), logger)
	secondSession.Initialize(context.Background())

	state := secondSession.State()
	require.Equal(t, model.StatusAuthed, state.Status)
	require.NotNil(t, state.User)
	assert.Equal(t, "returning@example.com", state.User.Email)
}

// TestFullPurchaseFlow проводит полный сценарий покупки через реальные
// движки поверх заглушки: регистрация, корзина, бронь, оплата.
func TestFullPurchaseFlow(t *testing.T) {
	srv := NewServer("test-secret", zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client, err := api.NewClient(ts.URL, 5*time.Second)
	require.NoError(t, err)

	logger := zap.NewNop()
	cartEngine := cart.New(&memStore{}, logger)
	sess := session.New(client, cartEngine, logger)

	ctx := context.Background()

	sess.Initialize(ctx)
	require.Equal(t, model.StatusAnonymous, sess.State().Status)

	err = sess.Register(ctx, api.SignupRequest{
		Email:     "buyer@example.com",
		Password:  "correct-horse",
		Firstname: "Anna",
		Lastname:  "Sidorova",
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusAuthed, sess.State().Status)

	match, err := client.MatchDetails(ctx, 42)
	require.NoError(t, err)

	vip := match.Categories[model.CategoryVIP]
	cat1 := match.Categories[model.Category1]

	require.NoError(t, cartEngine.AddToCart(match.ID, match.Label(), model.CategoryVIP, vip.Price, vip.AvailableSeats))
	require.NoError(t, cartEngine.AddToCart(match.ID, match.Label(), model.CategoryVIP, vip.Price, vip.AvailableSeats))
	require.NoError(t, cartEngine.AddToCart(match.ID, match.Label(), model.Category1, cat1.Price, cat1.AvailableSeats))

	assert.Equal(t, 3, cartEngine.TicketCount())
	assert.InDelta(t, 620.0, cartEngine.Subtotal(), 0.001)

	co := checkout.NewService(client, cartEngine)

	booking, err := co.Submit(ctx)
	require.NoError(t, err)
	require.Len(t, booking.Tickets, 3)
	assert.InDelta(t, 620.0, booking.TotalPrice, 0.001)

	// корзина живёт до оплаты
	assert.Equal(t, 3, cartEngine.TicketCount())

	require.NoError(t, co.Pay(ctx))
	assert.Equal(t, 0, cartEngine.TicketCount())

	tickets, err := client.MyTickets(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	for _, tk := range tickets {
		assert.Equal(t, model.TicketStatusPaid, tk.Status)
	}

	sess.Logout(ctx)
	assert.Equal(t, model.StatusAnonymous, sess.State().Status)

	_, err = client.WhoAmI(ctx)
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)
}
