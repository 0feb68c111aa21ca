// Package api предоставляет клиент HTTP API магазина билетов.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/worldcup-storefront/internal/model"
)

// ErrUnavailable возвращается при сетевых сбоях и таймаутах обращения к API.
var (
	ErrUnavailable = errors.New("ticketing api unavailable")
	// ErrNotAuthenticated возвращается, если у запроса нет активной сессии.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Error — отказ, полученный от сервера, с сообщением, пригодным для показа
// пользователю (неверные учётные данные, занятый email и т.п.).
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error: status %d", e.Status)
}

// envelope — общий формат ответов API: {success, message, data}.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type profileData struct {
	User model.UserProfile `json:"user"`
}

type availabilityData struct {
	Categories          map[model.CategoryName]model.TicketCategory `json:"categories"`
	TotalAvailableSeats int                                         `json:"totalAvailableSeats"`
}

// SignupRequest содержит данные формы регистрации.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	BirthDate string `json:"birthDate,omitempty"`
}

// Client инкапсулирует HTTP-взаимодействие с сервером магазина билетов.
// Сессия держится в cookie jar, поэтому экземпляр клиента соответствует
// одной пользовательской сессии. Ретраи сетевых сбоев — зона ответственности
// клиента как внешнего коллаборатора, движки их не дублируют.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент API по указанному адресу. Cookie сессии живут
// в памяти и умирают вместе с процессом.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return newClient(baseURL, timeout, jar)
}

// NewPersistentClient создаёт клиент API, сохраняющий cookie сессии в файле
// sessionFile: сессия переживает перезапуск процесса, поэтому вход и,
// например, оплата могут происходить в разных вызовах CLI.
func NewPersistentClient(baseURL string, timeout time.Duration, sessionFile string) (*Client, error) {
	if sessionFile == "" {
		return nil, errors.New("session file path is empty")
	}

	jar, err := newSessionJar(sessionFile)
	if err != nil {
		return nil, err
	}

	return newClient(baseURL, timeout, jar)
}

func newClient(baseURL string, timeout time.Duration, jar http.CookieJar) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("api address is empty")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	rc.HTTPClient.Jar = jar

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}, nil
}

func (c *Client) url(path string) string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + "/api" + path
}

// do выполняет запрос и раскладывает ответ: сетевая ошибка становится
// ErrUnavailable, не-2xx статус — *Error с сообщением сервера, успешный
// ответ декодируется из поля data конверта в out (если out != nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// SignIn выполняет вход по email и паролю, сервер устанавливает cookie сессии.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.UserProfile, error) {
	body := map[string]string{"email": email, "password": password}

	var data profileData
	if err := c.do(ctx, http.MethodPost, "/auth/signin", body, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// SignUp регистрирует нового пользователя и сразу открывает сессию.
func (c *Client) SignUp(ctx context.Context, req SignupRequest) (*model.UserProfile, error) {
	var data profileData
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// SignOut завершает сессию на сервере.
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/signout", nil, nil)
}

// WhoAmI возвращает профиль владельца текущей сессии.
// Отсутствие сессии транслируется в ErrNotAuthenticated.
func (c *Client) WhoAmI(ctx context.Context) (*model.UserProfile, error) {
	var data profileData
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &data); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	return &data.User, nil
}

// Matches возвращает список матчей с общим количеством доступных мест.
func (c *Client) Matches(ctx context.Context) ([]model.Match, error) {
	var matches []model.Match
	if err := c.do(ctx, http.MethodGet, "/matches/availability", nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// MatchDetails собирает карточку матча: сам матч и доступность по категориям
// запрашиваются параллельно и объединяются в одну структуру.
func (c *Client) MatchDetails(ctx context.Context, matchID int64) (*model.Match, error) {
	var (
		match        model.Match
		availability availabilityData
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.do(gctx, http.MethodGet, fmt.Sprintf("/matches/%d", matchID), nil, &match)
	})
	g.Go(func() error {
		return c.do(gctx, http.MethodGet, fmt.Sprintf("/matches/%d/availability", matchID), nil, &availability)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	match.Categories = availability.Categories
	match.AvailableSeats = availability.TotalAvailableSeats
	return &match, nil
}

// CategoryStock возвращает актуальный остаток мест в категории матча.
func (c *Client) CategoryStock(ctx context.Context, matchID int64, categoryName model.CategoryName) (int, error) {
	var availability availabilityData
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/matches/%d/availability", matchID), nil, &availability); err != nil {
		return 0, err
	}

	cat, ok := availability.Categories[categoryName]
	if !ok {
		return 0, fmt.Errorf("unknown category %s for match %d", categoryName, matchID)
	}
	return cat.AvailableSeats, nil
}

// Teams возвращает список сборных.
func (c *Client) Teams(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// Groups возвращает список групп турнира.
func (c *Client) Groups(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddTicket резервирует билеты в неоплаченной брони текущего пользователя.
func (c *Client) AddTicket(ctx context.Context, matchID int64, categoryName model.CategoryName, quantity int) error {
	body := map[string]any{
		"matchId":  matchID,
		"category": categoryName,
		"quantity": quantity,
	}
	return c.do(ctx, http.MethodPost, "/tickets", body, nil)
}

// PendingBooking возвращает неоплаченную бронь текущего пользователя.
func (c *Client) PendingBooking(ctx context.Context) (*model.PendingBooking, error) {
	var booking model.PendingBooking
	if err := c.do(ctx, http.MethodGet, "/tickets/pending", nil, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// PayPending оплачивает неоплаченную бронь.
func (c *Client) PayPending(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/tickets/pay-pending", nil, nil)
}

// MyTickets возвращает все билеты пользователя.
func (c *Client) MyTickets(ctx context.Context) ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := c.do(ctx, http.MethodGet, "/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// RemoveTicket удаляет билет из неоплаченной брони.
func (c *Client) RemoveTicket(ctx context.Context, ticketID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tickets/%d", ticketID), nil, nil)
}
