// Package model содержит доменные сущности клиента магазина билетов.
package model

// CategoryName обозначает категорию билетов на матч.
type CategoryName string

const (
	CategoryVIP CategoryName = "VIP"
	Category1   CategoryName = "CATEGORY_1"
	Category2   CategoryName = "CATEGORY_2"
	Category3   CategoryName = "CATEGORY_3"
)

// CartLine описывает одну позицию корзины: пара (матч, категория).
type CartLine struct {
	MatchID      int64        `json:"matchId"`
	MatchLabel   string       `json:"matchName"`
	CategoryName CategoryName `json:"categoryName"`
	UnitPrice    float64      `json:"price"`
	Quantity     int          `json:"quantity"`
	// AvailableSeats — снимок доступных мест на момент добавления,
	// используется для локальной проверки до следующего обращения к серверу.
	AvailableSeats int `json:"availableSeats"`
}

// SessionStatus описывает состояние пользовательской сессии.
type SessionStatus string

const (
	// StatusRehydrating — идёт восстановление сессии при старте приложения.
	StatusRehydrating SessionStatus = "rehydrating"
	StatusAnonymous   SessionStatus = "anonymous"
	StatusAuthed      SessionStatus = "authenticated"
)

// UserProfile представляет профиль аутентифицированного пользователя.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	BirthDate string `json:"birthDate"`
}

// SessionState — снимок состояния сессии для внешних потребителей.
type SessionState struct {
	Status SessionStatus
	User   *UserProfile
}

// Stadium описывает стадион, на котором проходит матч.
type Stadium struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Capacity int    `json:"capacity"`
}

// Team описывает сборную-участницу турнира.
type Team struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Flag          string `json:"flag"`
	FlagImagePath string `json:"flagImagePath"`
	GroupID       int64  `json:"groupId"`
	Continent     string `json:"continent"`
}

// Group описывает группу турнира.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TicketCategory описывает одну категорию билетов на конкретный матч.
type TicketCategory struct {
	Available      bool    `json:"available"`
	Price          float64 `json:"price"`
	AvailableSeats int     `json:"availableSeats"`
}

// Match описывает матч и доступность билетов по категориям.
type Match struct {
	ID             int64                           `json:"id"`
	HomeTeam       Team                            `json:"homeTeam"`
	AwayTeam       Team                            `json:"awayTeam"`
	Stadium        Stadium                         `json:"stadium"`
	Date           string                          `json:"date"`
	AvailableSeats int                             `json:"availableSeats"`
	Categories     map[CategoryName]TicketCategory `json:"categories,omitempty"`
}

// Label возвращает отображаемое название матча вида "HomeTeam vs AwayTeam".
func (m Match) Label() string {
	return m.HomeTeam.Name + " vs " + m.AwayTeam.Name
}

// TicketStatus описывает статус билета серверной брони.
type TicketStatus string

const (
	TicketStatusPending TicketStatus = "PENDING"
	TicketStatusPaid    TicketStatus = "PAID"
)

// MatchSummary — краткие сведения о матче внутри билета брони.
type MatchSummary struct {
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	Date     string `json:"date"`
}

// Ticket описывает один билет серверной брони.
type Ticket struct {
	ID       int64         `json:"id"`
	MatchID  int64         `json:"matchId"`
	Category CategoryName  `json:"category"`
	Price    float64       `json:"price"`
	Status   TicketStatus  `json:"status"`
	Match    *MatchSummary `json:"match,omitempty"`
}

// PendingBooking описывает неоплаченную бронь пользователя на сервере.
type PendingBooking struct {
	Tickets    []Ticket `json:"tickets"`
	TotalPrice float64  `json:"totalPrice"`
}
