package stub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/worldcup-storefront/internal/cart"
	"github.com/mmeshcher/worldcup-storefront/internal/model"
	"github.com/mmeshcher/worldcup-storefront/internal/validation"
)

// envelope — общий формат ответов API: {success, message, data}.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

type account struct {
	profile      model.UserProfile
	passwordHash []byte
}

// Server — заглушка сервера магазина билетов: пользователи, матчи и брони
// живут в памяти. Остатки мест уменьшаются при резервировании и
// возвращаются при удалении билета из неоплаченной брони.
type Server struct {
	mu     sync.Mutex
	logger *zap.Logger
	auth   *authMiddleware

	teams   []model.Team
	groups  []model.Group
	matches []model.Match
	stock   map[int64]map[model.CategoryName]*categoryStock

	accounts     map[string]*account // ключ — email
	tickets      map[string][]model.Ticket
	nextUserID   int64
	nextTicketID int64
}

// NewServer создаёт заглушку с предзаполненным турниром.
func NewServer(secret string, logger *zap.Logger) *Server {
	teams := seedTeams()
	matches := seedMatches(teams)

	return &Server{
		logger:   logger,
		auth:     newAuthMiddleware(secret),
		teams:    teams,
		groups:   seedGroups(),
		matches:  matches,
		stock:    seedStock(matches),
		accounts: make(map[string]*account),
		tickets:  make(map[string][]model.Ticket),
	}
}

// Router настраивает HTTP-маршруты заглушки.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestLogger(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/signout", s.handleSignOut)

		r.Get("/matches/availability", s.handleMatches)
		r.Get("/matches/{id}", s.handleMatchByID)
		r.Get("/matches/{id}/availability", s.handleMatchAvailability)
		r.Get("/teams", s.handleTeams)
		r.Get("/groups", s.handleGroups)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.middleware)

			r.Get("/auth/me", s.handleMe)

			r.Post("/tickets", s.handleAddTicket)
			r.Get("/tickets", s.handleMyTickets)
			r.Get("/tickets/pending", s.handlePendingTickets)
			r.Post("/tickets/pay-pending", s.handlePayPending)
			r.Delete("/tickets/{id}", s.handleRemoveTicket)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	return r
}

// requestLogger логирует каждый запрос к заглушке.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("stub request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	BirthDate string `json:"birthDate"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !validation.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if !validation.IsValidPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "password is too short")
		return
	}
	if !validation.IsValidBirthDate(req.BirthDate) {
		writeError(w, http.StatusBadRequest, "invalid birth date")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	s.nextUserID++
	acc := &account{
		profile: model.UserProfile{
			ID:        strconv.FormatInt(s.nextUserID, 10),
			Email:     req.Email,
			Firstname: req.Firstname,
			Lastname:  req.Lastname,
			BirthDate: req.BirthDate,
		},
		passwordHash: hashPassword(req.Email, req.Password),
	}
	s.accounts[req.Email] = acc
	s.mu.Unlock()

	s.auth.setSessionCookie(w, req.Email)
	writeData(w, http.StatusCreated, map[string]any{"user": acc.profile})
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	s.mu.Unlock()

	if !ok || hex.EncodeToString(acc.passwordHash) != hex.EncodeToString(hashPassword(req.Email, req.Password)) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.auth.setSessionCookie(w, req.Email)
	writeData(w, http.StatusOK, map[string]any{"user": acc.profile})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s.mu.Lock()
	acc, exists := s.accounts[email]
	s.mu.Unlock()

	if !exists {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	writeData(w, http.StatusOK, map[string]any{"user": acc.profile})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		m.AvailableSeats = s.totalSeats(m.ID)
		out = append(out, m)
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) handleMatchByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.ID == id {
			m.AvailableSeats = s.totalSeats(m.ID)
			writeData(w, http.StatusOK, m)
			return
		}
	}

	writeError(w, http.StatusNotFound, "match not found")
}

func (s *Server) handleMatchAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	categories, ok := s.stock[id]
	if !ok {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}

	out := make(map[model.CategoryName]model.TicketCategory, len(categories))
	total := 0
	for name, cs := range categories {
		out[name] = model.TicketCategory{
			Available:      cs.seats > 0,
			Price:          cs.price,
			AvailableSeats: cs.seats,
		}
		total += cs.seats
	}

	writeData(w, http.StatusOK, map[string]any{
		"categories":          out,
		"totalAvailableSeats": total,
	})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.teams)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.groups)
}

type addTicketRequest struct {
	MatchID  int64              `json:"matchId"`
	Category model.CategoryName `json:"category"`
	Quantity int                `json:"quantity"`
}

func (s *Server) handleAddTicket(w http.ResponseWriter, r *http.Request) {
	email, _ := userIDFromContext(r.Context())

	var req addTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	categories, ok := s.stock[req.MatchID]
	if !ok {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	cs, ok := categories[req.Category]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown ticket category")
		return
	}

	pendingForMatch := 0
	for _, t := range s.tickets[email] {
		if t.MatchID == req.MatchID && t.Status == model.TicketStatusPending {
			pendingForMatch++
		}
	}
	if pendingForMatch+req.Quantity > cart.MaxTicketsPerMatch {
		writeError(w, http.StatusConflict, "per-match ticket limit exceeded")
		return
	}

	if cs.seats < req.Quantity {
		writeError(w, http.StatusConflict, "not enough seats available")
		return
	}

	match := s.matchByID(req.MatchID)
	cs.seats -= req.Quantity

	for i := 0; i < req.Quantity; i++ {
		s.nextTicketID++
		ticket := model.Ticket{
			ID:       s.nextTicketID,
			MatchID:  req.MatchID,
			Category: req.Category,
			Price:    cs.price,
			Status:   model.TicketStatusPending,
		}
		if match != nil {
			ticket.Match = &model.MatchSummary{
				HomeTeam: match.HomeTeam.Name,
				AwayTeam: match.AwayTeam.Name,
				Date:     match.Date,
			}
		}
		s.tickets[email] = append(s.tickets[email], ticket)
	}

	writeData(w, http.StatusCreated, nil)
}

func (s *Server) handleMyTickets(w http.ResponseWriter, r *http.Request) {
	email, _ := userIDFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := s.tickets[email]
	out := make([]model.Ticket, len(tickets))
	copy(out, tickets)

	writeData(w, http.StatusOK, out)
}

func (s *Server) handlePendingTickets(w http.ResponseWriter, r *http.Request) {
	email, _ := userIDFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	booking := model.PendingBooking{Tickets: []model.Ticket{}}
	for _, t := range s.tickets[email] {
		if t.Status == model.TicketStatusPending {
			booking.Tickets = append(booking.Tickets, t)
			booking.TotalPrice += t.Price
		}
	}

	writeData(w, http.StatusOK, booking)
}

func (s *Server) handlePayPending(w http.ResponseWriter, r *http.Request) {
	email, _ := userIDFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	paid := 0
	for i, t := range s.tickets[email] {
		if t.Status == model.TicketStatusPending {
			s.tickets[email][i].Status = model.TicketStatusPaid
			paid++
		}
	}

	if paid == 0 {
		writeError(w, http.StatusConflict, "no pending booking")
		return
	}

	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleRemoveTicket(w http.ResponseWriter, r *http.Request) {
	email, _ := userIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := s.tickets[email]
	for i, t := range tickets {
		if t.ID == id && t.Status == model.TicketStatusPending {
			// место возвращается в продажу
			if cs, ok := s.stock[t.MatchID][t.Category]; ok {
				cs.seats++
			}
			s.tickets[email] = append(tickets[:i], tickets[i+1:]...)
			writeData(w, http.StatusOK, nil)
			return
		}
	}

	writeError(w, http.StatusNotFound, "ticket not found")
}

// totalSeats вызывается под мьютексом.
func (s *Server) totalSeats(matchID int64) int {
	total := 0
	for _, cs := range s.stock[matchID] {
		total += cs.seats
	}
	return total
}

// matchByID вызывается под мьютексом.
func (s *Server) matchByID(matchID int64) *model.Match {
	for i := range s.matches {
		if s.matches[i].ID == matchID {
			return &s.matches[i]
		}
	}
	return nil
}
