// Package cart реализует движок корзины с проверкой лимитов и остатков.
package cart

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/worldcup-storefront/internal/model"
)

// MaxTicketsPerMatch — максимум билетов на один матч суммарно по всем категориям.
const MaxTicketsPerMatch = 6

// ErrLimitExceeded возвращается, если операция превысила бы лимит билетов на матч.
var (
	ErrLimitExceeded = errors.New("per-match ticket limit exceeded")
	// ErrStockExceeded возвращается, если запрошенное количество превышает
	// последний известный остаток мест в категории.
	ErrStockExceeded = errors.New("not enough seats available")
)

// Store описывает контракт локального хранилища корзины.
type Store interface {
	Load() ([]model.CartLine, error)
	Save([]model.CartLine) error
}

// Engine владеет списком позиций корзины. Все мутации сериализуются
// мьютексом и сохраняются в Store; отказ хранилища не отменяет мутацию —
// корзина продолжает жить в памяти до конца сеанса.
type Engine struct {
	mu     sync.Mutex
	store  Store
	logger *zap.Logger
	lines  []model.CartLine
}

// New создаёт движок корзины и загружает сохранённое состояние.
// Ошибка чтения хранилища логируется, движок стартует с пустой корзиной.
func New(store Store, logger *zap.Logger) *Engine {
	e := &Engine{
		store:  store,
		logger: logger,
	}

	if store != nil {
		lines, err := store.Load()
		if err != nil {
			logger.Error("load cart state", zap.Error(err))
		} else {
			e.lines = lines
		}
	}

	return e
}

// AddToCart добавляет один билет категории categoryName на матч matchID.
// unitPrice и availableSeats фиксируются в позиции как снимок на момент
// добавления. Сервер остаётся источником истины по остаткам: успешное
// локальное добавление не гарантирует успеха оформления заказа.
func (e *Engine) AddToCart(matchID int64, matchLabel string, categoryName model.CategoryName, unitPrice float64, availableSeats int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.matchTotal(matchID) >= MaxTicketsPerMatch {
		return ErrLimitExceeded
	}

	idx := e.findLine(matchID, categoryName)

	currentQty := 0
	if idx >= 0 {
		currentQty = e.lines[idx].Quantity
	}
	if currentQty+1 > availableSeats {
		return ErrStockExceeded
	}

	if idx >= 0 {
		e.lines[idx].Quantity++
		e.lines[idx].UnitPrice = unitPrice
		e.lines[idx].AvailableSeats = availableSeats
	} else {
		e.lines = append(e.lines, model.CartLine{
			MatchID:        matchID,
			MatchLabel:     matchLabel,
			CategoryName:   categoryName,
			UnitPrice:      unitPrice,
			Quantity:       1,
			AvailableSeats: availableSeats,
		})
	}

	e.persist()
	return nil
}

// UpdateQuantity устанавливает количество билетов в позиции.
// Отсутствующая позиция — успешный no-op; количество <= 0 удаляет позицию.
func (e *Engine) UpdateQuantity(matchID int64, categoryName model.CategoryName, newQuantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findLine(matchID, categoryName)
	if idx < 0 {
		return nil
	}

	otherTotal := e.matchTotal(matchID) - e.lines[idx].Quantity
	if otherTotal+newQuantity > MaxTicketsPerMatch {
		return ErrLimitExceeded
	}

	if newQuantity > e.lines[idx].AvailableSeats {
		return ErrStockExceeded
	}

	if newQuantity <= 0 {
		e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	} else {
		e.lines[idx].Quantity = newQuantity
	}

	e.persist()
	return nil
}

// RemoveFromCart удаляет позицию, если она есть. Повторный вызов — no-op
// без обращения к хранилищу.
func (e *Engine) RemoveFromCart(matchID int64, categoryName model.CategoryName) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findLine(matchID, categoryName)
	if idx < 0 {
		return
	}

	e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	e.persist()
}

// ClearCart опустошает корзину.
func (e *Engine) ClearCart() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lines = nil
	e.persist()
}

// Lines возвращает копию позиций корзины в порядке добавления.
func (e *Engine) Lines() []model.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.CartLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// TicketCount возвращает суммарное количество билетов в корзине.
func (e *Engine) TicketCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for _, l := range e.lines {
		total += l.Quantity
	}
	return total
}

// Subtotal возвращает сумму корзины без сервисного сбора.
func (e *Engine) Subtotal() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var total float64
	for _, l := range e.lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

func (e *Engine) findLine(matchID int64, categoryName model.CategoryName) int {
	for i, l := range e.lines {
		if l.MatchID == matchID && l.CategoryName == categoryName {
			return i
		}
	}
	return -1
}

func (e *Engine) matchTotal(matchID int64) int {
	total := 0
	for _, l := range e.lines {
		if l.MatchID == matchID {
			total += l.Quantity
		}
	}
	return total
}

// persist вызывается под мьютексом после каждой мутации.
func (e *Engine) persist() {
	if e.store == nil {
		return
	}

	snapshot := make([]model.CartLine, len(e.lines))
	copy(snapshot, e.lines)

	if err := e.store.Save(snapshot); err != nil {
		e.logger.Error("save cart state", zap.Error(err))
	}
}
