// Package checkout оформляет содержимое корзины в серверную бронь и оплату.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/worldcup-storefront/internal/model"
)

// ServiceFee — фиксированный сервисный сбор, добавляемый к итогу при показе.
// В корзине и в брони не хранится.
const ServiceFee = 5.0

// ErrEmptyCart возвращается при попытке оформить пустую корзину.
var ErrEmptyCart = errors.New("cart is empty")

// BookingAPI описывает операции бронирования удалённого сервера.
type BookingAPI interface {
	AddTicket(ctx context.Context, matchID int64, categoryName model.CategoryName, quantity int) error
	PendingBooking(ctx context.Context) (*model.PendingBooking, error)
	PayPending(ctx context.Context) error
	RemoveTicket(ctx context.Context, ticketID int64) error
}

// Cart — читающий и очищающий доступ к локальной корзине.
type Cart interface {
	Lines() []model.CartLine
	ClearCart()
}

// Service проводит оформление заказа: позиции корзины превращаются в
// серверную бронь, сервер при этом перепроверяет остатки и лимит билетов —
// устаревшие локальные снимки всплывают здесь как ошибки.
type Service struct {
	api  BookingAPI
	cart Cart
}

// NewService создаёт сервис оформления заказа.
func NewService(api BookingAPI, cart Cart) *Service {
	return &Service{
		api:  api,
		cart: cart,
	}
}

// Submit резервирует все позиции корзины на сервере и возвращает
// получившуюся неоплаченную бронь. Корзина при этом не очищается:
// локальное состояние живёт до успешной оплаты.
//
// Резервирование идёт построчно: если очередная позиция отклонена,
// уже зарезервированные остаются в неоплаченной брони на сервере.
// Повторный Submit зарезервирует их ещё раз — перед ретраем бронь
// нужно разобрать через Pending и RemoveTicket.
func (s *Service) Submit(ctx context.Context) (*model.PendingBooking, error) {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	for _, l := range lines {
		if err := s.api.AddTicket(ctx, l.MatchID, l.CategoryName, l.Quantity); err != nil {
			return nil, fmt.Errorf("reserve %s for match %d: %w", l.CategoryName, l.MatchID, err)
		}
	}

	booking, err := s.api.PendingBooking(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pending booking: %w", err)
	}
	return booking, nil
}

// Pending возвращает текущую неоплаченную бронь.
func (s *Service) Pending(ctx context.Context) (*model.PendingBooking, error) {
	return s.api.PendingBooking(ctx)
}

// RemoveTicket убирает билет из неоплаченной брони.
func (s *Service) RemoveTicket(ctx context.Context, ticketID int64) error {
	return s.api.RemoveTicket(ctx, ticketID)
}

// Pay оплачивает бронь. После успешной оплаты локальная корзина очищается.
func (s *Service) Pay(ctx context.Context) error {
	if err := s.api.PayPending(ctx); err != nil {
		return err
	}

	s.cart.ClearCart()
	return nil
}

// DisplayTotal возвращает сумму к оплате с учётом сервисного сбора.
func DisplayTotal(subtotal float64) float64 {
	return subtotal + ServiceFee
}
