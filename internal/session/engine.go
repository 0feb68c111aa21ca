// Package session реализует жизненный цикл пользовательской сессии.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/worldcup-storefront/internal/api"
	"github.com/mmeshcher/worldcup-storefront/internal/model"
)

// ErrSuperseded возвращается, если результат операции пришёл после того,
// как более поздняя операция уже изменила состояние сессии (например,
// logout во время выполняющегося login). Результат при этом отбрасывается.
var ErrSuperseded = errors.New("session operation superseded")

// API описывает операции удалённого сервера, нужные движку сессии.
type API interface {
	SignIn(ctx context.Context, email, password string) (*model.UserProfile, error)
	SignUp(ctx context.Context, req api.SignupRequest) (*model.UserProfile, error)
	SignOut(ctx context.Context) error
	WhoAmI(ctx context.Context) (*model.UserProfile, error)
}

// CartClearer очищает локальную корзину. Корзина привязана к устройству,
// а не к пользователю, поэтому при выходе она не должна достаться
// следующему вошедшему.
type CartClearer interface {
	ClearCart()
}

// Engine владеет текущей идентичностью пользователя. Каждая операция
// получает монотонный номер поколения; результат применяется только если
// номер всё ещё актуален — устаревший ответ сервера не может перезаписать
// более позднее локальное состояние.
type Engine struct {
	mu     sync.Mutex
	api    API
	cart   CartClearer
	logger *zap.Logger

	status model.SessionStatus
	user   *model.UserProfile
	gen    uint64
}

// New создаёт движок сессии в состоянии rehydrating.
func New(apiClient API, cart CartClearer, logger *zap.Logger) *Engine {
	return &Engine{
		api:    apiClient,
		cart:   cart,
		logger: logger,
		status: model.StatusRehydrating,
	}
}

// Initialize восстанавливает сессию при старте процесса. Гарантированно
// выводит сессию из состояния rehydrating ровно один раз, даже если
// обращение к серверу завершилось ошибкой или паникой. Повторные вызовы
// игнорируются.
func (e *Engine) Initialize(ctx context.Context) {
	e.mu.Lock()
	if e.status != model.StatusRehydrating {
		e.mu.Unlock()
		return
	}
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	// страховка от зависания в rehydrating при панике нижнего слоя
	defer e.settle(gen)

	profile, err := e.api.WhoAmI(ctx)
	if err != nil {
		if !errors.Is(err, api.ErrNotAuthenticated) {
			e.logger.Warn("session rehydrate failed, falling back to anonymous", zap.Error(err))
		}
		e.apply(gen, model.StatusAnonymous, nil)
		return
	}

	e.apply(gen, model.StatusAuthed, profile)
}

// Login выполняет вход. При отказе сервера состояние сессии не меняется,
// ошибка возвращается вызывающему для показа в форме.
func (e *Engine) Login(ctx context.Context, email, password string) error {
	gen := e.nextGen()

	profile, err := e.api.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	if !e.apply(gen, model.StatusAuthed, profile) {
		return ErrSuperseded
	}
	return nil
}

// Register регистрирует пользователя; успешная регистрация открывает сессию.
func (e *Engine) Register(ctx context.Context, req api.SignupRequest) error {
	gen := e.nextGen()

	profile, err := e.api.SignUp(ctx, req)
	if err != nil {
		return err
	}

	if !e.apply(gen, model.StatusAuthed, profile) {
		return ErrSuperseded
	}
	return nil
}

// Logout завершает сессию. Серверный sign-out — best effort: его отказ
// не мешает локальному выходу. Локальная корзина очищается всегда.
func (e *Engine) Logout(ctx context.Context) {
	gen := e.nextGen()

	if err := e.api.SignOut(ctx); err != nil {
		e.logger.Warn("remote sign-out failed", zap.Error(err))
	}

	e.apply(gen, model.StatusAnonymous, nil)

	if e.cart != nil {
		e.cart.ClearCart()
	}
}

// State возвращает снимок состояния сессии.
func (e *Engine) State() model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := model.SessionState{Status: e.status}
	if e.user != nil {
		u := *e.user
		state.User = &u
	}
	return state
}

func (e *Engine) nextGen() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	return e.gen
}

// apply записывает результат операции, если её поколение всё ещё последнее.
func (e *Engine) apply(gen uint64, status model.SessionStatus, user *model.UserProfile) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		return false
	}

	e.status = status
	e.user = user
	return true
}

// settle переводит незавершённую регидратацию в anonymous.
func (e *Engine) settle(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen == e.gen && e.status == model.StatusRehydrating {
		e.status = model.StatusAnonymous
		e.user = nil
	}
}
