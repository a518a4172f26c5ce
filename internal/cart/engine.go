package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Listener получает новое состояние после каждого перехода.
type Listener func(state domain.CartState)

// Engine — владелец состояния корзины одной пользовательской сессии.
// Все изменения проходят через Dispatch; каждый переход планирует фоновую запись в хранилище.
type Engine struct {
	mu        sync.Mutex
	state     domain.CartState
	persister *Persister
	closed    bool

	listeners    map[int]Listener
	nextListener int

	logger  *log.Entry
	metrics *metrics.StorefrontMetrics
	now     func() time.Time
}

// Option настраивает Engine.
type Option func(*Engine)

// WithPersister включает сохранение состояния.
func WithPersister(p *Persister) Option {
	return func(e *Engine) {
		e.persister = p
	}
}

// WithLogger задаёт логгер движка.
func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics включает метрики переходов.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock подменяет источник времени (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine создаёт движок с пустой корзиной.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		listeners: make(map[int]Listener),
		logger:    log.New().WithField("component", "cart-engine"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = recalculate(domain.CartState{
		Items:       []domain.CartLine{},
		LastUpdated: e.now(),
	})
	return e
}

// Hydrate загружает сохранённое состояние. Пока идёт загрузка, IsLoading=true.
// Ошибка чтения оставляет пустую корзину и возвращается вызывающему.
func (e *Engine) Hydrate(ctx context.Context) error {
	if e.persister == nil {
		return nil
	}

	e.mu.Lock()
	e.state.IsLoading = true
	e.mu.Unlock()

	items, meta, found, err := e.persister.Load(ctx)

	e.mu.Lock()
	if err != nil || !found {
		e.state.IsLoading = false
		e.mu.Unlock()
		if err != nil {
			return fmt.Errorf("hydrate cart: %w", err)
		}
		return nil
	}
	e.state = Reduce(e.state, restore{items: items, meta: meta}, e.now())
	state := e.state.Clone()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	e.logger.WithFields(log.Fields{
		"items":      len(state.Items),
		"item_count": state.ItemCount,
	}).Debug("cart hydrated")
	notify(listeners, state)
	return nil
}

// Dispatch применяет действие и возвращает новое состояние. Переход никогда не завершается ошибкой.
// Действие без изменений не сохраняется и не оповещает слушателей.
func (e *Engine) Dispatch(action Action) domain.CartState {
	e.mu.Lock()
	prev := e.state
	e.state = Reduce(prev, action, e.now())
	state := e.state.Clone()
	changed := Changed(prev, state)
	if changed && e.persister != nil && !e.closed {
		e.persister.Schedule(state)
	}
	var listeners []Listener
	if changed {
		listeners = e.snapshotListeners()
	}
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordCartTransition(action.Kind())
	}
	e.logger.WithFields(log.Fields{
		"action":     action.Kind(),
		"changed":    changed,
		"item_count": state.ItemCount,
		"total":      state.Total.StringFixed(2),
	}).Debug("cart transition")

	notify(listeners, state)
	return state
}

// State возвращает копию текущего состояния.
func (e *Engine) State() domain.CartState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Subscribe регистрирует слушателя и возвращает функцию отписки.
func (e *Engine) Subscribe(fn Listener) func() {
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []Listener, state domain.CartState) {
	for _, l := range listeners {
		l(state.Clone())
	}
}

// AddLine добавляет товар в корзину.
func (e *Engine) AddLine(line domain.CartLine) domain.CartState {
	return e.Dispatch(AddLine{
		ID:        line.ID,
		Name:      line.Name,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
		ImageRef:  line.ImageRef,
	})
}

// RemoveLine удаляет позицию.
func (e *Engine) RemoveLine(id string) domain.CartState {
	return e.Dispatch(RemoveLine{ID: id})
}

// SetQuantity выставляет количество позиции.
func (e *Engine) SetQuantity(id string, quantity int) domain.CartState {
	return e.Dispatch(SetQuantity{ID: id, Quantity: quantity})
}

// Clear очищает корзину.
func (e *Engine) Clear() domain.CartState {
	return e.Dispatch(Clear{})
}

// ApplyCoupon рассчитывает скидку по купону от текущей суммы и применяет её.
func (e *Engine) ApplyCoupon(coupon pricing.Coupon) (decimal.Decimal, error) {
	discount, err := coupon.Discount(e.State().Subtotal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("apply coupon %s: %w", coupon.Code, err)
	}
	e.Dispatch(ApplyDiscount{Amount: discount})
	return discount, nil
}

// ApplyShippingRule выставляет доставку по правилу для текущей суммы.
func (e *Engine) ApplyShippingRule(rule pricing.ShippingRule) decimal.Decimal {
	fee := rule.Fee(e.State().Subtotal)
	e.Dispatch(SetShipping{Amount: fee})
	return fee
}

// Breakdown возвращает полную разбивку итоговой суммы.
func (e *Engine) Breakdown() pricing.Breakdown {
	s := e.State()
	return pricing.Compute(s.Items, s.Discount, s.TaxRate, s.ShippingFee)
}

// Summary возвращает разбивку, отформатированную в валюте.
func (e *Engine) Summary(currency string) pricing.Summary {
	return e.Breakdown().Format(currency)
}

// Close прекращает планирование записей и дожидается уже запланированных.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if e.persister == nil {
		return nil
	}
	return e.persister.Flush(ctx)
}
