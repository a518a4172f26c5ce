package cartactions

import (
	"context"
	"fmt"
	"sync"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/cart"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/processing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/remote"
	log "github.com/sirupsen/logrus"
)

// Виды действий для логов и метрик.
const (
	kindAdd    = "cart_add"
	kindUpdate = "cart_update"
	kindRemove = "cart_remove"
	kindClear  = "cart_clear"
)

// Actions связывает пользовательские действия с корзиной на сервере.
// После каждой мутации корзина перечитывается с сервера; локальных оптимистичных изменений нет.
type Actions struct {
	api       domain.CartAPI
	session   domain.Session
	notifier  domain.Notifier
	confirmer domain.Confirmer
	flags     *processing.FlagSet

	// mirror указывает на локальный движок, в который загружается серверная корзина. Может быть nil.
	mirror  *cart.Engine
	logger  *log.Entry
	metrics *metrics.StorefrontMetrics

	mu    sync.RWMutex
	items []domain.CartLine
}

// Option настраивает Actions.
type Option func(*Actions)

// WithMirror включает загрузку серверной корзины в локальный движок.
func WithMirror(engine *cart.Engine) Option {
	return func(a *Actions) {
		a.mirror = engine
	}
}

// WithFlags задаёт общий набор флагов обработки.
func WithFlags(flags *processing.FlagSet) Option {
	return func(a *Actions) {
		if flags != nil {
			a.flags = flags
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(a *Actions) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics включает метрики действий.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(a *Actions) {
		a.metrics = m
	}
}

// New создаёт Actions.
func New(api domain.CartAPI, session domain.Session, notifier domain.Notifier, confirmer domain.Confirmer, opts ...Option) *Actions {
	a := &Actions{
		api:       api,
		session:   session,
		notifier:  notifier,
		confirmer: confirmer,
		flags:     processing.NewFlagSet(nil),
		logger:    log.New().WithField("component", "cart-actions"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddToCart добавляет товар на сервере и перечитывает корзину.
func (a *Actions) AddToCart(ctx context.Context, product domain.Product, quantity int) bool {
	if !a.requireSignIn(ctx, "Please sign in to add items to your cart.", kindAdd) {
		return false
	}
	if quantity < 1 {
		quantity = 1
	}

	a.flags.Mark(product.ID)
	defer a.flags.Clear(product.ID)

	err := a.api.AddCartItem(ctx, domain.AddCartItemRequest{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		ImageRef:  product.ImageRef,
	})
	a.Refetch(ctx)

	if err != nil {
		return a.fail(ctx, kindAdd, product.ID, err)
	}
	notify.Emit(ctx, a.notifier, domain.Notification{
		Title:       "Added to cart",
		Description: fmt.Sprintf("%s has been added to your cart.", displayName(product)),
		Variant:     domain.NotificationSuccess,
	})
	a.record(kindAdd, metrics.ResultSuccess)
	return true
}

// UpdateQuantity выставляет количество позиции; quantity <= 0 удаляет её.
// Корзина перечитывается независимо от результата.
func (a *Actions) UpdateQuantity(ctx context.Context, lineID string, quantity int) bool {
	if !a.requireSignIn(ctx, "Please sign in to update your cart.", kindUpdate) {
		return false
	}

	a.flags.Mark(lineID)
	defer a.flags.Clear(lineID)

	var err error
	if quantity <= 0 {
		err = a.api.RemoveCartItem(ctx, lineID)
	} else {
		err = a.api.UpdateCartItem(ctx, lineID, quantity)
	}
	a.Refetch(ctx)

	if err != nil {
		return a.fail(ctx, kindUpdate, lineID, err)
	}
	a.record(kindUpdate, metrics.ResultSuccess)
	return true
}

// RemoveItem спрашивает подтверждение и удаляет позицию. Отмена ничего не меняет.
func (a *Actions) RemoveItem(ctx context.Context, lineID string) bool {
	if !a.requireSignIn(ctx, "Please sign in to update your cart.", kindRemove) {
		return false
	}
	if !a.confirm(ctx, "Remove item", "Are you sure you want to remove this item from your cart?", "Remove") {
		a.record(kindRemove, metrics.ResultCancelled)
		return false
	}

	a.flags.Mark(lineID)
	defer a.flags.Clear(lineID)

	err := a.api.RemoveCartItem(ctx, lineID)
	a.Refetch(ctx)

	if err != nil {
		return a.fail(ctx, kindRemove, lineID, err)
	}
	notify.Emit(ctx, a.notifier, domain.Notification{
		Title:       "Item removed",
		Description: "The item has been removed from your cart.",
		Variant:     domain.NotificationSuccess,
	})
	a.record(kindRemove, metrics.ResultSuccess)
	return true
}

// ClearCart спрашивает подтверждение и очищает корзину.
func (a *Actions) ClearCart(ctx context.Context) bool {
	if !a.requireSignIn(ctx, "Please sign in to update your cart.", kindClear) {
		return false
	}
	if !a.confirm(ctx, "Clear cart", "Are you sure you want to remove all items from your cart?", "Clear") {
		a.record(kindClear, metrics.ResultCancelled)
		return false
	}

	err := a.api.ClearCart(ctx)
	a.Refetch(ctx)

	if err != nil {
		return a.fail(ctx, kindClear, "", err)
	}
	notify.Emit(ctx, a.notifier, domain.Notification{
		Title:       "Cart cleared",
		Description: "All items have been removed from your cart.",
		Variant:     domain.NotificationSuccess,
	})
	a.record(kindClear, metrics.ResultSuccess)
	return true
}

// Refetch перечитывает корзину с сервера. Ошибка только логируется: прежние данные остаются.
func (a *Actions) Refetch(ctx context.Context) bool {
	if !a.session.IsSignedIn() {
		return false
	}

	lines, err := a.api.ListCart(ctx)
	if err != nil {
		a.logger.WithError(err).WithField("user_id", a.session.UserID()).Warn("cart refetch failed")
		return false
	}

	a.mu.Lock()
	a.items = lines
	a.mu.Unlock()

	if a.mirror != nil {
		a.mirror.Dispatch(cart.Load{Items: lines})
	}
	return true
}

// Items возвращает последнюю полученную с сервера корзину.
func (a *Actions) Items() []domain.CartLine {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.CartLine, len(a.items))
	copy(out, a.items)
	return out
}

// IsProcessing сообщает, выполняется ли запрос для позиции.
func (a *Actions) IsProcessing(id string) bool {
	return a.flags.IsProcessing(id)
}

func (a *Actions) requireSignIn(ctx context.Context, description, kind string) bool {
	if a.session.IsSignedIn() {
		return true
	}
	notify.Emit(ctx, a.notifier, domain.Notification{
		Title:       "Sign in required",
		Description: description,
		Variant:     domain.NotificationDestructive,
	})
	a.record(kind, metrics.ResultRejected)
	return false
}

// confirm показывает диалог и возвращает выбор пользователя.
func (a *Actions) confirm(ctx context.Context, title, message, action string) bool {
	accepted := false
	a.confirmer.Confirm(ctx, domain.Prompt{
		Title:   title,
		Message: message,
		Options: []domain.PromptOption{
			{Label: "Cancel", Style: domain.PromptStyleCancel, OnSelect: func() {}},
			{Label: action, Style: domain.PromptStyleDestructive, OnSelect: func() { accepted = true }},
		},
	})
	return accepted
}

func (a *Actions) fail(ctx context.Context, kind, id string, err error) bool {
	a.logger.WithError(err).WithFields(log.Fields{
		"action":  kind,
		"item_id": id,
		"user_id": a.session.UserID(),
	}).Warn("cart action failed")

	notify.Emit(ctx, a.notifier, domain.Notification{
		Title:       "Error",
		Description: remote.UserMessage(err),
		Variant:     domain.NotificationDestructive,
	})
	a.record(kind, metrics.ResultFailure)
	return false
}

func (a *Actions) record(kind, result string) {
	if a.metrics != nil {
		a.metrics.RecordAction(kind, result)
	}
}

func displayName(p domain.Product) string {
	if p.Name != "" {
		return p.Name
	}
	return "Item"
}
