package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/cart"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/processing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/service/cartactions"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/service/payment"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/service/wishlist"
)

// Config — параметры магазина, общие для всех сессий.
type Config struct {
	KeyPrefix string
	Currency  string
	TaxRate   decimal.Decimal
	Shipping  pricing.ShippingRule
}

// DefaultConfig возвращает параметры по умолчанию.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "tishyaa",
		Currency:  pricing.DefaultCurrency,
	}
}

// Storefront — всё состояние одного вошедшего пользователя.
type Storefront struct {
	UserID   string
	Engine   *cart.Engine
	Cart     *cartactions.Actions
	Wishlist *wishlist.Service
	Payments *payment.Processor
	// CartFlags и WishlistFlags разделены: ID позиции корзины совпадает с ID товара.
	CartFlags     *processing.FlagSet
	WishlistFlags *processing.FlagSet
	// Notes копит уведомления до следующего Drain.
	Notes *notify.Recorder

	session  *session
	shipping pricing.ShippingRule
	currency string
}

// Reprice пересчитывает доставку по правилу магазина для текущей суммы.
func (s *Storefront) Reprice() {
	if s.shipping.FlatFee.IsPositive() {
		s.Engine.ApplyShippingRule(s.shipping)
	}
}

// Summary возвращает отформатированную разбивку корзины.
func (s *Storefront) Summary() pricing.Summary {
	return s.Engine.Summary(s.currency)
}

// Currency возвращает валюту магазина.
func (s *Storefront) Currency() string {
	return s.currency
}

type session struct {
	userID   string
	signedIn atomic.Bool
	// lastSeen хранит unix nano последнего обращения к сессии.
	lastSeen atomic.Int64
}

func (s *session) UserID() string   { return s.userID }
func (s *session) IsSignedIn() bool { return s.signedIn.Load() }

// Registry создаёт сессии при входе и освобождает их при выходе.
type Registry struct {
	cfg     Config
	store   domain.KeyValueStore
	apis    APIFactory
	coupons *pricing.CouponBook

	confirmer domain.Confirmer
	notifier  domain.Notifier
	timeline  domain.TimelineRepository
	publisher domain.PaymentEventPublisher
	logger    *log.Entry
	metrics   *metrics.StorefrontMetrics
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Storefront
}

// Option настраивает Registry.
type Option func(*Registry)

// WithConfirmer задаёт способ подтверждения действий. По умолчанию решение берётся из контекста.
func WithConfirmer(c domain.Confirmer) Option {
	return func(r *Registry) {
		if c != nil {
			r.confirmer = c
		}
	}
}

// WithNotifier задаёт получателя, которому пересылаются все уведомления.
func WithNotifier(n domain.Notifier) Option {
	return func(r *Registry) {
		r.notifier = n
	}
}

// WithTimeline включает таймлайн оплат.
func WithTimeline(repo domain.TimelineRepository) Option {
	return func(r *Registry) {
		r.timeline = repo
	}
}

// WithPublisher включает публикацию событий оплаты.
func WithPublisher(p domain.PaymentEventPublisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithCoupons задаёт справочник купонов.
func WithCoupons(book *pricing.CouponBook) Option {
	return func(r *Registry) {
		if book != nil {
			r.coupons = book
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics включает метрики всех компонентов сессии.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock подменяет источник времени для учёта простоя сессий.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry создаёт реестр сессий.
func NewRegistry(cfg Config, store domain.KeyValueStore, apis APIFactory, opts ...Option) *Registry {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if cfg.Currency == "" {
		cfg.Currency = pricing.DefaultCurrency
	}
	r := &Registry{
		cfg:       cfg,
		store:     store,
		apis:      apis,
		coupons:   pricing.NewCouponBook(),
		confirmer: notify.ContextConfirmer{},
		logger:    log.New().WithField("component", "storefront"),
		now:       time.Now,
		sessions:  make(map[string]*Storefront),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Coupons возвращает справочник купонов.
func (r *Registry) Coupons() *pricing.CouponBook {
	return r.coupons
}

// Open создаёт сессию пользователя и загружает сохранённую корзину.
// Повторный Open возвращает уже открытую сессию.
func (r *Registry) Open(ctx context.Context, userID, token string) (*Storefront, error) {
	if userID == "" {
		return nil, domain.ErrNotSignedIn
	}

	r.mu.Lock()
	if sf, ok := r.sessions[userID]; ok {
		r.touch(sf)
		r.mu.Unlock()
		return sf, nil
	}
	sf := r.build(userID, token)
	r.touch(sf)
	r.sessions[userID] = sf
	r.mu.Unlock()

	logger := r.logger.WithField("user_id", userID)
	if err := sf.Engine.Hydrate(ctx); err != nil {
		logger.WithError(err).Warn("failed to hydrate cart, starting empty")
	}
	if r.cfg.TaxRate.IsPositive() {
		sf.Engine.Dispatch(cart.SetTax{Percent: r.cfg.TaxRate})
	}

	sf.Cart.Refetch(ctx)
	sf.Wishlist.Refetch(ctx)
	sf.Reprice()

	if r.metrics != nil {
		r.metrics.SessionOpened()
	}
	logger.Info("storefront session opened")
	return sf, nil
}

// Get возвращает открытую сессию и отмечает её активной.
func (r *Registry) Get(userID string) (*Storefront, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sf, ok := r.sessions[userID]
	if ok {
		r.touch(sf)
	}
	return sf, ok
}

// CloseIdle закрывает не более limit сессий, к которым не обращались с момента before.
// Сессии с незавершённой оплатой пропускаются. limit <= 0 снимает ограничение.
func (r *Registry) CloseIdle(ctx context.Context, before time.Time, limit int) (int, error) {
	cutoff := before.UnixNano()

	r.mu.Lock()
	var idle []*Storefront
	for id, sf := range r.sessions {
		if limit > 0 && len(idle) >= limit {
			break
		}
		if sf.session.lastSeen.Load() > cutoff || sf.Payments.Step() != domain.PaymentStepIdle {
			continue
		}
		idle = append(idle, sf)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	var errs []error
	for _, sf := range idle {
		if err := r.dispose(ctx, sf); err != nil {
			errs = append(errs, err)
		}
	}
	return len(idle), errors.Join(errs...)
}

// Close завершает сессию и дожидается записи корзины.
func (r *Registry) Close(ctx context.Context, userID string) error {
	r.mu.Lock()
	sf, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("close session %s: %w", userID, domain.ErrSessionNotFound)
	}
	return r.dispose(ctx, sf)
}

// CloseAll завершает все сессии.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Storefront, 0, len(r.sessions))
	for id, sf := range r.sessions {
		sessions = append(sessions, sf)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	var errs []error
	for _, sf := range sessions {
		if err := r.dispose(ctx, sf); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len возвращает число открытых сессий.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) touch(sf *Storefront) {
	sf.session.lastSeen.Store(r.now().UnixNano())
}

func (r *Registry) dispose(ctx context.Context, sf *Storefront) error {
	sf.session.signedIn.Store(false)
	sf.CartFlags.Reset()
	sf.WishlistFlags.Reset()

	if r.metrics != nil {
		r.metrics.SessionClosed()
	}
	if err := sf.Engine.Close(ctx); err != nil {
		return fmt.Errorf("close session %s: %w", sf.UserID, err)
	}
	r.logger.WithField("user_id", sf.UserID).Info("storefront session closed")
	return nil
}

func (r *Registry) build(userID, token string) *Storefront {
	logger := r.logger.WithField("user_id", userID)
	sess := &session{userID: userID}
	sess.signedIn.Store(true)

	apis := r.apis.ForUser(userID, token)
	notes := notify.NewRecorder(r.notifier)
	cartFlags := processing.NewFlagSet(r.metrics)
	wishlistFlags := processing.NewFlagSet(r.metrics)

	engineOpts := []cart.Option{
		cart.WithLogger(logger.WithField("component", "cart-engine")),
		cart.WithMetrics(r.metrics),
	}
	if r.store != nil {
		persister := cart.NewPersister(r.store, r.cfg.KeyPrefix+":"+userID,
			cart.WithPersisterLogger(logger.WithField("component", "cart-persister")),
			cart.WithPersisterMetrics(r.metrics),
		)
		engineOpts = append(engineOpts, cart.WithPersister(persister))
	}
	engine := cart.NewEngine(engineOpts...)

	return &Storefront{
		UserID: userID,
		Engine: engine,
		Cart: cartactions.New(apis.Cart, sess, notes, r.confirmer,
			cartactions.WithMirror(engine),
			cartactions.WithFlags(cartFlags),
			cartactions.WithLogger(logger.WithField("component", "cart-actions")),
			cartactions.WithMetrics(r.metrics),
		),
		Wishlist: wishlist.New(apis.Wishlist, sess, notes,
			wishlist.WithFlags(wishlistFlags),
			wishlist.WithLogger(logger.WithField("component", "wishlist")),
			wishlist.WithMetrics(r.metrics),
		),
		Payments: payment.NewProcessor(apis.Orders, sess, notes, r.confirmer,
			payment.WithTimeline(r.timeline),
			payment.WithPublisher(r.publisher),
			payment.WithLogger(logger.WithField("component", "payment")),
			payment.WithMetrics(r.metrics),
		),
		CartFlags:     cartFlags,
		WishlistFlags: wishlistFlags,
		Notes:         notes,
		session:       sess,
		shipping:      r.cfg.Shipping,
		currency:      r.cfg.Currency,
	}
}
