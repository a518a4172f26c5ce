package wishlist

import (
	"context"
	"sync"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/processing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/remote"
	log "github.com/sirupsen/logrus"
)

const (
	kindAdd    = "wishlist_add"
	kindRemove = "wishlist_remove"
)

// Service переключает товары в избранном. Членство определяется по последнему
// ответу сервера, локально состояние не переворачивается.
type Service struct {
	api      domain.WishlistAPI
	session  domain.Session
	notifier domain.Notifier
	flags    *processing.FlagSet
	logger   *log.Entry
	metrics  *metrics.StorefrontMetrics

	mu      sync.RWMutex
	entries []domain.WishlistEntry
}

// Option настраивает Service.
type Option func(*Service)

// WithFlags задаёт общий набор флагов обработки.
func WithFlags(flags *processing.FlagSet) Option {
	return func(s *Service) {
		if flags != nil {
			s.flags = flags
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics включает метрики.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New создаёт Service.
func New(api domain.WishlistAPI, session domain.Session, notifier domain.Notifier, opts ...Option) *Service {
	s := &Service{
		api:      api,
		session:  session,
		notifier: notifier,
		flags:    processing.NewFlagSet(nil),
		logger:   log.New().WithField("component", "wishlist"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Toggle добавляет товар в избранное или удаляет его оттуда.
// После запроса избранное перечитывается независимо от результата.
func (s *Service) Toggle(ctx context.Context, productID string) bool {
	kind := kindAdd
	if s.Contains(productID) {
		kind = kindRemove
	}

	if !s.session.IsSignedIn() {
		notify.Emit(ctx, s.notifier, domain.Notification{
			Title:       "Sign in required",
			Description: "Please sign in to manage your wishlist.",
			Variant:     domain.NotificationDestructive,
		})
		s.record(kind, metrics.ResultRejected)
		return false
	}

	s.flags.Mark(productID)
	var err error
	if kind == kindRemove {
		err = s.api.RemoveFromWishlist(ctx, productID)
	} else {
		err = s.api.AddToWishlist(ctx, productID)
	}
	s.flags.Clear(productID)
	s.Refetch(ctx)

	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"action":     kind,
			"product_id": productID,
			"user_id":    s.session.UserID(),
		}).Warn("wishlist toggle failed")

		notify.Emit(ctx, s.notifier, domain.Notification{
			Title:       "Error",
			Description: remote.UserMessage(err),
			Variant:     domain.NotificationDestructive,
		})
		s.record(kind, metrics.ResultFailure)
		return false
	}

	note := domain.Notification{
		Title:       "Added to wishlist",
		Description: "The item has been saved to your wishlist.",
		Variant:     domain.NotificationSuccess,
	}
	if kind == kindRemove {
		note = domain.Notification{
			Title:       "Removed from wishlist",
			Description: "The item has been removed from your wishlist.",
			Variant:     domain.NotificationDefault,
		}
	}
	notify.Emit(ctx, s.notifier, note)
	s.record(kind, metrics.ResultSuccess)
	return true
}

// Refetch перечитывает избранное. Ошибки только логируются.
func (s *Service) Refetch(ctx context.Context) bool {
	if !s.session.IsSignedIn() {
		return false
	}

	entries, err := s.api.ListWishlist(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", s.session.UserID()).Warn("wishlist refetch failed")
		return false
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return true
}

// Contains сообщает, есть ли товар в последнем полученном избранном.
func (s *Service) Contains(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

// Entries возвращает копию избранного.
func (s *Service) Entries() []domain.WishlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WishlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// IsProcessing сообщает, выполняется ли запрос для товара.
func (s *Service) IsProcessing(productID string) bool {
	return s.flags.IsProcessing(productID)
}

func (s *Service) record(kind, result string) {
	if s.metrics != nil {
		s.metrics.RecordAction(kind, result)
	}
}
