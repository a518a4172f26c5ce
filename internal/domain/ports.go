package domain

import "context"

// KeyValueStore — долговременное key-value хранилище для локального состояния.
// Транзакционность не предполагается: запись перезаписывает значение целиком.
type KeyValueStore interface {
	// GetItem возвращает значение и признак наличия ключа.
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Pinger реализуют хранилища, поддерживающие проверку доступности.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CartAPI — удалённое API корзины пользователя.
type CartAPI interface {
	ListCart(ctx context.Context) ([]CartLine, error)
	AddCartItem(ctx context.Context, req AddCartItemRequest) error
	UpdateCartItem(ctx context.Context, lineID string, quantity int) error
	RemoveCartItem(ctx context.Context, lineID string) error
	ClearCart(ctx context.Context) error
}

// WishlistAPI — удалённое API избранного.
type WishlistAPI interface {
	ListWishlist(ctx context.Context) ([]WishlistEntry, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

// OrderAPI — создание заказа и проверка платежа.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (OrderReceipt, error)
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (VerifyPaymentResult, error)
}

// Session отдаёт данные о текущем пользователе.
type Session interface {
	UserID() string
	IsSignedIn() bool
}

// Notifier показывает уведомление. Вызов не блокирует и ничего не возвращает.
type Notifier interface {
	Notify(n Notification)
}

// Confirmer показывает диалог подтверждения.
// Реализация обязана вызвать OnSelect ровно одного варианта до возврата из Confirm.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt)
}

// TimelineRepository хранит историю шагов попыток оплаты.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(attemptID string) ([]TimelineEvent, error)
}

// PaymentEventPublisher публикует итоговые события оплаты во внешнюю шину.
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}

// PaymentEvent — итог попытки оплаты для внешних подписчиков.
type PaymentEvent struct {
	Type      string        `json:"type"`
	AttemptID string        `json:"attemptId"`
	UserID    string        `json:"userId"`
	OrderID   string        `json:"orderId,omitempty"`
	Method    PaymentMethod `json:"paymentMethod"`
	Amount    string        `json:"amount"`
	Currency  string        `json:"currency"`
	Reason    string        `json:"reason,omitempty"`
}

const (
	PaymentEventSucceeded = "payment.succeeded"
	PaymentEventFailed    = "payment.failed"
	PaymentEventCancelled = "payment.cancelled"
)
