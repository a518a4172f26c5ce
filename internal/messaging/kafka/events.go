package kafka

import (
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

// Topics для Kafka
const (
	TopicPaymentEvents = "storefront.payment.events"
)

// Заголовки сообщений
const (
	HeaderEventType = "x-event-type"
	HeaderUserID    = "x-user-id"
)

// PaymentEnvelope — сообщение с итогом попытки оплаты.
type PaymentEnvelope struct {
	EventType string              `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	Payment   domain.PaymentEvent `json:"payment"`
}

// NewPaymentEnvelope оборачивает событие оплаты для публикации.
func NewPaymentEnvelope(event domain.PaymentEvent) *PaymentEnvelope {
	return &PaymentEnvelope{
		EventType: event.Type,
		Timestamp: time.Now().UTC(),
		Payment:   event,
	}
}
