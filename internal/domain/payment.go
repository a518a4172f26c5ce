package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod — способ оплаты, выбранный пользователем.
type PaymentMethod string

const (
	// PaymentMethodCOD — оплата при получении, внешний шлюз не нужен.
	PaymentMethodCOD PaymentMethod = "cod"
	// PaymentMethodRazorpay — оплата через шлюз Razorpay с подтверждением пользователя.
	PaymentMethodRazorpay PaymentMethod = "razorpay"
)

// PaymentStep описывает шаг конечного автомата оплаты.
type PaymentStep string

const (
	PaymentStepIdle       PaymentStep = "idle"
	PaymentStepCreating   PaymentStep = "creating"
	PaymentStepProcessing PaymentStep = "processing"
	PaymentStepVerifying  PaymentStep = "verifying"
)

// Valid проверяет, что шаг относится к поддерживаемым значениям.
func (s PaymentStep) Valid() bool {
	switch s {
	case PaymentStepIdle, PaymentStepCreating, PaymentStepProcessing, PaymentStepVerifying:
		return true
	default:
		return false
	}
}

// PaymentRequest — входные данные для запуска оплаты.
type PaymentRequest struct {
	CartIDs   []string        `json:"cartIds"`
	AddressID string          `json:"addressId"`
	Method    PaymentMethod   `json:"paymentMethod"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// Validate проверяет корректность запроса и возвращает ошибки, если они есть.
func (r PaymentRequest) Validate() []error {
	var errs []error

	switch {
	case r.Method == "":
		errs = append(errs, ErrPaymentMethodRequired)
	case r.Amount.IsNegative():
		errs = append(errs, ErrPaymentAmountNegative)
	}

	return errs
}

// CreateOrderRequest — тело запроса на создание заказа.
type CreateOrderRequest struct {
	UserID        string          `json:"userId"`
	CartIDs       []string        `json:"cartIds"`
	AddressID     string          `json:"addressId"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// OrderReceipt — ответ сервера на создание заказа.
type OrderReceipt struct {
	OrderID string `json:"orderId"`
	// GatewayOrderID заполняется только для оплаты через шлюз.
	GatewayOrderID string          `json:"gatewayOrderId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

// VerifyPaymentRequest — тело запроса на проверку платежа.
type VerifyPaymentRequest struct {
	OrderID        string        `json:"orderId"`
	GatewayOrderID string        `json:"gatewayOrderId,omitempty"`
	PaymentID      string        `json:"paymentId,omitempty"`
	Signature      string        `json:"signature,omitempty"`
	Method         PaymentMethod `json:"paymentMethod"`
}

// VerifyPaymentResult — итог проверки. Оплата считается успешной только при Success=true.
type VerifyPaymentResult struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PaymentAttempt — эфемерное состояние одной попытки оплаты.
type PaymentAttempt struct {
	ID        string
	Amount    decimal.Decimal
	Currency  string
	Method    PaymentMethod
	Step      PaymentStep
	StartedAt time.Time
}
