package payment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

// MockService — заглушка OrderAPI: отвечает заготовленными данными после задержки.
// Используется, когда адрес удалённого API не настроен.
type MockService struct {
	Delay time.Duration

	CreateErr error
	VerifyErr error
	// Decline заставляет проверку платежа вернуть Success=false.
	Decline bool

	mu          sync.Mutex
	createCalls int
	verifyCalls int
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService(delay time.Duration) *MockService {
	return &MockService{Delay: delay}
}

// CreateOrder создаёт заказ с новым идентификатором.
func (m *MockService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.OrderReceipt, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return domain.OrderReceipt{}, err
	}
	if m.CreateErr != nil {
		return domain.OrderReceipt{}, m.CreateErr
	}

	receipt := domain.OrderReceipt{
		OrderID:  "order_" + uuid.NewString(),
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	if req.PaymentMethod == domain.PaymentMethodRazorpay {
		receipt.GatewayOrderID = "gw_" + uuid.NewString()
	}
	return receipt, nil
}

// VerifyPayment подтверждает платёж, если не выставлен Decline.
func (m *MockService) VerifyPayment(ctx context.Context, req domain.VerifyPaymentRequest) (domain.VerifyPaymentResult, error) {
	m.mu.Lock()
	m.verifyCalls++
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return domain.VerifyPaymentResult{}, err
	}
	if m.VerifyErr != nil {
		return domain.VerifyPaymentResult{}, m.VerifyErr
	}
	if m.Decline {
		return domain.VerifyPaymentResult{Success: false, Message: "Payment was declined by the bank."}, nil
	}

	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = "pay_" + uuid.NewString()
	}
	return domain.VerifyPaymentResult{Success: true, PaymentID: paymentID}, nil
}

// Calls возвращает количество вызовов CreateOrder и VerifyPayment.
func (m *MockService) Calls() (create, verify int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls, m.verifyCalls
}

func (m *MockService) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ domain.OrderAPI = (*MockService)(nil)
