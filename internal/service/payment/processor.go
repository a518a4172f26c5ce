package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/remote"
)

const (
	tracerName = "github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/service/payment"

	// timelineStepChanged — тип записи таймлайна для перехода между шагами.
	timelineStepChanged = "payment.step_changed"

	publishTimeout = 5 * time.Second
)

var errPanic = errors.New("payment flow panicked")

// Processor ведёт попытку оплаты по шагам idle → creating → processing → verifying → idle.
// Одновременно выполняется не больше одной попытки.
type Processor struct {
	orders    domain.OrderAPI
	session   domain.Session
	notifier  domain.Notifier
	confirmer domain.Confirmer

	timeline  domain.TimelineRepository
	publisher domain.PaymentEventPublisher
	tracer    trace.Tracer
	logger    *log.Entry
	metrics   *metrics.StorefrontMetrics
	now       func() time.Time

	mu       sync.Mutex
	attempt  *domain.PaymentAttempt
	stepFrom time.Time
}

// Option настраивает Processor.
type Option func(*Processor)

// WithTimeline включает запись шагов в таймлайн.
func WithTimeline(repo domain.TimelineRepository) Option {
	return func(p *Processor) {
		p.timeline = repo
	}
}

// WithPublisher включает публикацию итоговых событий оплаты.
func WithPublisher(publisher domain.PaymentEventPublisher) Option {
	return func(p *Processor) {
		p.publisher = publisher
	}
}

// WithTracer задаёт tracer. По умолчанию используется глобальный провайдер.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics включает метрики оплаты.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor создаёт Processor.
func NewProcessor(orders domain.OrderAPI, session domain.Session, notifier domain.Notifier, confirmer domain.Confirmer, opts ...Option) *Processor {
	p := &Processor{
		orders:    orders,
		session:   session,
		notifier:  notifier,
		confirmer: confirmer,
		tracer:    otel.Tracer(tracerName),
		logger:    log.New().WithField("component", "payment"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Step возвращает текущий шаг. Вне попытки это всегда idle.
func (p *Processor) Step() domain.PaymentStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt == nil {
		return domain.PaymentStepIdle
	}
	return p.attempt.Step
}

// outcome — итог попытки для метрик, таймлайна и события.
type outcome struct {
	result  string
	reason  string
	orderID string
}

// ProcessPayment проводит оплату и возвращает true только при подтверждённом платеже.
// Ошибки не возвращаются: о каждой неудаче пользователь получает одно уведомление.
func (p *Processor) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (ok bool) {
	userID := p.session.UserID()
	if userID == "" || !p.session.IsSignedIn() {
		p.notify(ctx, "Authentication required", "Please sign in to continue with payment.", domain.NotificationDestructive)
		p.recordRejected(req.Method)
		return false
	}
	if errs := req.Validate(); len(errs) > 0 {
		p.notify(ctx, "Invalid payment", errs[0].Error(), domain.NotificationDestructive)
		p.recordRejected(req.Method)
		return false
	}
	if req.Currency == "" {
		req.Currency = pricing.DefaultCurrency
	}

	attempt, started := p.begin(req)
	if !started {
		p.logger.WithField("user_id", userID).Debug(domain.ErrPaymentInProgress.Error())
		p.notify(ctx, "Payment in progress", "Please wait for the current payment to finish.", domain.NotificationDefault)
		p.recordRejected(req.Method)
		return false
	}

	ctx, span := p.tracer.Start(ctx, "payment.process", trace.WithAttributes(
		attribute.String("payment.attempt_id", attempt.ID),
		attribute.String("payment.method", string(req.Method)),
		attribute.String("payment.currency", req.Currency),
	))
	defer span.End()

	logger := p.logger.WithFields(log.Fields{
		"attempt_id": attempt.ID,
		"user_id":    userID,
		"method":     req.Method,
	})

	res := outcome{result: metrics.ResultFailure}
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprint(r)).Error("payment flow panicked")
			p.notify(ctx, "Payment failed", remote.GenericErrorMessage, domain.NotificationDestructive)
			res = outcome{result: metrics.ResultFailure, reason: errPanic.Error(), orderID: res.orderID}
			ok = false
		}
		if res.result != metrics.ResultSuccess && res.result != metrics.ResultCancelled {
			span.SetStatus(codes.Error, res.reason)
		}
		p.finish(ctx, logger, attempt, userID, res)
	}()

	res = p.run(ctx, logger, attempt, userID, req)
	return res.result == metrics.ResultSuccess
}

func (p *Processor) run(ctx context.Context, logger *log.Entry, attempt domain.PaymentAttempt, userID string, req domain.PaymentRequest) outcome {
	receipt, err := p.orders.CreateOrder(ctx, domain.CreateOrderRequest{
		UserID:        userID,
		CartIDs:       req.CartIDs,
		AddressID:     req.AddressID,
		PaymentMethod: req.Method,
		Amount:        req.Amount,
		Currency:      req.Currency,
	})
	if err != nil {
		logger.WithError(err).Warn("create order failed")
		p.notify(ctx, "Order failed", remote.UserMessage(err), domain.NotificationDestructive)
		trace.SpanFromContext(ctx).RecordError(err)
		return outcome{result: metrics.ResultFailure, reason: err.Error()}
	}

	res := outcome{orderID: receipt.OrderID}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("order.id", receipt.OrderID))
	p.transition(attempt.ID, domain.PaymentStepProcessing, "order created")

	verify := domain.VerifyPaymentRequest{
		OrderID: receipt.OrderID,
		Method:  req.Method,
	}
	switch req.Method {
	case domain.PaymentMethodCOD:
	case domain.PaymentMethodRazorpay:
		if !p.confirmCheckout(ctx, receipt, req) {
			logger.Info("payment cancelled by user")
			res.result = metrics.ResultCancelled
			res.reason = domain.ErrPaymentCancelled.Error()
			return res
		}
		verify.GatewayOrderID = receipt.GatewayOrderID
		verify.PaymentID = "pay_" + uuid.NewString()
	default:
		p.notify(ctx, "Payment failed", fmt.Sprintf("Payment method %q is not supported.", req.Method), domain.NotificationDestructive)
		res.result = metrics.ResultFailure
		res.reason = domain.ErrPaymentMethodUnsupported.Error()
		return res
	}

	p.transition(attempt.ID, domain.PaymentStepVerifying, "")

	result, err := p.orders.VerifyPayment(ctx, verify)
	if err != nil {
		logger.WithError(err).WithField("order_id", receipt.OrderID).Warn("verify payment failed")
		p.notify(ctx, "Payment failed", remote.UserMessage(err), domain.NotificationDestructive)
		trace.SpanFromContext(ctx).RecordError(err)
		res.result = metrics.ResultFailure
		res.reason = err.Error()
		return res
	}
	if !result.Success {
		message := result.Message
		if message == "" {
			message = remote.GenericErrorMessage
		}
		p.notify(ctx, "Payment failed", message, domain.NotificationDestructive)
		res.result = metrics.ResultFailure
		res.reason = domain.ErrPaymentNotVerified.Error()
		return res
	}

	p.notify(ctx, "Payment successful", "Your order has been placed.", domain.NotificationSuccess)
	res.result = metrics.ResultSuccess
	return res
}

// confirmCheckout показывает диалог оплаты через шлюз.
func (p *Processor) confirmCheckout(ctx context.Context, receipt domain.OrderReceipt, req domain.PaymentRequest) bool {
	accepted := false
	p.confirmer.Confirm(ctx, domain.Prompt{
		Title:   "Complete payment",
		Message: fmt.Sprintf("Pay %s for order %s via Razorpay?", pricing.Format(req.Amount, req.Currency), receipt.OrderID),
		Options: []domain.PromptOption{
			{Label: "Cancel", Style: domain.PromptStyleCancel, OnSelect: func() {}},
			{Label: "Pay", Style: domain.PromptStyleDefault, OnSelect: func() { accepted = true }},
		},
	})
	return accepted
}

// begin занимает автомат под новую попытку. Возвращает false, если другая попытка ещё идёт.
func (p *Processor) begin(req domain.PaymentRequest) (domain.PaymentAttempt, bool) {
	p.mu.Lock()
	if p.attempt != nil {
		p.mu.Unlock()
		return domain.PaymentAttempt{}, false
	}
	now := p.now()
	attempt := domain.PaymentAttempt{
		ID:        uuid.NewString(),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Method:    req.Method,
		Step:      domain.PaymentStepCreating,
		StartedAt: now,
	}
	p.attempt = &attempt
	p.stepFrom = now
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordPaymentStarted()
	}
	p.appendTimeline(domain.TimelineEvent{
		AttemptID: attempt.ID,
		Type:      timelineStepChanged,
		Step:      domain.PaymentStepCreating,
		Occurred:  now,
	})
	return attempt, true
}

func (p *Processor) transition(attemptID string, step domain.PaymentStep, reason string) {
	now := p.now()

	p.mu.Lock()
	if p.attempt == nil || p.attempt.ID != attemptID {
		p.mu.Unlock()
		return
	}
	prev := p.attempt.Step
	spent := now.Sub(p.stepFrom)
	p.attempt.Step = step
	p.stepFrom = now
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordStepDuration(string(prev), spent)
	}
	p.appendTimeline(domain.TimelineEvent{
		AttemptID: attemptID,
		Type:      timelineStepChanged,
		Step:      step,
		Reason:    reason,
		Occurred:  now,
	})
}

// finish возвращает автомат в idle и фиксирует итог попытки.
func (p *Processor) finish(ctx context.Context, logger *log.Entry, attempt domain.PaymentAttempt, userID string, res outcome) {
	p.transition(attempt.ID, domain.PaymentStepIdle, res.reason)

	p.mu.Lock()
	p.attempt = nil
	p.mu.Unlock()

	eventType := eventTypeFor(res.result)
	p.appendTimeline(domain.TimelineEvent{
		AttemptID: attempt.ID,
		Type:      eventType,
		Step:      domain.PaymentStepIdle,
		Reason:    res.reason,
		Occurred:  p.now(),
	})
	if p.metrics != nil {
		p.metrics.RecordPaymentFinished(string(attempt.Method), res.result, p.now().Sub(attempt.StartedAt))
	}

	logger.WithFields(log.Fields{
		"order_id": res.orderID,
		"result":   res.result,
	}).Info("payment attempt finished")

	if p.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := p.publisher.PublishPaymentEvent(pubCtx, domain.PaymentEvent{
		Type:      eventType,
		AttemptID: attempt.ID,
		UserID:    userID,
		OrderID:   res.orderID,
		Method:    attempt.Method,
		Amount:    attempt.Amount.StringFixed(2),
		Currency:  attempt.Currency,
		Reason:    res.reason,
	})
	if err != nil {
		logger.WithError(err).Warn("failed to publish payment event")
	}
}

func (p *Processor) appendTimeline(event domain.TimelineEvent) {
	if p.timeline == nil {
		return
	}
	if err := p.timeline.Append(event); err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"attempt_id": event.AttemptID,
			"step":       event.Step,
		}).Warn("failed to append payment timeline event")
	}
}

func (p *Processor) notify(ctx context.Context, title, description string, variant domain.NotificationVariant) {
	notify.Emit(ctx, p.notifier, domain.Notification{
		Title:       title,
		Description: description,
		Variant:     variant,
	})
}

func (p *Processor) recordRejected(method domain.PaymentMethod) {
	if p.metrics != nil {
		p.metrics.RecordPaymentRejected(string(method))
	}
}

func eventTypeFor(result string) string {
	switch result {
	case metrics.ResultSuccess:
		return domain.PaymentEventSucceeded
	case metrics.ResultCancelled:
		return domain.PaymentEventCancelled
	default:
		return domain.PaymentEventFailed
	}
}
