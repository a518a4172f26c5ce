package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты, используемые в метках.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultCancelled = "cancelled"
	ResultRejected  = "rejected"
)

// StorefrontMetrics содержит метрики корзины, оркестрации действий и оплаты.
type StorefrontMetrics struct {
	// Переходы движка корзины
	cartTransitions *prometheus.CounterVec
	persistWrites   *prometheus.CounterVec
	persistDuration prometheus.Histogram

	// Действия оркестрации
	actions          *prometheus.CounterVec
	processingFlags  prometheus.Gauge
	notificationsOut *prometheus.CounterVec

	// Оплата
	paymentAttempts *prometheus.CounterVec
	paymentDuration prometheus.Histogram
	stepDuration    *prometheus.HistogramVec
	activePayments  prometheus.Gauge

	// Сессии
	openSessions prometheus.Gauge
}

// NewStorefrontMetrics создаёт метрики в DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer создаёт метрики в указанном реестре.
func NewWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		cartTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_transitions_total",
			Help: "Total number of cart engine transitions by operation",
		}, []string{"op"}),
		persistWrites: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_persist_writes_total",
			Help: "Total number of cart persistence writes by result",
		}, []string{"result"}),
		persistDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_cart_persist_duration_seconds",
			Help:    "Duration of cart persistence writes in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		actions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_actions_total",
			Help: "Total number of orchestrated cart and wishlist actions",
		}, []string{"kind", "result"}),
		processingFlags: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_processing_in_flight",
			Help: "Number of items with an in-flight remote action",
		}),
		notificationsOut: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_notifications_total",
			Help: "Total number of user notifications by variant",
		}, []string{"variant"}),
		paymentAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_payment_attempts_total",
			Help: "Total number of payment attempts by method and result",
		}, []string{"method", "result"}),
		paymentDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_payment_duration_seconds",
			Help:    "Duration of payment flows in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_payment_step_duration_seconds",
			Help:    "Duration of individual payment steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		activePayments: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_payments",
			Help: "Number of currently running payment flows",
		}),
		openSessions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_open_sessions",
			Help: "Number of open storefront sessions",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCartTransition увеличивает счётчик переходов корзины.
func (m *StorefrontMetrics) RecordCartTransition(op string) {
	m.cartTransitions.WithLabelValues(op).Inc()
}

// RecordPersistWrite учитывает запись состояния корзины в хранилище.
func (m *StorefrontMetrics) RecordPersistWrite(result string, duration time.Duration) {
	m.persistWrites.WithLabelValues(result).Inc()
	m.persistDuration.Observe(duration.Seconds())
}

// RecordAction учитывает завершённое действие с корзиной или избранным.
func (m *StorefrontMetrics) RecordAction(kind, result string) {
	m.actions.WithLabelValues(kind, result).Inc()
}

// AddProcessingInFlight изменяет число позиций с активным запросом на delta.
// Метрика общая для всех сессий, поэтому меняется только приращениями.
func (m *StorefrontMetrics) AddProcessingInFlight(delta int) {
	m.processingFlags.Add(float64(delta))
}

// RecordNotification учитывает показанное пользователю уведомление.
func (m *StorefrontMetrics) RecordNotification(variant string) {
	m.notificationsOut.WithLabelValues(variant).Inc()
}

// RecordPaymentStarted увеличивает количество активных оплат.
func (m *StorefrontMetrics) RecordPaymentStarted() {
	m.activePayments.Inc()
}

// RecordPaymentFinished фиксирует итог оплаты и её длительность.
func (m *StorefrontMetrics) RecordPaymentFinished(method, result string, duration time.Duration) {
	m.activePayments.Dec()
	m.paymentAttempts.WithLabelValues(method, result).Inc()
	m.paymentDuration.Observe(duration.Seconds())
}

// RecordPaymentRejected учитывает попытку, отклонённую до старта (нет входа, оплата уже идёт).
func (m *StorefrontMetrics) RecordPaymentRejected(method string) {
	m.paymentAttempts.WithLabelValues(method, ResultRejected).Inc()
}

// RecordStepDuration записывает время выполнения шага оплаты.
func (m *StorefrontMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// SessionOpened увеличивает число открытых сессий.
func (m *StorefrontMetrics) SessionOpened() {
	m.openSessions.Inc()
}

// SessionClosed уменьшает число открытых сессий.
func (m *StorefrontMetrics) SessionClosed() {
	m.openSessions.Dec()
}
