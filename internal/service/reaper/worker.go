package reaper

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	defaultInterval  = time.Minute
	defaultIdleTTL   = 30 * time.Minute
	defaultBatchSize = 100
)

var (
	reaperRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_session_reaper_runs_total",
		Help: "Total number of idle session sweeps grouped by result.",
	}, []string{"result"})
	reaperClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_session_reaper_closed_total",
		Help: "Total number of sessions closed for inactivity.",
	})
	reaperLastClosed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_session_reaper_last_closed",
		Help: "Number of sessions closed during the last sweep.",
	})
)

// Sweeper закрывает сессии, неактивные с момента before, порциями до limit штук.
type Sweeper interface {
	CloseIdle(ctx context.Context, before time.Time, limit int) (int, error)
}

// Options задаёт параметры воркера.
type Options struct {
	Logger    *log.Entry
	Interval  time.Duration
	IdleTTL   time.Duration
	BatchSize int
	Now       func() time.Time
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между проходами.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithIdleTTL задаёт время простоя, после которого сессия закрывается.
func WithIdleTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.IdleTTL = ttl
	}
}

// WithBatchSize задаёт число сессий, закрываемых за один вызов Sweeper.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Worker периодически закрывает простаивающие сессии магазина.
// Корзина закрытой сессии сохраняется и восстанавливается при следующем входе.
type Worker struct {
	sweeper   Sweeper
	logger    *log.Entry
	interval  time.Duration
	idleTTL   time.Duration
	batchSize int
	now       func() time.Time

	// lastRun хранит unix nano последнего прохода, для health check.
	lastRun atomic.Int64
}

// NewWorker создаёт воркер.
func NewWorker(sweeper Sweeper, options ...Option) *Worker {
	opts := Options{
		Interval:  defaultInterval,
		IdleTTL:   defaultIdleTTL,
		BatchSize: defaultBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "session-reaper")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Worker{
		sweeper:   sweeper,
		logger:    logger,
		interval:  opts.Interval,
		idleTTL:   opts.IdleTTL,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
}

// Run выполняет проходы до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.sweeper == nil {
		w.logger.Warn("session reaper is disabled: sweeper is nil")
		return
	}

	w.beat()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Interval возвращает интервал между проходами.
func (w *Worker) Interval() time.Duration {
	return w.interval
}

// LastRun возвращает время последнего прохода или нулевое время, если Run не запускался.
func (w *Worker) LastRun() time.Time {
	nanos := w.lastRun.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (w *Worker) beat() {
	w.lastRun.Store(w.now().UnixNano())
}

func (w *Worker) sweep(ctx context.Context) {
	defer w.beat()
	closed, err := w.Sweep(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		reaperRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).WithField("closed", closed).Warn("idle session sweep failed")
		return
	}

	reaperRunsTotal.WithLabelValues("ok").Inc()
	reaperLastClosed.Set(float64(closed))
	if closed > 0 {
		w.logger.WithField("closed", closed).Info("idle sessions closed")
	}
}

// Sweep закрывает все сессии, простаивающие дольше IdleTTL, порциями batchSize.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	before := w.now().Add(-w.idleTTL)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		closed, err := w.sweeper.CloseIdle(ctx, before, w.batchSize)
		total += closed
		if closed > 0 {
			reaperClosedTotal.Add(float64(closed))
		}
		if err != nil {
			return total, err
		}
		if closed < w.batchSize {
			break
		}
	}

	return total, nil
}
