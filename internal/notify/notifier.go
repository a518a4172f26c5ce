package notify

import (
	"context"
	"sync"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// LogNotifier пишет уведомления в лог.
type LogNotifier struct {
	logger  *log.Entry
	metrics *metrics.StorefrontMetrics
}

// NewLogNotifier создаёт LogNotifier. metrics может быть nil.
func NewLogNotifier(logger *log.Entry, m *metrics.StorefrontMetrics) *LogNotifier {
	if logger == nil {
		logger = log.New().WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger, metrics: m}
}

// Notify логирует уведомление; destructive пишется на уровне Warn.
func (n *LogNotifier) Notify(note domain.Notification) {
	entry := n.logger.WithFields(log.Fields{
		"title":   note.Title,
		"variant": string(note.Variant),
	})
	if note.Variant == domain.NotificationDestructive {
		entry.Warn(note.Description)
	} else {
		entry.Info(note.Description)
	}
	if n.metrics != nil {
		n.metrics.RecordNotification(string(note.Variant))
	}
}

// Recorder накапливает уведомления, чтобы отдать их вместе с ответом.
// Опционально пересылает каждое уведомление дальше.
type Recorder struct {
	mu    sync.Mutex
	notes []domain.Notification
	next  domain.Notifier
}

// NewRecorder создаёт Recorder. next может быть nil.
func NewRecorder(next domain.Notifier) *Recorder {
	return &Recorder{next: next}
}

// Notify сохраняет уведомление.
func (r *Recorder) Notify(note domain.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, note)
	r.mu.Unlock()

	if r.next != nil {
		r.next.Notify(note)
	}
}

// Fork создаёт пустой Recorder с тем же получателем пересылки.
func (r *Recorder) Fork() *Recorder {
	return NewRecorder(r.next)
}

// Drain возвращает накопленные уведомления и очищает буфер.
func (r *Recorder) Drain() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.notes
	r.notes = nil
	if out == nil {
		out = []domain.Notification{}
	}
	return out
}

// Len возвращает количество накопленных уведомлений.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

type recorderKey struct{}

// WithRecorder привязывает Recorder к контексту одного запроса.
func WithRecorder(ctx context.Context, rec *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, rec)
}

// RecorderFrom возвращает Recorder запроса или nil.
func RecorderFrom(ctx context.Context) *Recorder {
	rec, _ := ctx.Value(recorderKey{}).(*Recorder)
	return rec
}

// Emit отдаёт уведомление Recorder'у из контекста, а без него отдаёт его fallback.
// Так параллельные запросы одного пользователя получают только свои уведомления.
func Emit(ctx context.Context, fallback domain.Notifier, note domain.Notification) {
	if rec := RecorderFrom(ctx); rec != nil {
		rec.Notify(note)
		return
	}
	if fallback != nil {
		fallback.Notify(note)
	}
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (*Recorder)(nil)
)
