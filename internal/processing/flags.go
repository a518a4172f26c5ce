package processing

import (
	"sync"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
)

// FlagSet хранит признаки "запрос в полёте" по идентификатору товара или позиции.
// Флаги эфемерные и не сохраняются. Конкурирующие Mark/Clear по одному ID не сериализуются:
// выигрывает последняя запись.
type FlagSet struct {
	mu      sync.RWMutex
	flags   map[string]bool
	metrics *metrics.StorefrontMetrics
}

// NewFlagSet создаёт пустой набор флагов. metrics может быть nil.
func NewFlagSet(m *metrics.StorefrontMetrics) *FlagSet {
	return &FlagSet{
		flags:   make(map[string]bool),
		metrics: m,
	}
}

// Mark выставляет флаг для ID.
func (f *FlagSet) Mark(id string) {
	f.mu.Lock()
	added := !f.flags[id]
	f.flags[id] = true
	f.mu.Unlock()
	if added {
		f.report(1)
	}
}

// Clear снимает флаг.
func (f *FlagSet) Clear(id string) {
	f.mu.Lock()
	present := f.flags[id]
	delete(f.flags, id)
	f.mu.Unlock()
	if present {
		f.report(-1)
	}
}

// IsProcessing сообщает, выставлен ли флаг.
func (f *FlagSet) IsProcessing(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.flags[id]
}

// Snapshot возвращает копию всех выставленных флагов.
func (f *FlagSet) Snapshot() map[string]bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]bool, len(f.flags))
	for id, v := range f.flags {
		out[id] = v
	}
	return out
}

// Reset снимает все флаги (например, при выходе из аккаунта).
func (f *FlagSet) Reset() {
	f.mu.Lock()
	n := len(f.flags)
	f.flags = make(map[string]bool)
	f.mu.Unlock()
	f.report(-n)
}

func (f *FlagSet) report(delta int) {
	if f.metrics != nil && delta != 0 {
		f.metrics.AddProcessingInFlight(delta)
	}
}
