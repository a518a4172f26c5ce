package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// Ключи хранилища. С непустым префиксом ключ имеет вид "<prefix>:cart_items".
const (
	KeyCartItems    = "cart_items"
	KeyCartMetadata = "cart_metadata"
)

const defaultWriteTimeout = 5 * time.Second

// Persister сохраняет снимки корзины в key-value хранилище в фоне.
// Запись выполняется по принципу best effort: ошибки логируются и считаются в метриках,
// но не возвращаются вызывающему. Более старый снимок никогда не перезаписывает более новый.
type Persister struct {
	store   domain.KeyValueStore
	prefix  string
	timeout time.Duration
	logger  *log.Entry
	metrics *metrics.StorefrontMetrics

	seq     atomic.Uint64
	writeMu sync.Mutex
	// latest хранит номер последнего снимка, запись которого уже выполнялась.
	latest uint64
	wg      sync.WaitGroup
}

// PersisterOption настраивает Persister.
type PersisterOption func(*Persister)

// WithWriteTimeout задаёт таймаут одной записи.
func WithWriteTimeout(d time.Duration) PersisterOption {
	return func(p *Persister) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPersisterLogger задаёт логгер.
func WithPersisterLogger(logger *log.Entry) PersisterOption {
	return func(p *Persister) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPersisterMetrics включает метрики записи.
func WithPersisterMetrics(m *metrics.StorefrontMetrics) PersisterOption {
	return func(p *Persister) {
		p.metrics = m
	}
}

// NewPersister создаёт Persister поверх хранилища.
func NewPersister(store domain.KeyValueStore, prefix string, opts ...PersisterOption) *Persister {
	p := &Persister{
		store:   store,
		prefix:  prefix,
		timeout: defaultWriteTimeout,
		logger:  log.New().WithField("component", "cart-persister"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ItemsKey возвращает полный ключ позиций корзины.
func (p *Persister) ItemsKey() string { return p.key(KeyCartItems) }

// MetadataKey возвращает полный ключ метаданных корзины.
func (p *Persister) MetadataKey() string { return p.key(KeyCartMetadata) }

func (p *Persister) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + ":" + name
}

type snapshot struct {
	seq      uint64
	items    []byte
	metadata []byte
}

// Schedule ставит запись состояния в очередь и сразу возвращает управление.
// Порядок вызовов Schedule определяет порядок версий.
func (p *Persister) Schedule(state domain.CartState) {
	items := state.Items
	if items == nil {
		items = []domain.CartLine{}
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		p.logger.WithError(err).Warn("failed to encode cart items")
		return
	}
	metaJSON, err := json.Marshal(state.Metadata())
	if err != nil {
		p.logger.WithError(err).Warn("failed to encode cart metadata")
		return
	}

	snap := snapshot{seq: p.seq.Add(1), items: itemsJSON, metadata: metaJSON}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.write(snap)
	}()
}

func (p *Persister) write(snap snapshot) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if snap.seq <= p.latest {
		return
	}
	p.latest = snap.seq

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err := p.store.SetItem(ctx, p.ItemsKey(), string(snap.items))
	if err == nil {
		err = p.store.SetItem(ctx, p.MetadataKey(), string(snap.metadata))
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailure
		p.logger.WithError(err).WithField("seq", snap.seq).Warn("failed to persist cart")
	}
	if p.metrics != nil {
		p.metrics.RecordPersistWrite(result, time.Since(start))
	}
}

// Load читает позиции и метаданные за один проход.
// Отсутствующие или повреждённые значения считаются пустыми; found=false, если нет ни одного ключа.
func (p *Persister) Load(ctx context.Context) (items []domain.CartLine, meta domain.CartMetadata, found bool, err error) {
	rawItems, okItems, err := p.store.GetItem(ctx, p.ItemsKey())
	if err != nil {
		return nil, domain.CartMetadata{}, false, fmt.Errorf("read %s: %w", p.ItemsKey(), err)
	}
	rawMeta, okMeta, err := p.store.GetItem(ctx, p.MetadataKey())
	if err != nil {
		return nil, domain.CartMetadata{}, false, fmt.Errorf("read %s: %w", p.MetadataKey(), err)
	}

	if okItems {
		if err := json.Unmarshal([]byte(rawItems), &items); err != nil {
			p.logger.WithError(err).WithField("key", p.ItemsKey()).Warn("corrupt cart items, ignoring")
			items, okItems = nil, false
		}
	}
	if okMeta {
		if err := json.Unmarshal([]byte(rawMeta), &meta); err != nil {
			p.logger.WithError(err).WithField("key", p.MetadataKey()).Warn("corrupt cart metadata, ignoring")
			meta, okMeta = domain.CartMetadata{}, false
		}
	}

	return items, meta, okItems || okMeta, nil
}

// Flush ждёт завершения всех запланированных записей.
func (p *Persister) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("cart persister flush interrupted"), ctx.Err())
	}
}
