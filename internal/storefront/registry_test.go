package storefront

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/service/payment"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storage/memory"
)

func newRegistry(t *testing.T, cfg Config, store domain.KeyValueStore) (*Registry, *memory.Backend) {
	t.Helper()
	backend := memory.NewBackend()
	apis := MemoryAPIs{Backend: backend, Orders: payment.NewMockService(0)}
	reg := NewRegistry(cfg, store, apis,
		WithConfirmer(notify.AcceptAll()),
		WithTimeline(memory.NewTimelineRepository()),
		WithMetrics(metrics.NewWithRegisterer(prometheus.NewRegistry())),
	)
	return reg, backend
}

var earring = domain.Product{ID: "earring-1", Name: "Pearl Earring", Price: decimal.RequireFromString("899.00")}

func TestRegistry_OpenIsIdempotent(t *testing.T) {
	reg, _ := newRegistry(t, DefaultConfig(), memory.NewKVStore())
	ctx := context.Background()

	first, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)
	second, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_OpenRequiresUser(t *testing.T) {
	reg, _ := newRegistry(t, DefaultConfig(), nil)

	_, err := reg.Open(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestRegistry_CartSurvivesSessionRestart(t *testing.T) {
	store := memory.NewKVStore()
	reg, _ := newRegistry(t, DefaultConfig(), store)
	ctx := context.Background()

	sf, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)
	require.True(t, sf.Cart.AddToCart(ctx, earring, 2))
	assert.Equal(t, 2, sf.Engine.State().ItemCount)

	require.NoError(t, reg.Close(ctx, "user-1"))
	assert.Equal(t, 0, reg.Len())

	_, ok, err := store.GetItem(ctx, "tishyaa:user-1:cart_items")
	require.NoError(t, err)
	assert.True(t, ok)

	reopened, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)
	assert.NotSame(t, sf, reopened)
	assert.Equal(t, 2, reopened.Engine.State().ItemCount)
	assert.Equal(t, "₹1,798.00", reopened.Summary().Total)
}

func TestRegistry_ClosedSessionRejectsActions(t *testing.T) {
	reg, _ := newRegistry(t, DefaultConfig(), nil)
	ctx := context.Background()

	sf, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, reg.Close(ctx, "user-1"))

	assert.False(t, sf.Cart.AddToCart(ctx, earring, 1))
	notes := sf.Notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Sign in required", notes[0].Title)

	assert.ErrorIs(t, reg.Close(ctx, "user-1"), domain.ErrSessionNotFound)
}

func TestRegistry_UsersAreIsolated(t *testing.T) {
	reg, _ := newRegistry(t, DefaultConfig(), memory.NewKVStore())
	ctx := context.Background()

	alice, err := reg.Open(ctx, "alice", "")
	require.NoError(t, err)
	bob, err := reg.Open(ctx, "bob", "")
	require.NoError(t, err)

	require.True(t, alice.Cart.AddToCart(ctx, earring, 1))
	require.True(t, bob.Wishlist.Toggle(ctx, earring.ID))

	assert.Len(t, alice.Cart.Items(), 1)
	assert.Empty(t, bob.Cart.Items())
	assert.True(t, bob.Wishlist.Contains(earring.ID))
	assert.False(t, alice.Wishlist.Contains(earring.ID))

	require.NoError(t, reg.CloseAll(ctx))
	assert.Zero(t, reg.Len())
}

func TestRegistry_PricingConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaxRate = decimal.NewFromInt(3)
	cfg.Shipping = pricing.ShippingRule{FlatFee: decimal.NewFromInt(99), FreeAbove: decimal.NewFromInt(1500)}
	reg, _ := newRegistry(t, cfg, nil)
	ctx := context.Background()

	sf, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)

	require.True(t, sf.Cart.AddToCart(ctx, earring, 1))
	sf.Reprice()
	// 899 + 3% налога + 99 доставки
	assert.Equal(t, "1024.97", sf.Engine.State().Total.StringFixed(2))

	require.True(t, sf.Cart.UpdateQuantity(ctx, earring.ID, 2))
	sf.Reprice()
	// 1798 выше порога бесплатной доставки
	assert.Equal(t, "1851.94", sf.Engine.State().Total.StringFixed(2))
}

func TestRegistry_PaymentUsesSession(t *testing.T) {
	reg, _ := newRegistry(t, DefaultConfig(), nil)
	ctx := context.Background()

	sf, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)

	ok := sf.Payments.ProcessPayment(ctx, domain.PaymentRequest{
		Method: domain.PaymentMethodCOD,
		Amount: decimal.NewFromInt(899),
	})
	assert.True(t, ok)
	assert.Equal(t, domain.PaymentStepIdle, sf.Payments.Step())
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistry_CloseIdle(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	store := memory.NewKVStore()
	reg := NewRegistry(DefaultConfig(), store, MemoryAPIs{Backend: memory.NewBackend(), Orders: payment.NewMockService(0)},
		WithConfirmer(notify.AcceptAll()),
		WithClock(clock.Now),
	)
	ctx := context.Background()

	stale, err := reg.Open(ctx, "stale", "")
	require.NoError(t, err)
	require.True(t, stale.Cart.AddToCart(ctx, earring, 1))

	clock.Advance(20 * time.Minute)
	_, err = reg.Open(ctx, "fresh", "")
	require.NoError(t, err)

	closed, err := reg.CloseIdle(ctx, clock.Now().Add(-10*time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	_, ok := reg.Get("stale")
	assert.False(t, ok)
	_, ok = reg.Get("fresh")
	assert.True(t, ok)

	// корзина закрытой сессии сохранена и поднимется при следующем входе
	reopened, err := reg.Open(ctx, "stale", "")
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Engine.State().ItemCount)
}

func TestRegistry_CloseIdleRespectsLimitAndActivity(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	reg := NewRegistry(DefaultConfig(), nil, MemoryAPIs{Backend: memory.NewBackend(), Orders: payment.NewMockService(0)},
		WithClock(clock.Now),
	)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := reg.Open(ctx, id, "")
		require.NoError(t, err)
	}
	clock.Advance(time.Hour)
	_, ok := reg.Get("c")
	require.True(t, ok)

	closed, err := reg.CloseIdle(ctx, clock.Now().Add(-time.Minute), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 2, reg.Len())

	closed, err = reg.CloseIdle(ctx, clock.Now().Add(-time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	_, ok = reg.Get("c")
	assert.True(t, ok, "recently used session must stay open")
}

func TestRegistry_CartAndWishlistFlagsAreSeparate(t *testing.T) {
	reg, _ := newRegistry(t, DefaultConfig(), memory.NewKVStore())
	ctx := context.Background()

	sf, err := reg.Open(ctx, "user-1", "")
	require.NoError(t, err)

	// Добавление в корзину ещё выполняется, а тот же товар переключают в избранном.
	sf.CartFlags.Mark(earring.ID)
	require.True(t, sf.Wishlist.Toggle(ctx, earring.ID))

	assert.True(t, sf.Cart.IsProcessing(earring.ID), "wishlist toggle keeps the cart flag")
	assert.False(t, sf.Wishlist.IsProcessing(earring.ID))

	require.NoError(t, reg.Close(ctx, "user-1"))
	assert.False(t, sf.Cart.IsProcessing(earring.ID))
}
