package cartactions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/cart"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/remote"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSession struct {
	userID string
}

func (s staticSession) UserID() string   { return s.userID }
func (s staticSession) IsSignedIn() bool { return s.userID != "" }

// spyAPI считает вызовы и фиксирует флаг обработки в момент запроса.
type spyAPI struct {
	domain.CartAPI

	mu      sync.Mutex
	calls   []string
	sawFlag bool
	actions *Actions
	flagID  string
	listErr error
}

func (s *spyAPI) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	if s.actions != nil && s.flagID != "" && s.actions.IsProcessing(s.flagID) {
		s.sawFlag = true
	}
}

func (s *spyAPI) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *spyAPI) ListCart(ctx context.Context) ([]domain.CartLine, error) {
	s.record("list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.CartAPI.ListCart(ctx)
}

func (s *spyAPI) AddCartItem(ctx context.Context, req domain.AddCartItemRequest) error {
	s.record("add")
	return s.CartAPI.AddCartItem(ctx, req)
}

func (s *spyAPI) UpdateCartItem(ctx context.Context, lineID string, quantity int) error {
	s.record("update")
	return s.CartAPI.UpdateCartItem(ctx, lineID, quantity)
}

func (s *spyAPI) RemoveCartItem(ctx context.Context, lineID string) error {
	s.record("remove")
	return s.CartAPI.RemoveCartItem(ctx, lineID)
}

func (s *spyAPI) ClearCart(ctx context.Context) error {
	s.record("clear")
	return s.CartAPI.ClearCart(ctx)
}

type fixture struct {
	backend  *memory.Backend
	api      *spyAPI
	recorder *notify.Recorder
	mirror   *cart.Engine
	actions  *Actions
	metrics  *metrics.StorefrontMetrics
}

func newFixture(t *testing.T, userID string, confirmer domain.Confirmer) *fixture {
	t.Helper()

	backend := memory.NewBackend()
	api := &spyAPI{CartAPI: backend.ForUser("user-1")}
	recorder := notify.NewRecorder(nil)
	mirror := cart.NewEngine()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	actions := New(api, staticSession{userID: userID}, recorder, confirmer,
		WithMirror(mirror),
		WithMetrics(m),
	)
	api.actions = actions

	return &fixture{
		backend:  backend,
		api:      api,
		recorder: recorder,
		mirror:   mirror,
		actions:  actions,
		metrics:  m,
	}
}

var ring = domain.Product{ID: "ring-1", Name: "Gold Ring", Price: decimal.RequireFromString("1299.50")}

func TestAddToCart_SignedOutIsRejectedWithoutServerCall(t *testing.T) {
	f := newFixture(t, "", notify.AcceptAll())

	ok := f.actions.AddToCart(context.Background(), ring, 1)

	assert.False(t, ok)
	assert.Empty(t, f.api.Calls())
	notes := f.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Sign in required", notes[0].Title)
	assert.Equal(t, domain.NotificationDestructive, notes[0].Variant)
	assert.Empty(t, f.mirror.State().Items)
}

func TestAddToCart_SuccessRefetchesAndLoadsMirror(t *testing.T) {
	f := newFixture(t, "user-1", notify.AcceptAll())
	f.api.flagID = ring.ID

	ok := f.actions.AddToCart(context.Background(), ring, 2)

	require.True(t, ok)
	assert.Equal(t, []string{"add", "list"}, f.api.Calls())
	assert.True(t, f.api.sawFlag, "flag must be set while the request is in flight")
	assert.False(t, f.actions.IsProcessing(ring.ID))

	items := f.actions.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	state := f.mirror.State()
	assert.Equal(t, 2, state.ItemCount)
	assert.Equal(t, "2599", state.Total.String())

	notes := f.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationSuccess, notes[0].Variant)
	assert.Contains(t, notes[0].Description, "Gold Ring")
}

func TestAddToCart_FailureEmitsSingleNotification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "server message",
			err:     &remote.APIError{StatusCode: 409, Message: "Only 1 left in stock"},
			message: "Only 1 left in stock",
		},
		{
			name:    "generic",
			err:     errors.New("connection reset"),
			message: remote.GenericErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "user-1", notify.AcceptAll())
			f.backend.SetFailure(tt.err)

			ok := f.actions.AddToCart(context.Background(), ring, 1)

			assert.False(t, ok)
			assert.False(t, f.actions.IsProcessing(ring.ID))
			notes := f.recorder.Drain()
			require.Len(t, notes, 1)
			assert.Equal(t, tt.message, notes[0].Description)
			assert.Equal(t, domain.NotificationDestructive, notes[0].Variant)
		})
	}
}

func TestUpdateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		wantCalls []string
		wantItems int
	}{
		{name: "positive updates", quantity: 5, wantCalls: []string{"update", "list"}, wantItems: 1},
		{name: "zero removes", quantity: 0, wantCalls: []string{"remove", "list"}, wantItems: 0},
		{name: "negative removes", quantity: -3, wantCalls: []string{"remove", "list"}, wantItems: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "user-1", notify.AcceptAll())
			require.True(t, f.actions.AddToCart(context.Background(), ring, 1))
			f.recorder.Drain()
			f.api.calls = nil

			ok := f.actions.UpdateQuantity(context.Background(), ring.ID, tt.quantity)

			require.True(t, ok)
			assert.Equal(t, tt.wantCalls, f.api.Calls())
			assert.Len(t, f.actions.Items(), tt.wantItems)
			if tt.wantItems > 0 {
				assert.Equal(t, tt.quantity, f.actions.Items()[0].Quantity)
			}
			assert.Empty(t, f.recorder.Drain(), "quantity updates are silent on success")
		})
	}
}

func TestUpdateQuantity_FailureStillRefetches(t *testing.T) {
	f := newFixture(t, "user-1", notify.AcceptAll())

	ok := f.actions.UpdateQuantity(context.Background(), "missing", 2)

	assert.False(t, ok)
	assert.Equal(t, []string{"update", "list"}, f.api.Calls())
	assert.Len(t, f.recorder.Drain(), 1)
	assert.False(t, f.actions.IsProcessing("missing"))
}

func TestRemoveItem_CancelIsNoop(t *testing.T) {
	f := newFixture(t, "user-1", notify.CancelAll())
	require.True(t, f.actions.AddToCart(context.Background(), ring, 1))
	f.recorder.Drain()
	f.api.calls = nil

	ok := f.actions.RemoveItem(context.Background(), ring.ID)

	assert.False(t, ok)
	assert.Empty(t, f.api.Calls())
	assert.Empty(t, f.recorder.Drain())
	assert.Len(t, f.actions.Items(), 1)
}

func TestRemoveItem_ConfirmRemoves(t *testing.T) {
	f := newFixture(t, "user-1", notify.AcceptAll())
	require.True(t, f.actions.AddToCart(context.Background(), ring, 1))
	f.recorder.Drain()

	ok := f.actions.RemoveItem(context.Background(), ring.ID)

	require.True(t, ok)
	assert.Empty(t, f.actions.Items())
	assert.Empty(t, f.mirror.State().Items)
	notes := f.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Item removed", notes[0].Title)
}

func TestClearCart(t *testing.T) {
	t.Run("cancel", func(t *testing.T) {
		f := newFixture(t, "user-1", notify.CancelAll())
		require.True(t, f.actions.AddToCart(context.Background(), ring, 1))
		f.api.calls = nil

		assert.False(t, f.actions.ClearCart(context.Background()))
		assert.Empty(t, f.api.Calls())
		assert.Len(t, f.actions.Items(), 1)
	})

	t.Run("confirm", func(t *testing.T) {
		f := newFixture(t, "user-1", notify.AcceptAll())
		require.True(t, f.actions.AddToCart(context.Background(), ring, 1))
		f.api.calls = nil

		assert.True(t, f.actions.ClearCart(context.Background()))
		assert.Equal(t, []string{"clear", "list"}, f.api.Calls())
		assert.Empty(t, f.actions.Items())
	})

	t.Run("signed out", func(t *testing.T) {
		f := newFixture(t, "", notify.AcceptAll())

		assert.False(t, f.actions.ClearCart(context.Background()))
		assert.Empty(t, f.api.Calls())
		require.Len(t, f.recorder.Drain(), 1)
	})
}

func TestRefetch_FailureKeepsPreviousData(t *testing.T) {
	f := newFixture(t, "user-1", notify.AcceptAll())
	require.True(t, f.actions.AddToCart(context.Background(), ring, 1))
	f.recorder.Drain()

	f.api.listErr = errors.New("timeout")
	assert.False(t, f.actions.Refetch(context.Background()))

	assert.Len(t, f.actions.Items(), 1)
	assert.Equal(t, 1, f.mirror.State().ItemCount)
	assert.Empty(t, f.recorder.Drain(), "refetch failures are not shown to the user")
}
