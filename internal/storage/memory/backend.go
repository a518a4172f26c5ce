package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

// Backend — in-memory сервер корзин и избранного для локальной разработки и тестов.
// Данные каждого пользователя изолированы; доступ идёт через ForUser.
type Backend struct {
	mu        sync.RWMutex
	carts     map[string][]domain.CartLine
	wishlists map[string][]domain.WishlistEntry
	failure   error
	now       func() time.Time
}

// NewBackend создаёт пустой backend.
func NewBackend() *Backend {
	return &Backend{
		carts:     make(map[string][]domain.CartLine),
		wishlists: make(map[string][]domain.WishlistEntry),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetFailure заставляет все изменяющие вызовы возвращать err. nil снимает отказ.
func (b *Backend) SetFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failure = err
}

// ForUser возвращает API корзины и избранного от имени пользователя.
func (b *Backend) ForUser(userID string) *UserBackend {
	return &UserBackend{backend: b, userID: userID}
}

// UserBackend реализует CartAPI и WishlistAPI для одного пользователя.
type UserBackend struct {
	backend *Backend
	userID  string
}

// ListCart возвращает копию корзины пользователя.
func (u *UserBackend) ListCart(context.Context) ([]domain.CartLine, error) {
	b := u.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	lines := b.carts[u.userID]
	result := make([]domain.CartLine, len(lines))
	copy(result, lines)
	return result, nil
}

// AddCartItem добавляет товар или увеличивает количество существующей позиции.
func (u *UserBackend) AddCartItem(_ context.Context, req domain.AddCartItemRequest) error {
	if errs := req.Validate(); len(errs) > 0 {
		return errs[0]
	}

	b := u.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return b.failure
	}

	lines := b.carts[u.userID]
	for i := range lines {
		if lines[i].ID == req.ProductID {
			lines[i].Quantity += req.Quantity
			return nil
		}
	}
	b.carts[u.userID] = append(lines, domain.CartLine{
		ID:        req.ProductID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
		ImageRef:  req.ImageRef,
	})
	return nil
}

// UpdateCartItem выставляет количество; quantity <= 0 удаляет позицию.
func (u *UserBackend) UpdateCartItem(ctx context.Context, lineID string, quantity int) error {
	if quantity <= 0 {
		return u.RemoveCartItem(ctx, lineID)
	}

	b := u.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return b.failure
	}

	lines := b.carts[u.userID]
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrLineNotFound
}

// RemoveCartItem удаляет позицию. Отсутствующая позиция не считается ошибкой.
func (u *UserBackend) RemoveCartItem(_ context.Context, lineID string) error {
	b := u.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return b.failure
	}

	lines := b.carts[u.userID]
	for i := range lines {
		if lines[i].ID == lineID {
			b.carts[u.userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

// ClearCart удаляет все позиции пользователя.
func (u *UserBackend) ClearCart(context.Context) error {
	b := u.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return b.failure
	}

	delete(b.carts, u.userID)
	return nil
}

// ListWishlist возвращает избранное в порядке добавления.
func (u *UserBackend) ListWishlist(context.Context) ([]domain.WishlistEntry, error) {
	b := u.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := b.wishlists[u.userID]
	result := make([]domain.WishlistEntry, len(entries))
	copy(result, entries)
	return result, nil
}

// AddToWishlist добавляет товар; повторное добавление ничего не меняет.
func (u *UserBackend) AddToWishlist(_ context.Context, productID string) error {
	if productID == "" {
		return domain.ErrProductIDRequired
	}

	b := u.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return b.failure
	}

	for _, e := range b.wishlists[u.userID] {
		if e.ProductID == productID {
			return nil
		}
	}
	b.wishlists[u.userID] = append(b.wishlists[u.userID], domain.WishlistEntry{
		ProductID: productID,
		AddedAt:   b.now(),
	})
	return nil
}

// RemoveFromWishlist удаляет товар из избранного.
func (u *UserBackend) RemoveFromWishlist(_ context.Context, productID string) error {
	b := u.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return b.failure
	}

	entries := b.wishlists[u.userID]
	for i := range entries {
		if entries[i].ProductID == productID {
			b.wishlists[u.userID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

var (
	_ domain.CartAPI     = (*UserBackend)(nil)
	_ domain.WishlistAPI = (*UserBackend)(nil)
)
