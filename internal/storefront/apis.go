package storefront

import (
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/remote"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storage/memory"
)

// APIs — удалённые сервисы, доступные от имени одного пользователя.
type APIs struct {
	Cart     domain.CartAPI
	Wishlist domain.WishlistAPI
	Orders   domain.OrderAPI
}

// APIFactory создаёт клиентов для пользователя. token может быть пустым.
type APIFactory interface {
	ForUser(userID, token string) APIs
}

// MemoryAPIs обслуживает пользователей in-memory backend-ом и заглушкой заказов.
type MemoryAPIs struct {
	Backend *memory.Backend
	Orders  domain.OrderAPI
}

// ForUser реализует APIFactory.
func (f MemoryAPIs) ForUser(userID, _ string) APIs {
	user := f.Backend.ForUser(userID)
	return APIs{Cart: user, Wishlist: user, Orders: f.Orders}
}

// RemoteAPIs ходит в удалённое REST API с bearer-токеном пользователя.
type RemoteAPIs struct {
	Client *remote.Client
}

// ForUser реализует APIFactory.
func (f RemoteAPIs) ForUser(_ string, token string) APIs {
	client := f.Client
	if token != "" {
		client = client.WithToken(remote.StaticToken(token))
	}
	return APIs{
		Cart:     remote.NewCartClient(client),
		Wishlist: remote.NewWishlistClient(client),
		Orders:   remote.NewOrderClient(client),
	}
}

var (
	_ APIFactory = MemoryAPIs{}
	_ APIFactory = RemoteAPIs{}
)
