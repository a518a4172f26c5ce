package remote

import (
	"context"
	"net/url"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

type cartEnvelope struct {
	Items []domain.CartLine `json:"items"`
}

type wishlistEnvelope struct {
	Items []domain.WishlistEntry `json:"items"`
}

// CartClient реализует CartAPI поверх REST.
type CartClient struct {
	c *Client
}

// NewCartClient создаёт клиента корзины.
func NewCartClient(c *Client) *CartClient {
	return &CartClient{c: c}
}

// ListCart: GET /cart.
func (a *CartClient) ListCart(ctx context.Context) ([]domain.CartLine, error) {
	var env cartEnvelope
	if err := a.c.Get(ctx, "/cart", &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// AddCartItem: POST /cart.
func (a *CartClient) AddCartItem(ctx context.Context, req domain.AddCartItemRequest) error {
	return a.c.Post(ctx, "/cart", req, nil)
}

// UpdateCartItem: PUT /cart/{id}.
func (a *CartClient) UpdateCartItem(ctx context.Context, lineID string, quantity int) error {
	body := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}
	return a.c.Put(ctx, "/cart/"+url.PathEscape(lineID), body, nil)
}

// RemoveCartItem: DELETE /cart/{id}.
func (a *CartClient) RemoveCartItem(ctx context.Context, lineID string) error {
	return a.c.Delete(ctx, "/cart/"+url.PathEscape(lineID), nil)
}

// ClearCart: DELETE /cart.
func (a *CartClient) ClearCart(ctx context.Context) error {
	return a.c.Delete(ctx, "/cart", nil)
}

// WishlistClient реализует WishlistAPI поверх REST.
type WishlistClient struct {
	c *Client
}

// NewWishlistClient создаёт клиента избранного.
func NewWishlistClient(c *Client) *WishlistClient {
	return &WishlistClient{c: c}
}

// ListWishlist: GET /wishlist.
func (a *WishlistClient) ListWishlist(ctx context.Context) ([]domain.WishlistEntry, error) {
	var env wishlistEnvelope
	if err := a.c.Get(ctx, "/wishlist", &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// AddToWishlist: POST /wishlist.
func (a *WishlistClient) AddToWishlist(ctx context.Context, productID string) error {
	body := struct {
		ProductID string `json:"productId"`
	}{ProductID: productID}
	return a.c.Post(ctx, "/wishlist", body, nil)
}

// RemoveFromWishlist: DELETE /wishlist/{productId}.
func (a *WishlistClient) RemoveFromWishlist(ctx context.Context, productID string) error {
	return a.c.Delete(ctx, "/wishlist/"+url.PathEscape(productID), nil)
}

// OrderClient реализует OrderAPI поверх REST.
type OrderClient struct {
	c *Client
}

// NewOrderClient создаёт клиента заказов.
func NewOrderClient(c *Client) *OrderClient {
	return &OrderClient{c: c}
}

// CreateOrder: POST /orders.
func (a *OrderClient) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.OrderReceipt, error) {
	var receipt domain.OrderReceipt
	if err := a.c.Post(ctx, "/orders", req, &receipt); err != nil {
		return domain.OrderReceipt{}, err
	}
	return receipt, nil
}

// VerifyPayment: POST /payments/verify.
func (a *OrderClient) VerifyPayment(ctx context.Context, req domain.VerifyPaymentRequest) (domain.VerifyPaymentResult, error) {
	var result domain.VerifyPaymentResult
	if err := a.c.Post(ctx, "/payments/verify", req, &result); err != nil {
		return domain.VerifyPaymentResult{}, err
	}
	return result, nil
}

var (
	_ domain.CartAPI     = (*CartClient)(nil)
	_ domain.WishlistAPI = (*WishlistClient)(nil)
	_ domain.OrderAPI    = (*OrderClient)(nil)
)
