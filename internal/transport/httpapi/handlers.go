package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/cart"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storefront"
)

type cartView struct {
	Items       []domain.CartLine `json:"items"`
	Summary     pricing.Summary   `json:"summary"`
	Processing  map[string]bool   `json:"processing"`
	IsLoading   bool              `json:"isLoading"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

func cartViewOf(sf *storefront.Storefront) cartView {
	state := sf.Engine.State()
	return cartView{
		Items:       state.Items,
		Summary:     sf.Summary(),
		Processing:  sf.CartFlags.Snapshot(),
		IsLoading:   state.IsLoading,
		LastUpdated: state.LastUpdated,
	}
}

type addLineRequest struct {
	domain.Product
	Quantity int `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type taxRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	if r.URL.Query().Get("refresh") == "true" {
		sf.Cart.Refetch(r.Context())
		sf.Reprice()
	}
	writeResult(w, r, http.StatusOK, nil, cartViewOf(sf))
}

func (s *Server) addLine(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	var req addLineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, domain.ErrProductIDRequired.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ok := sf.Cart.AddToCart(detach(r.Context()), req.Product, req.Quantity)
	sf.Reprice()
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

func (s *Server) updateLine(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	var req quantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok := sf.Cart.UpdateQuantity(detach(r.Context()), mux.Vars(r)["lineID"], req.Quantity)
	sf.Reprice()
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

func (s *Server) removeLine(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	ok := sf.Cart.RemoveItem(detach(r.Context()), mux.Vars(r)["lineID"])
	sf.Reprice()
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	ok := sf.Cart.ClearCart(detach(r.Context()))
	sf.Reprice()
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

func (s *Server) applyDiscount(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sf.Engine.Dispatch(cart.ApplyDiscount{Amount: req.Amount})
	ok := true
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

func (s *Server) applyCoupon(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	var req couponRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	coupon, err := s.registry.Coupons().Lookup(req.Code)
	if err == nil {
		_, err = sf.Engine.ApplyCoupon(coupon)
	}
	if err != nil {
		description := "This coupon code is not valid."
		if errors.Is(err, pricing.ErrCouponNotEligible) {
			description = "Your cart does not meet the minimum amount for this coupon."
		}
		notify.Emit(r.Context(), sf.Notes, domain.Notification{
			Title:       "Coupon not applied",
			Description: description,
			Variant:     domain.NotificationDestructive,
		})
		ok := false
		writeResult(w, r, http.StatusUnprocessableEntity, &ok, cartViewOf(sf))
		return
	}

	notify.Emit(r.Context(), sf.Notes, domain.Notification{
		Title:       "Coupon applied",
		Description: coupon.Code,
		Variant:     domain.NotificationSuccess,
	})
	ok := true
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

func (s *Server) setShipping(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sf.Engine.Dispatch(cart.SetShipping{Amount: req.Amount})
	ok := true
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

func (s *Server) setTax(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	var req taxRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sf.Engine.Dispatch(cart.SetTax{Percent: req.Percent})
	ok := true
	writeResult(w, r, http.StatusOK, &ok, cartViewOf(sf))
}

type wishlistView struct {
	Entries    []domain.WishlistEntry `json:"entries"`
	Processing map[string]bool        `json:"processing"`
}

func wishlistViewOf(sf *storefront.Storefront) wishlistView {
	return wishlistView{
		Entries:    sf.Wishlist.Entries(),
		Processing: sf.WishlistFlags.Snapshot(),
	}
}

func (s *Server) getWishlist(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	if r.URL.Query().Get("refresh") == "true" {
		sf.Wishlist.Refetch(r.Context())
	}
	writeResult(w, r, http.StatusOK, nil, wishlistViewOf(sf))
}

func (s *Server) toggleWishlist(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	ok := sf.Wishlist.Toggle(detach(r.Context()), mux.Vars(r)["productID"])
	writeResult(w, r, http.StatusOK, &ok, wishlistViewOf(sf))
}

type paymentView struct {
	Step domain.PaymentStep `json:"step"`
}

func (s *Server) processPayment(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	var req domain.PaymentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = sf.Currency()
	}

	ok := sf.Payments.ProcessPayment(detach(r.Context()), req)
	if ok {
		sf.Cart.Refetch(r.Context())
		sf.Reprice()
	}
	writeResult(w, r, http.StatusOK, &ok, paymentView{Step: sf.Payments.Step()})
}

func (s *Server) paymentStep(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront) {
	writeResult(w, r, http.StatusOK, nil, paymentView{Step: sf.Payments.Step()})
}
