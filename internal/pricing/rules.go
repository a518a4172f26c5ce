package pricing

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrCouponInvalid — купон не найден или некорректен.
	ErrCouponInvalid = errors.New("coupon is invalid")
	// ErrCouponNotEligible — сумма корзины ниже минимальной для купона.
	ErrCouponNotEligible = errors.New("cart is not eligible for coupon")
)

// CouponType определяет способ расчёта скидки.
type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// Coupon — правило скидки.
type Coupon struct {
	Code        string          `json:"code"`
	Type        CouponType      `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MinSubtotal decimal.Decimal `json:"minSubtotal"`
}

// Validate проверяет корректность купона.
func (c Coupon) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrCouponInvalid)
	}
	if c.Value.IsNegative() {
		return fmt.Errorf("%w: value must be non-negative", ErrCouponInvalid)
	}
	switch c.Type {
	case CouponPercentage, CouponFixed:
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrCouponInvalid, c.Type)
	}
}

// Discount возвращает абсолютную скидку для заданной суммы корзины.
// Процент ограничен диапазоном 0–100, фиксированная скидка не превышает сумму.
func (c Coupon) Discount(subtotal decimal.Decimal) (decimal.Decimal, error) {
	if err := c.Validate(); err != nil {
		return decimal.Zero, err
	}
	if subtotal.LessThan(c.MinSubtotal) {
		return decimal.Zero, fmt.Errorf("%w: minimum %s", ErrCouponNotEligible, c.MinSubtotal.StringFixed(2))
	}

	switch c.Type {
	case CouponPercentage:
		pct := decimal.Min(c.Value, hundred)
		return Round2(subtotal.Mul(pct).Div(hundred)), nil
	default:
		return decimal.Min(c.Value, subtotal), nil
	}
}

// CouponBook — потокобезопасный справочник купонов по коду.
type CouponBook struct {
	mu      sync.RWMutex
	coupons map[string]Coupon
}

// NewCouponBook создаёт справочник из списка купонов. Некорректные купоны пропускаются.
func NewCouponBook(coupons ...Coupon) *CouponBook {
	b := &CouponBook{coupons: make(map[string]Coupon, len(coupons))}
	for _, c := range coupons {
		_ = b.Add(c)
	}
	return b
}

// Add регистрирует купон. Код нечувствителен к регистру.
func (b *CouponBook) Add(c Coupon) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coupons[normalizeCode(c.Code)] = c
	return nil
}

// Lookup ищет купон по коду.
func (b *CouponBook) Lookup(code string) (Coupon, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.coupons[normalizeCode(code)]
	if !ok {
		return Coupon{}, fmt.Errorf("%w: %s", ErrCouponInvalid, code)
	}
	return c, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ShippingRule — правило стоимости доставки.
type ShippingRule struct {
	FlatFee decimal.Decimal `json:"flatFee"`
	// FreeAbove задаёт порог бесплатной доставки; ноль отключает порог.
	FreeAbove decimal.Decimal `json:"freeAbove"`
}

// Fee возвращает стоимость доставки для суммы корзины. Пустая корзина доставляется бесплатно.
func (r ShippingRule) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	if r.FreeAbove.IsPositive() && subtotal.GreaterThanOrEqual(r.FreeAbove) {
		return decimal.Zero
	}
	if r.FlatFee.IsNegative() {
		return decimal.Zero
	}
	return r.FlatFee
}
