package pricing

import (
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/shopspring/decimal"
)

// Breakdown — разбивка итоговой суммы корзины.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	// DiscountedSubtotal = max(0, Subtotal - Discount).
	DiscountedSubtotal decimal.Decimal `json:"discountedSubtotal"`
	Tax                decimal.Decimal `json:"tax"`
	Shipping           decimal.Decimal `json:"shipping"`
	Total              decimal.Decimal `json:"total"`
	ItemCount          int             `json:"itemCount"`
}

// Compute считает итоги корзины.
// Налог начисляется на сумму после скидки, доставка добавляется без налога.
func Compute(lines []domain.CartLine, discount, taxRate, shipping decimal.Decimal) Breakdown {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
		count += line.Quantity
	}

	discounted := subtotal.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	tax := discounted.Mul(taxRate).Div(hundred)

	return Breakdown{
		Subtotal:           subtotal,
		Discount:           discount,
		DiscountedSubtotal: discounted,
		Tax:                Round2(tax),
		Shipping:           shipping,
		Total:              Round2(discounted.Add(tax).Add(shipping)),
		ItemCount:          count,
	}
}

// Summary — отформатированная разбивка для отображения.
type Summary struct {
	Currency  string `json:"currency"`
	Subtotal  string `json:"subtotal"`
	Discount  string `json:"discount"`
	Tax       string `json:"tax"`
	Shipping  string `json:"shipping"`
	Total     string `json:"total"`
	ItemCount int    `json:"itemCount"`
}

// Format возвращает разбивку в виде строк в заданной валюте.
func (b Breakdown) Format(currency string) Summary {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Summary{
		Currency:  currency,
		Subtotal:  Format(b.Subtotal, currency),
		Discount:  Format(b.Discount, currency),
		Tax:       Format(b.Tax, currency),
		Shipping:  Format(b.Shipping, currency),
		Total:     Format(b.Total, currency),
		ItemCount: b.ItemCount,
	}
}
