package cart

import (
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/shopspring/decimal"
)

// Reduce применяет действие к состоянию и возвращает новое состояние.
// Исходное состояние не изменяется. Производные поля пересчитываются всегда,
// LastUpdated меняется только если изменились позиции или параметры цены.
func Reduce(state domain.CartState, action Action, now time.Time) domain.CartState {
	next := state.Clone()
	stamp := false

	switch a := action.(type) {
	case AddLine:
		next.Items = addLine(next.Items, a)
	case RemoveLine:
		next.Items = removeLine(next.Items, a.ID)
	case SetQuantity:
		if a.Quantity <= 0 {
			next.Items = removeLine(next.Items, a.ID)
			break
		}
		for i := range next.Items {
			if next.Items[i].ID == a.ID {
				next.Items[i].Quantity = a.Quantity
				break
			}
		}
	case Clear:
		next.Items = []domain.CartLine{}
		next.Discount = decimal.Zero
	case ApplyDiscount:
		next.Discount = nonNegative(a.Amount)
	case SetShipping:
		next.ShippingFee = nonNegative(a.Amount)
	case SetTax:
		next.TaxRate = nonNegative(a.Percent)
	case Load:
		next.Items = normalizeLines(a.Items)
	case restore:
		next.Items = normalizeLines(a.items)
		next.TaxRate = nonNegative(a.meta.Tax)
		next.ShippingFee = nonNegative(a.meta.Shipping)
		next.Discount = nonNegative(a.meta.Discount)
		next.IsLoading = false
		stamp = true
		if !a.meta.LastUpdated.IsZero() {
			now = a.meta.LastUpdated
		}
	}

	if stamp || Changed(state, next) {
		next.LastUpdated = now
	}
	return recalculate(next)
}

// Changed сообщает, различаются ли состояния позициями или параметрами цены.
// Производные поля и LastUpdated не учитываются.
func Changed(prev, next domain.CartState) bool {
	if !prev.Discount.Equal(next.Discount) ||
		!prev.TaxRate.Equal(next.TaxRate) ||
		!prev.ShippingFee.Equal(next.ShippingFee) {
		return true
	}
	if len(prev.Items) != len(next.Items) {
		return true
	}
	for i := range prev.Items {
		a, b := prev.Items[i], next.Items[i]
		if a.ID != b.ID || a.Name != b.Name || a.ImageRef != b.ImageRef ||
			a.Quantity != b.Quantity || !a.UnitPrice.Equal(b.UnitPrice) {
			return true
		}
	}
	return false
}

// recalculate — единственное место, где вычисляются производные поля.
func recalculate(state domain.CartState) domain.CartState {
	b := pricing.Compute(state.Items, state.Discount, state.TaxRate, state.ShippingFee)
	state.Subtotal = b.Subtotal
	state.Total = b.Total
	state.ItemCount = b.ItemCount
	return state
}

func addLine(items []domain.CartLine, a AddLine) []domain.CartLine {
	if a.ID == "" {
		return items
	}
	qty := a.Quantity
	if qty < 1 {
		qty = 1
	}

	for i := range items {
		if items[i].ID == a.ID {
			items[i].Quantity += qty
			return items
		}
	}

	return append(items, domain.CartLine{
		ID:        a.ID,
		Name:      a.Name,
		UnitPrice: nonNegative(a.UnitPrice),
		Quantity:  qty,
		ImageRef:  a.ImageRef,
	})
}

func removeLine(items []domain.CartLine, id string) []domain.CartLine {
	for i := range items {
		if items[i].ID == id {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

// normalizeLines отбрасывает позиции с количеством <= 0 и сливает дубликаты, сохраняя порядок.
func normalizeLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))

	for _, line := range lines {
		if line.ID == "" || line.Quantity <= 0 {
			continue
		}
		if i, ok := index[line.ID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		line.UnitPrice = nonNegative(line.UnitPrice)
		index[line.ID] = len(out)
		out = append(out, line)
	}
	return out
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
