package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine представляет одну позицию корзины.
type CartLine struct {
	// ID хранит стабильный идентификатор товара (он же идентификатор строки корзины).
	ID   string `json:"id"`
	Name string `json:"name"`
	// UnitPrice задаёт цену за единицу в рупиях, она всегда неотрицательна.
	UnitPrice decimal.Decimal `json:"price"`
	// Quantity задаёт количество; строка с Quantity <= 0 в корзине существовать не может.
	Quantity int    `json:"quantity"`
	ImageRef string `json:"image,omitempty"`
}

// LineTotal возвращает стоимость позиции: цена × количество.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartState агрегирует состояние корзины одной пользовательской сессии.
//
// Subtotal, Total и ItemCount являются производными полями: их пересчитывает движок
// корзины при каждом переходе, напрямую они не выставляются.
type CartState struct {
	Items       []CartLine
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal

	Subtotal  decimal.Decimal
	Total     decimal.Decimal
	ItemCount int

	LastUpdated time.Time
	// IsLoading выставлен только на время первичной загрузки из хранилища.
	IsLoading bool
}

// Line возвращает позицию по идентификатору.
func (s CartState) Line(id string) (CartLine, bool) {
	for _, line := range s.Items {
		if line.ID == id {
			return line, true
		}
	}
	return CartLine{}, false
}

// Contains сообщает, есть ли позиция в корзине.
func (s CartState) Contains(id string) bool {
	_, ok := s.Line(id)
	return ok
}

// Clone возвращает глубокую копию состояния.
func (s CartState) Clone() CartState {
	clone := s
	clone.Items = make([]CartLine, len(s.Items))
	copy(clone.Items, s.Items)
	return clone
}

// Metadata возвращает параметры ценообразования в том виде, в каком они сохраняются.
func (s CartState) Metadata() CartMetadata {
	return CartMetadata{
		Tax:         s.TaxRate,
		Shipping:    s.ShippingFee,
		Discount:    s.Discount,
		LastUpdated: s.LastUpdated,
	}
}

// CartMetadata хранится отдельно от позиций под ключом cart_metadata.
type CartMetadata struct {
	Tax         decimal.Decimal `json:"tax"`
	Shipping    decimal.Decimal `json:"shipping"`
	Discount    decimal.Decimal `json:"discount"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// AddCartItemRequest описывает добавление товара в серверную корзину.
type AddCartItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image,omitempty"`
}

// Validate проверяет запрос на добавление и возвращает список ошибок.
func (r AddCartItemRequest) Validate() []error {
	var errs []error

	if r.ProductID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if r.Quantity <= 0 {
		errs = append(errs, ErrQuantityInvalid)
	}
	if r.UnitPrice.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}

	return errs
}

// Product — карточка товара, из которой создаётся позиция корзины.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image,omitempty"`
}
