package cart

import (
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/shopspring/decimal"
)

// Action — переход движка корзины. Множество действий закрыто: реализации есть только в этом пакете.
type Action interface {
	// Kind используется в логах и метках метрик.
	Kind() string
	isAction()
}

// AddLine добавляет товар или увеличивает количество уже существующей позиции.
type AddLine struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	// Quantity меньше 1 трактуется как 1.
	Quantity int
	ImageRef string
}

// RemoveLine удаляет позицию. Отсутствующий ID не меняет состояние.
type RemoveLine struct {
	ID string
}

// SetQuantity выставляет количество; значение <= 0 удаляет позицию.
type SetQuantity struct {
	ID       string
	Quantity int
}

// Clear очищает позиции и скидку. Налог и доставка сохраняются.
type Clear struct{}

// ApplyDiscount выставляет абсолютную скидку.
type ApplyDiscount struct {
	Amount decimal.Decimal
}

// SetShipping выставляет стоимость доставки.
type SetShipping struct {
	Amount decimal.Decimal
}

// SetTax выставляет ставку налога в процентах.
type SetTax struct {
	Percent decimal.Decimal
}

// Load целиком заменяет позиции, например после загрузки корзины с сервера.
type Load struct {
	Items []domain.CartLine
}

// restore применяется при гидратации из хранилища.
type restore struct {
	items []domain.CartLine
	meta  domain.CartMetadata
}

func (AddLine) Kind() string       { return "add_line" }
func (RemoveLine) Kind() string    { return "remove_line" }
func (SetQuantity) Kind() string   { return "set_quantity" }
func (Clear) Kind() string         { return "clear" }
func (ApplyDiscount) Kind() string { return "apply_discount" }
func (SetShipping) Kind() string   { return "set_shipping" }
func (SetTax) Kind() string        { return "set_tax" }
func (Load) Kind() string          { return "load" }
func (restore) Kind() string       { return "restore" }

func (AddLine) isAction()       {}
func (RemoveLine) isAction()    {}
func (SetQuantity) isAction()   {}
func (Clear) isAction()         {}
func (ApplyDiscount) isAction() {}
func (SetShipping) isAction()   {}
func (SetTax) isAction()        {}
func (Load) isAction()          {}
func (restore) isAction()       {}
