package domain

import "errors"

var (
	// ErrNotSignedIn — действие требует входа в аккаунт.
	ErrNotSignedIn = errors.New("sign in required")
	// ErrUnauthenticated — для оплаты нужен идентификатор пользователя.
	ErrUnauthenticated = errors.New("authentication required")
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = errors.New("product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrPriceNegative = errors.New("price must be non-negative")
	// ErrLineNotFound возвращается, если позиции нет в корзине.
	ErrLineNotFound = errors.New("cart line not found")
	// Ошибка отсутствующего способа оплаты.
	ErrPaymentMethodRequired = errors.New("payment method is required")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")
	// ErrPaymentMethodUnsupported — способ оплаты не поддерживается.
	ErrPaymentMethodUnsupported = errors.New("payment method not supported")
	// ErrPaymentInProgress — попытка оплаты уже выполняется в этой сессии.
	ErrPaymentInProgress = errors.New("payment already in progress")
	// ErrPaymentCancelled — пользователь отменил оплату в шлюзе.
	ErrPaymentCancelled = errors.New("payment cancelled by user")
	// ErrPaymentNotVerified — сервер не подтвердил платёж.
	ErrPaymentNotVerified = errors.New("payment verification failed")
	// ErrKeyRequired — пустой ключ хранилища.
	ErrKeyRequired = errors.New("storage key is required")
	// ErrSessionNotFound — для пользователя нет открытой сессии.
	ErrSessionNotFound = errors.New("session not found")
)

// IsUnauthenticated проверяет, связана ли ошибка с отсутствием входа.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrNotSignedIn) || errors.Is(err, ErrUnauthenticated)
}

// IsNotFound проверяет, является ли ошибка ошибкой отсутствия сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLineNotFound) || errors.Is(err, ErrSessionNotFound)
}
