package domain

import "time"

// WishlistEntry — товар в избранном. Коллекция имеет семантику множества.
type WishlistEntry struct {
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}
