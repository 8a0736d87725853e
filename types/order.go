package types

import "time"

// Order is an immutable record of a completed purchase. Its existence
// implies the referenced product's stock was already decremented by
// Quantity in the same transaction that created it.
type Order struct {
	// ID is the unique identifier of the order.
	ID int `json:"id" db:"id"`

	// UserID references the purchasing user.
	UserID int `json:"user_id" db:"user_id"`

	// ProductID references the purchased product.
	ProductID int `json:"product_id" db:"product_id"`

	// Quantity is the number of units purchased. Always positive.
	Quantity int `json:"quantity" db:"quantity"`

	// CreatedAt is the timestamp at which the purchase was committed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
