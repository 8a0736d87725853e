package types

import "time"

// Product represents a catalog entry with a stock counter and the set of
// image files attached to it.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// Name is the human-readable product name.
	Name string `json:"name" db:"name"`

	// Description is an optional free-form description.
	Description string `json:"description" db:"description"`

	// Price is the unit price with two-digit precision. It is never
	// negative.
	Price float64 `json:"price" db:"price"`

	// Stock is the remaining purchasable quantity. It is never negative;
	// the database enforces this with a CHECK constraint and purchases
	// decrement it with a conditional update.
	Stock int `json:"stock" db:"stock"`

	// ImagePaths holds the filenames of the images attached to the
	// product. Filenames are unique within a product; order carries no
	// meaning. Stored as a JSON array column.
	ImagePaths []string `json:"images" db:"image_paths"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the product.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
