package models

import "time"

const (
	ItemStatusAvailable = "available"
	ItemStatusSold      = "sold"
	ItemStatusReserved  = "reserved"
	ItemStatusRemoved   = "removed"
	ItemStatusLocked    = "locked"
)

// LockTimeout is how long an item may stay locked before a read lazily
// reverts it to available.
const LockTimeout = 24 * time.Hour

type Item struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	SellerName  string    `json:"seller_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Tags        string    `json:"tags"`
	ImagePath   *string   `json:"image_path,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ValidItemStatus(status string) bool {
	switch status {
	case ItemStatusAvailable, ItemStatusSold, ItemStatusReserved, ItemStatusLocked:
		return true
	default:
		return false
	}
}
