package model

import "time"

type InventoryItem struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Quantity  int       `json:"quantity"`
	Version   int       `json:"version"` // optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
