package models

// Item is a catalog entry. The economy engine treats items as immutable
// during a transaction — catalog management happens on its own routes.
type Item struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	BaseCost        int64   `json:"base_cost" gorm:"not null"`
	PointsPerClick  float64 `json:"points_per_click" gorm:"default:0"`  // additive bonus
	PointsPerSecond float64 `json:"points_per_second" gorm:"default:0"` // additive bonus
	CostMultiplier  float64 `json:"cost_multiplier" gorm:"default:1.15"`

	ImageURL *string `json:"image_url,omitempty"`

	Timestamps
}

// PlayerItem records how many units of an item a player owns.
// Created on first purchase, quantity only ever increments.
type PlayerItem struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID string `gorm:"type:uuid;not null;index:idx_player_item,unique" json:"player_id"`
	ItemID   string `gorm:"type:uuid;not null;index:idx_player_item,unique" json:"item_id"`
	Quantity int64  `gorm:"default:0" json:"quantity"`

	Timestamps
}

// CalculatedItem is an item as shown to a specific player: current cost is
// derived from how many units that player already owns.
type CalculatedItem struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	BaseCost        int64   `json:"base_cost"`
	CurrentCost     int64   `json:"current_cost"`
	PointsPerClick  float64 `json:"points_per_click"`
	PointsPerSecond float64 `json:"points_per_second"`
	CostMultiplier  float64 `json:"cost_multiplier"`
	Quantity        int64   `json:"quantity"`
	ImageURL        *string `json:"image_url,omitempty"`
}

// GameStateWithItems bundles a player's snapshot with the full catalog
// priced for that player.
type GameStateWithItems struct {
	GameState
	Items []CalculatedItem `json:"items"`
}

// PurchaseResult is the outcome of a purchase attempt. An insufficient
// balance is a normal game outcome, not an error — Success is false and the
// optional fields stay nil.
type PurchaseResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	NewPoints          *int64   `json:"new_points,omitempty"`
	NewPointsPerClick  *float64 `json:"new_points_per_click,omitempty"`
	NewPointsPerSecond *float64 `json:"new_points_per_second,omitempty"`
	ItemQuantity       *int64   `json:"item_quantity,omitempty"`
	ItemCost           *int64   `json:"item_cost,omitempty"` // price of the *next* unit
}
