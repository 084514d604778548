package models

import (
	"time"

	"gorm.io/gorm"
)

// Player holds the per-user economy state. The row is created lazily on the
// first authenticated access — identity itself lives in the auth service and
// we only keep its opaque user id.
type Player struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // auth service's user id
	Nickname       string `gorm:"index;not null" json:"nickname"`

	// Economy state
	Points         int64 `json:"points" gorm:"default:0"`          // spendable balance
	LifetimePoints int64 `json:"lifetime_points" gorm:"default:0"` // only ever increases, leaderboard key
	Clicks         int64 `json:"clicks" gorm:"default:0"`

	PointsPerClick  float64 `json:"points_per_click" gorm:"default:1.0"`
	PointsPerSecond float64 `json:"points_per_second" gorm:"default:0"`

	// Unix seconds of the last passive-income evaluation. 0 means the player
	// has never been observed and must not be credited for earlier time.
	LastUpdated int64 `json:"last_updated" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// GameState is the wire shape for a player's economy snapshot.
type GameState struct {
	Points          int64   `json:"points"`
	LifetimePoints  int64   `json:"lifetime_points"`
	Clicks          int64   `json:"clicks"`
	PointsPerClick  float64 `json:"points_per_click"`
	PointsPerSecond float64 `json:"points_per_second"`
}

// GameState projects the player row onto the wire shape.
func (p *Player) GameState() GameState {
	return GameState{
		Points:          p.Points,
		LifetimePoints:  p.LifetimePoints,
		Clicks:          p.Clicks,
		PointsPerClick:  p.PointsPerClick,
		PointsPerSecond: p.PointsPerSecond,
	}
}

// ClickResult is returned for every processed click.
type ClickResult struct {
	PointsEarned   float64 `json:"points_earned"`
	NewTotal       int64   `json:"new_total"`
	LifetimePoints int64   `json:"lifetime_points"`
	Clicks         int64   `json:"clicks"`
}

// LeaderboardEntry is a read-only ranked projection over players.
type LeaderboardEntry struct {
	ID             string `json:"id"`
	Nickname       string `json:"nickname"`
	LifetimePoints int64  `json:"lifetime_points"`
	Rank           int    `json:"rank"`
}
