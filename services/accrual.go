package services

import (
	"time"

	"clicker-game-backend/models"
)

// ApplyPassiveIncome credits the player for wall-clock time elapsed since the
// last evaluation. It mutates the struct only — persisting the row is the
// caller's job. Every authoritative read of player state must run through
// this first, so passive income is evaluated lazily per player instead of by
// a global ticker.
func ApplyPassiveIncome(p *models.Player, now time.Time) {
	ts := now.Unix()

	// Never observed: stamp the clock without crediting time from before the
	// player existed.
	if p.LastUpdated == 0 {
		p.LastUpdated = ts
		return
	}

	elapsed := ts - p.LastUpdated
	if elapsed <= 0 {
		// Clock skew or a re-entrant call within the same second.
		return
	}

	if p.PointsPerSecond > 0 {
		earned := int64(p.PointsPerSecond * float64(elapsed)) // truncate, never round
		p.Points += earned
		p.LifetimePoints += earned
	}
	// Advance the stamp even with no passive rate, otherwise a later item
	// purchase would retroactively credit the whole idle gap.
	p.LastUpdated = ts
}
