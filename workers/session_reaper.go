package workers

import (
	"context"
	"log"
	"time"

	"clicker-game-backend/services"
)

// ReapDeadSessions pings every live realtime session on an interval and
// drops the ones whose transport no longer answers. Read loops normally
// notice a dead peer on their own; this catches half-open connections that
// never deliver another frame. Runs until ctx is cancelled.
func ReapDeadSessions(ctx context.Context, sessions *services.SessionManager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Reaper] Stopping session reaper")
			return
		case <-ticker.C:
			if dropped := sessions.PingAll(); dropped > 0 {
				log.Printf("[Reaper] Dropped %d dead session(s), %d remain", dropped, sessions.ActiveCount())
			}
		}
	}
}
