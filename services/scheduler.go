// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const leaderboardBroadcastInterval = 5 * time.Second

// StartLeaderboardScheduler starts the process-lifetime job that pushes the
// leaderboard to every live session on a fixed interval. The caller owns the
// returned scheduler and must Shutdown() it on exit.
func StartLeaderboardScheduler(sessions *SessionManager) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(leaderboardBroadcastInterval),
		gocron.NewTask(func() {
			sessions.BroadcastLeaderboard()
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("✅ Leaderboard broadcast scheduled every %s", leaderboardBroadcastInterval)
	return sched, nil
}
