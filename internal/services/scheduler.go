package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler runs a background job that flips RECRUITING challenges to
// IN_PROGRESS once their start date arrives. The caller owns the returned
// scheduler and should Shutdown it on exit.
func (s *ChallengeService) StartScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			started, err := s.StartDueChallenges(context.Background())
			if err != nil {
				log.Printf("[Scheduler] Failed to start due challenges: %v", err)
				return
			}
			if started > 0 {
				log.Printf("✅ Started %d due challenge(s)", started)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
