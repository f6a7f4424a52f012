package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// PollHandle is the owned handle of one scheduled repeating task.
type PollHandle interface {
	// Stop cancels every future run. It is safe to call more than once.
	Stop()
}

// Scheduler runs task once right away and then every interval until the handle is stopped.
type Scheduler interface {
	Every(interval time.Duration, task func()) (PollHandle, error)
}

// GocronScheduler backs each repeating task with its own gocron scheduler in singleton
// mode, so a run that is still in flight delays the next one instead of overlapping it.
type GocronScheduler struct {
	location *time.Location
}

func NewGocronScheduler() *GocronScheduler {
	return &GocronScheduler{
		location: time.UTC,
	}
}

func (s *GocronScheduler) Every(interval time.Duration, task func()) (PollHandle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	scheduler := gocron.NewScheduler(s.location)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(interval).Do(task); err != nil {
		return nil, fmt.Errorf("failed to schedule polling task: %w", err)
	}

	scheduler.StartAsync()

	return &gocronHandle{scheduler: scheduler}, nil
}

type gocronHandle struct {
	scheduler *gocron.Scheduler
	once      sync.Once
}

func (h *gocronHandle) Stop() {
	h.once.Do(h.scheduler.Stop)
}
