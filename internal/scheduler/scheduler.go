package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler is the recurring-task abstraction injected into the job
// layer so tests can drive business logic without wall-clock timers.
type Scheduler interface {
	// EverySeconds schedules fn to run every n seconds under the given name
	EverySeconds(n int, name string, fn func()) error
	// Start begins executing scheduled jobs without blocking
	Start()
	// Stop cancels all scheduled jobs
	Stop()
}

// GocronScheduler is the production Scheduler backed by gocron
type GocronScheduler struct {
	s *gocron.Scheduler
}

// NewGocron creates a gocron-backed scheduler
func NewGocron() *GocronScheduler {
	return &GocronScheduler{s: gocron.NewScheduler(time.UTC)}
}

func (g *GocronScheduler) EverySeconds(n int, name string, fn func()) error {
	_, err := g.s.Every(n).Seconds().Tag(name).Do(fn)
	return err
}

func (g *GocronScheduler) Start() {
	g.s.StartAsync()
}

func (g *GocronScheduler) Stop() {
	g.s.Stop()
}
