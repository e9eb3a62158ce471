package application

import (
	"fmt"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"github.com/avillega/iptv-cache/logging"
)

// Trigger names used by the cache engine. Registering a name again replaces
// the previous trigger.
const (
	TriggerGuideRefresh  = "guide-refresh"
	TriggerCleanup       = "cleanup"
	TriggerStalenessPoll = "staleness-poll"
)

// Scheduler owns the periodic triggers of the cache engine. Each trigger runs
// on its own cron instance so it can be replaced or canceled independently;
// registering a trigger under an existing name stops the prior one first.
type Scheduler struct {
	logger *logging.Logger

	mu       sync.Mutex
	triggers map[string]*gron.Cron
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *logging.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		triggers: make(map[string]*gron.Cron),
	}
}

// RegisterDailyAt schedules job once a day at the given wall-clock time in
// loc, replacing any trigger previously registered under name. The cron runs
// in server-local time, so the configured wall clock is converted first.
func (s *Scheduler) RegisterDailyAt(name string, hour, minute int, loc *time.Location, job func()) {
	now := time.Now()
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	sched := gron.Every(24 * time.Hour).At(target.Local().Format("15:04"))
	s.register(name, sched, job, map[string]interface{}{
		"at":       fmt.Sprintf("%02d:%02d", hour, minute),
		"timezone": loc.String(),
	})
}

// RegisterEvery schedules job on a fixed interval, replacing any trigger
// previously registered under name.
func (s *Scheduler) RegisterEvery(name string, interval time.Duration, job func()) {
	s.register(name, gron.Every(interval), job, map[string]interface{}{
		"interval": interval.String(),
	})
}

func (s *Scheduler) register(name string, sched gron.Schedule, job func(), fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.triggers[name]; ok {
		prev.Stop()
		s.logger.Debug("Replaced scheduled trigger", map[string]interface{}{
			"trigger": name,
		})
	}

	c := gron.New()
	c.AddFunc(sched, job)
	c.Start()
	s.triggers[name] = c

	fields["trigger"] = name
	s.logger.Info("Registered scheduled trigger", fields)
}

// Cancel stops and removes the trigger registered under name, if any.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.triggers[name]; ok {
		c.Stop()
		delete(s.triggers, name)
		s.logger.Info("Canceled scheduled trigger", map[string]interface{}{
			"trigger": name,
		})
	}
}

// Stop stops all registered triggers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, c := range s.triggers {
		c.Stop()
		delete(s.triggers, name)
	}
}

// Registered reports whether a trigger is currently registered under name.
func (s *Scheduler) Registered(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.triggers[name]
	return ok
}
