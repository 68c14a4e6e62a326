// Package scheduler fires the periodic full-library scan on a cron
// schedule.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler sleeps until the next cron activation and invokes the trigger.
type Scheduler struct {
	schedule cron.Schedule
	trigger  func()
	clock    Clock
	log      *zap.SugaredLogger
	stop     chan struct{}
}

// New parses a standard five-field cron expression.
func New(expression string, trigger func(), log *zap.SugaredLogger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		schedule: schedule,
		trigger:  trigger,
		clock:    systemClock{},
		log:      log,
		stop:     make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start() {
	go s.run()
	s.log.Infow("scheduler started", "next_run", s.schedule.Next(s.clock.Now()))
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) run() {
	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		select {
		case <-s.clock.After(next.Sub(now)):
			s.log.Infow("scheduled scan triggered", "at", next)
			s.trigger()
		case <-s.stop:
			s.log.Info("scheduler stopped")
			return
		}
	}
}
