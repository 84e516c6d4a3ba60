package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires a fixed duration after each run.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule builds a fixed-interval schedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the given time plus the interval.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}
