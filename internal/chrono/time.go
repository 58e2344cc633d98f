package chrono

import (
	"sync"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().UTC()
}

// SteppedTime is a TimeAPI for tests, every call to Now advances the clock
// by Step so consecutive timestamps stay distinct.
type SteppedTime struct {
	mutex   sync.Mutex
	current time.Time
	step    time.Duration
}

func NewSteppedTime(start time.Time, step time.Duration) *SteppedTime {
	return &SteppedTime{current: start, step: step}
}

func (s *SteppedTime) Now() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := s.current
	s.current = s.current.Add(s.step)
	return now
}
