package clock

import (
	"sync"
	"time"
)

// Clock — источник «сейчас» для бизнес-логики. В проде Real, в тестах Fixed.
type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed — ручные часы для тестов; безопасны для конкурентного чтения.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// StartOfDay возвращает 00:00 календарного дня t в локации loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// WeekStart — последнее воскресенье hour:00 (включительно) не позже t.
func WeekStart(t time.Time, loc *time.Location, hour int) time.Time {
	t = t.In(loc)
	day := StartOfDay(t, loc)
	back := int(t.Weekday() - time.Sunday)
	start := time.Date(day.Year(), day.Month(), day.Day()-back, hour, 0, 0, 0, loc)
	if start.After(t) {
		start = start.AddDate(0, 0, -7)
	}
	return start
}
