package clock

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day — календарный день без часового пояса ("2006-01-02").
// Строки в этом формате сравниваются лексикографически в хронологическом порядке.
type Day string

func DayOf(t time.Time, loc *time.Location) Day {
	return Day(t.In(loc).Format(dayLayout))
}

func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", fmt.Errorf("bad day %q: %w", s, err)
	}
	return Day(s), nil
}

func (d Day) String() string { return string(d) }

func (d Day) IsZero() bool { return d == "" }

func (d Day) date() time.Time {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Start — 00:00 этого дня в loc.
func (d Day) Start(loc *time.Location) time.Time {
	t := d.date()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// End — эксклюзивная граница: 00:00 следующего дня в loc.
func (d Day) End(loc *time.Location) time.Time {
	return d.AddDays(1).Start(loc)
}

func (d Day) AddDays(n int) Day {
	return Day(d.date().AddDate(0, 0, n).Format(dayLayout))
}

func (d Day) Before(o Day) bool { return d < o }
func (d Day) After(o Day) bool  { return d > o }

// DaysBetween — число суток от d до o (o-d).
func (d Day) DaysBetween(o Day) int {
	return int(o.date().Sub(d.date()).Hours() / 24)
}

// Scan понимает и DATE из драйвера (time.Time), и текст.
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Day(v.UTC().Format(dayLayout))
	case string:
		return d.parseInto(v)
	case []byte:
		return d.parseInto(string(v))
	default:
		return fmt.Errorf("clock.Day: unsupported scan type %T", src)
	}
	return nil
}

func (d *Day) parseInto(s string) error {
	if len(s) > len(dayLayout) {
		s = s[:len(dayLayout)]
	}
	p, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

func (d Day) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}
