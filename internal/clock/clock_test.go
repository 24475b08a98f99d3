package clock

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("нет tzdata: %v", err)
	}
	return loc
}

func TestWeekStart(t *testing.T) {
	loc := mustLoc(t)

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"wednesday", time.Date(2026, 10, 14, 9, 0, 0, 0, loc), time.Date(2026, 10, 11, 12, 0, 0, 0, loc)},
		{"sunday_before_noon", time.Date(2026, 10, 18, 11, 59, 0, 0, loc), time.Date(2026, 10, 11, 12, 0, 0, 0, loc)},
		{"sunday_noon", time.Date(2026, 10, 18, 12, 0, 0, 0, loc), time.Date(2026, 10, 18, 12, 0, 0, 0, loc)},
		{"saturday_night", time.Date(2026, 10, 17, 23, 0, 0, 0, loc), time.Date(2026, 10, 11, 12, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WeekStart(tc.now, loc, 12)
			if !got.Equal(tc.want) {
				t.Fatalf("ожидали %v, получили %v", tc.want, got)
			}
		})
	}
}

func TestDayArithmetic(t *testing.T) {
	loc := mustLoc(t)
	d := DayOf(time.Date(2026, 10, 17, 1, 30, 0, 0, time.UTC), loc)
	if d != "2026-10-16" {
		t.Fatalf("ожидали 2026-10-16 (UTC 01:30 = вчера в Сан-Паулу), получили %s", d)
	}
	if d.AddDays(1) != "2026-10-17" || d.AddDays(-16) != "2026-09-30" {
		t.Fatalf("AddDays: %s / %s", d.AddDays(1), d.AddDays(-16))
	}
	if d.DaysBetween("2026-10-20") != 4 {
		t.Fatalf("DaysBetween: %d", d.DaysBetween("2026-10-20"))
	}
	if !d.Start(loc).Equal(time.Date(2026, 10, 16, 0, 0, 0, 0, loc)) {
		t.Fatalf("Start: %v", d.Start(loc))
	}
	if !d.End(loc).Equal(time.Date(2026, 10, 17, 0, 0, 0, 0, loc)) {
		t.Fatalf("End: %v", d.End(loc))
	}
}

func TestDayScan(t *testing.T) {
	var d Day
	if err := d.Scan(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)); err != nil || d != "2026-01-02" {
		t.Fatalf("time.Time: %q %v", d, err)
	}
	if err := d.Scan([]byte("2026-03-04")); err != nil || d != "2026-03-04" {
		t.Fatalf("[]byte: %q %v", d, err)
	}
	if err := d.Scan("2026-03-04T00:00:00Z"); err != nil || d != "2026-03-04" {
		t.Fatalf("rfc3339: %q %v", d, err)
	}
	if err := d.Scan("завтра"); err == nil {
		t.Fatal("ожидали ошибку для мусора")
	}
}
