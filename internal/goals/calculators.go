package goals

import (
	"math"
	"time"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
)

// StreakLookbackDays — как далеко назад грузятся занятия для серии.
const StreakLookbackDays = 366

// Facts — факты ученика, загруженные на объединённое окно всех пересчитываемых целей.
type Facts struct {
	Studies  []models.StudyFact
	Exams    []models.ExamFact
	Progress []models.ContentProgressFact
}

// Calculator считает новое currentValue цели.
type Calculator func(g models.Goal, f Facts, today clock.Day, loc *time.Location) float64

var calculators = map[models.GoalType]Calculator{
	models.GoalHours:     hoursValue,
	models.GoalQuestions: questionsValue,
	models.GoalStreak:    streakValue,
	models.GoalMockExams: mockExamsValue,
	models.GoalExamScore: examScoreValue,
	models.GoalTopics:    topicsValue,
}

// Value — прогресс цели по её типу; ok=false для неизвестного типа.
func Value(g models.Goal, f Facts, today clock.Day, loc *time.Location) (float64, bool) {
	calc, ok := calculators[g.Type]
	if !ok {
		return 0, false
	}
	return calc(g, f, today, loc), true
}

type window struct{ from, to time.Time }

func goalWindow(g models.Goal, loc *time.Location) window {
	from, to := g.Window()
	return window{from: from.Start(loc), to: to.End(loc)}
}

func (w window) has(t time.Time) bool { return !t.Before(w.from) && t.Before(w.to) }

func subjectMatches(filter *string, v string) bool {
	return filter == nil || *filter == "" || *filter == v
}

func hoursValue(g models.Goal, f Facts, _ clock.Day, loc *time.Location) float64 {
	w := goalWindow(g, loc)
	var minutes int
	for _, s := range f.Studies {
		if w.has(s.StudiedAt) {
			minutes += s.Minutes
		}
	}
	return math.Round(float64(minutes)/60*10) / 10
}

func questionsValue(g models.Goal, f Facts, _ clock.Day, loc *time.Location) float64 {
	w := goalWindow(g, loc)
	var n int
	for _, s := range f.Studies {
		if w.has(s.StudiedAt) && subjectMatches(g.Subject, s.Subject) {
			n += s.Questions
		}
	}
	return float64(n)
}

// streakValue — число подряд идущих дней с занятиями, считая назад от сегодня.
// Если сегодня занятий ещё нет, серия считается от вчера: день ещё не закончился.
func streakValue(_ models.Goal, f Facts, today clock.Day, loc *time.Location) float64 {
	days := make(map[clock.Day]struct{}, len(f.Studies))
	for _, s := range f.Studies {
		days[clock.DayOf(s.StudiedAt, loc)] = struct{}{}
	}
	d := today
	if _, ok := days[d]; !ok {
		d = d.AddDays(-1)
	}
	n := 0
	for {
		if _, ok := days[d]; !ok {
			break
		}
		n++
		d = d.AddDays(-1)
	}
	return float64(n)
}

func mockExamsValue(g models.Goal, f Facts, _ clock.Day, loc *time.Location) float64 {
	w := goalWindow(g, loc)
	var n int
	for _, e := range f.Exams {
		if w.has(e.TakenAt) {
			n++
		}
	}
	return float64(n)
}

// examScoreValue — сумма верных ответов; с subject — только балл этой области.
func examScoreValue(g models.Goal, f Facts, _ clock.Day, loc *time.Location) float64 {
	w := goalWindow(g, loc)
	var n int
	for _, e := range f.Exams {
		if !w.has(e.TakenAt) {
			continue
		}
		if g.Subject == nil || *g.Subject == "" {
			n += e.Correct
			continue
		}
		n += e.AreaScores[*g.Subject]
	}
	return float64(n)
}

func topicsValue(g models.Goal, f Facts, _ clock.Day, loc *time.Location) float64 {
	w := goalWindow(g, loc)
	var n int
	for _, p := range f.Progress {
		if p.Completed && w.has(p.MarkedAt) && subjectMatches(g.Incidence, p.Incidence) {
			n++
		}
	}
	return float64(n)
}
