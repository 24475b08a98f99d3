package ranking

import (
	"math"
	"time"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
)

// Очки недельного рейтинга.
const (
	PointsPerStudyHour     = 10
	MaxStudyPointsPerDay   = 100
	PointsPerCorrectAnswer = 2
	PointsPerWrongAnswer   = 1
	PointsPerExamCorrect   = 4
	EssayBasePoints        = 100
	EssayPointsPerHundred  = 10
	JournalPointsPerDay    = 50

	maxEssayGrade = 1000
)

// Facts — всё, что ученик накопил за открытый период.
type Facts struct {
	Studies []models.StudyFact
	Exams   []models.ExamFact
	Essays  []models.EssayFact
	Journal []models.JournalEntry
}

type Breakdown struct {
	StudyTime float64 `json:"studyTime"`
	Questions float64 `json:"questions"`
	MockExams float64 `json:"mockExams"`
	Essays    float64 `json:"essays"`
	Journal   float64 `json:"journal"`
	Total     float64 `json:"total"`
}

// Score считает недельные очки по фактам из [from, to). Дни считаются в loc.
func Score(f Facts, from, to time.Time, loc *time.Location) Breakdown {
	var b Breakdown
	in := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	minutesByDay := make(map[clock.Day]int)
	for _, s := range f.Studies {
		if !in(s.StudiedAt) {
			continue
		}
		if s.Minutes > 0 {
			minutesByDay[clock.DayOf(s.StudiedAt, loc)] += s.Minutes
		}
		correct := max(s.Correct, 0)
		wrong := max(s.Questions-correct, 0)
		b.Questions += float64(correct*PointsPerCorrectAnswer + wrong*PointsPerWrongAnswer)
	}
	for _, m := range minutesByDay {
		b.StudyTime += math.Min(float64(m)/60*PointsPerStudyHour, MaxStudyPointsPerDay)
	}
	b.StudyTime = math.Round(b.StudyTime*100) / 100

	for _, e := range f.Exams {
		if in(e.TakenAt) {
			b.MockExams += float64(max(e.Correct, 0) * PointsPerExamCorrect)
		}
	}

	for _, e := range f.Essays {
		if !in(e.WrittenAt) {
			continue
		}
		grade := min(max(e.Grade, 0), maxEssayGrade)
		b.Essays += float64(EssayBasePoints + grade/100*EssayPointsPerHundred)
	}

	journalDays := make(map[clock.Day]struct{})
	for _, j := range f.Journal {
		if in(j.WrittenAt) {
			journalDays[clock.DayOf(j.WrittenAt, loc)] = struct{}{}
		}
	}
	b.Journal = float64(len(journalDays) * JournalPointsPerDay)

	b.Total = b.StudyTime + b.Questions + b.MockExams + b.Essays + b.Journal
	return b
}
