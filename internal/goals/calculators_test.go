package goals

import (
	"testing"
	"time"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
)

var (
	testToday = clock.Day("2026-10-14")
	testNow   = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
)

func at(day string, hour int) time.Time {
	d := clock.Day(day).Start(time.UTC)
	return d.Add(time.Duration(hour) * time.Hour)
}

func ptr(s string) *string { return &s }

func weekGoal(t models.GoalType) models.Goal {
	return models.Goal{
		ID: "g", StudentID: "st", Type: t, TargetValue: 100, Status: models.GoalActive,
		StartDate: "2026-10-12", EndDate: "2026-10-18",
	}
}

func TestHoursValue(t *testing.T) {
	f := Facts{Studies: []models.StudyFact{
		{StudiedAt: at("2026-10-12", 8), Minutes: 50},
		{StudiedAt: at("2026-10-13", 8), Minutes: 50},
		{StudiedAt: at("2026-10-11", 23), Minutes: 300}, // до окна
		{StudiedAt: at("2026-10-19", 0), Minutes: 300},  // граница окна исключена
	}}
	v, ok := Value(weekGoal(models.GoalHours), f, testToday, time.UTC)
	if !ok || v != 1.7 {
		t.Fatalf("ожидали 1.7 ч, получили %v", v)
	}
}

func TestHoursValue_DailyInstanceCountsOnlyItsDay(t *testing.T) {
	g := weekGoal(models.GoalHours)
	g.ParentGoalID = ptr("tpl")
	ref := testToday
	g.ReferenceDate = &ref
	f := Facts{Studies: []models.StudyFact{
		{StudiedAt: at("2026-10-14", 7), Minutes: 90},
		{StudiedAt: at("2026-10-13", 7), Minutes: 90},
	}}
	if v, _ := Value(g, f, testToday, time.UTC); v != 1.5 {
		t.Fatalf("ожидали 1.5, получили %v", v)
	}
}

func TestQuestionsValue_SubjectFilter(t *testing.T) {
	f := Facts{Studies: []models.StudyFact{
		{StudiedAt: at("2026-10-12", 8), Questions: 20, Subject: "matematica"},
		{StudiedAt: at("2026-10-13", 8), Questions: 15, Subject: "historia"},
	}}
	g := weekGoal(models.GoalQuestions)
	if v, _ := Value(g, f, testToday, time.UTC); v != 35 {
		t.Fatalf("без фильтра ожидали 35, получили %v", v)
	}
	g.Subject = ptr("matematica")
	if v, _ := Value(g, f, testToday, time.UTC); v != 20 {
		t.Fatalf("с фильтром ожидали 20, получили %v", v)
	}
}

func TestStreakValue(t *testing.T) {
	studies := func(days ...string) Facts {
		var f Facts
		for _, d := range days {
			f.Studies = append(f.Studies, models.StudyFact{StudiedAt: at(d, 9), Minutes: 10})
		}
		return f
	}
	cases := []struct {
		name string
		f    Facts
		want float64
	}{
		{"с сегодняшним днём", studies("2026-10-14", "2026-10-13", "2026-10-12", "2026-10-10"), 3},
		{"сегодня ещё не занимался", studies("2026-10-13", "2026-10-12"), 2},
		{"два занятия в один день", studies("2026-10-14", "2026-10-14"), 1},
		{"разрыв", studies("2026-10-12", "2026-10-11"), 0},
		{"пусто", Facts{}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if v, _ := Value(weekGoal(models.GoalStreak), c.f, testToday, time.UTC); v != c.want {
				t.Fatalf("ожидали %v, получили %v", c.want, v)
			}
		})
	}
}

func TestExamValues(t *testing.T) {
	f := Facts{Exams: []models.ExamFact{
		{TakenAt: at("2026-10-12", 8), Correct: 60, AreaScores: models.AreaScores{"matematica": 25, "linguagens": 35}},
		{TakenAt: at("2026-10-15", 8), Correct: 50, AreaScores: models.AreaScores{"matematica": 30}},
		{TakenAt: at("2026-10-01", 8), Correct: 90},
	}}
	if v, _ := Value(weekGoal(models.GoalMockExams), f, testToday, time.UTC); v != 2 {
		t.Fatalf("mockExams: ожидали 2, получили %v", v)
	}
	g := weekGoal(models.GoalExamScore)
	if v, _ := Value(g, f, testToday, time.UTC); v != 110 {
		t.Fatalf("examScore: ожидали 110, получили %v", v)
	}
	g.Subject = ptr("matematica")
	if v, _ := Value(g, f, testToday, time.UTC); v != 55 {
		t.Fatalf("examScore по области: ожидали 55, получили %v", v)
	}
}

func TestTopicsValue(t *testing.T) {
	f := Facts{Progress: []models.ContentProgressFact{
		{MarkedAt: at("2026-10-12", 8), TopicID: "a", Completed: true, Incidence: "alta"},
		{MarkedAt: at("2026-10-12", 9), TopicID: "b", Completed: true, Incidence: "baixa"},
		{MarkedAt: at("2026-10-13", 9), TopicID: "c", Completed: false, Incidence: "alta"},
	}}
	g := weekGoal(models.GoalTopics)
	if v, _ := Value(g, f, testToday, time.UTC); v != 2 {
		t.Fatalf("ожидали 2, получили %v", v)
	}
	g.Incidence = ptr("alta")
	if v, _ := Value(g, f, testToday, time.UTC); v != 1 {
		t.Fatalf("с фильтром ожидали 1, получили %v", v)
	}
}

func TestValue_UnknownType(t *testing.T) {
	if _, ok := Value(weekGoal("pages"), Facts{}, testToday, time.UTC); ok {
		t.Fatal("неизвестный тип не должен считаться")
	}
}
