package models

import (
	"database/sql/driver"
	"time"
)

type FactKind string

const (
	FactStudy           FactKind = "studies"
	FactExam            FactKind = "exams"
	FactContentProgress FactKind = "content_progress"
	FactEssay           FactKind = "essays"
	FactJournal         FactKind = "journal"
)

func (k FactKind) Valid() bool {
	switch k {
	case FactStudy, FactExam, FactContentProgress, FactEssay, FactJournal:
		return true
	}
	return false
}

// StudyFact — сессия учёбы (tempoMinutos / questoesFeitas / acertos).
type StudyFact struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId" validate:"required"`
	StudiedAt time.Time `db:"studied_at" json:"studiedAt" validate:"required"`
	Minutes   int       `db:"minutes" json:"tempoMinutos" validate:"gte=0,lte=1440"`
	Questions int       `db:"questions" json:"questoesFeitas" validate:"gte=0"`
	Correct   int       `db:"correct" json:"acertos" validate:"gte=0,ltefield=Questions"`
	Subject   string    `db:"subject" json:"materia"`
}

// AreaScores — acertos por área do simulado.
type AreaScores map[string]int

func (a AreaScores) Value() (driver.Value, error) { return jsonValue(a) }
func (a *AreaScores) Scan(src any) error          { return jsonScan(src, a) }

type ExamFact struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"studentId" validate:"required"`
	TakenAt    time.Time  `db:"taken_at" json:"takenAt" validate:"required"`
	Correct    int        `db:"correct" json:"acertos" validate:"gte=0"`
	Total      int        `db:"total" json:"totalQuestoes" validate:"gte=0,gtefield=Correct"`
	AreaScores AreaScores `db:"area_scores" json:"areas" validate:"dive,keys,required,endkeys,gte=0"`
}

type ContentProgressFact struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId" validate:"required"`
	MarkedAt  time.Time `db:"marked_at" json:"markedAt" validate:"required"`
	TopicID   string    `db:"topic_id" json:"topicId" validate:"required"`
	Completed bool      `db:"completed" json:"concluido"`
	Incidence string    `db:"incidence" json:"incidencia"`
}

// EssayFact — redação; нота по шкале 0–1000.
type EssayFact struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId" validate:"required"`
	WrittenAt time.Time `db:"written_at" json:"writtenAt" validate:"required"`
	Grade     int       `db:"grade" json:"nota" validate:"gte=0,lte=1000"`
}

type JournalEntry struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId" validate:"required"`
	WrittenAt time.Time `db:"written_at" json:"writtenAt" validate:"required"`
}
