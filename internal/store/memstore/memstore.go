// Package memstore — хранилище в памяти: тесты и локальный запуск (STORE_DRIVER=memory).
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/store"
)

type Store struct {
	mu sync.Mutex

	students      map[string]models.Student
	ranking       map[string]models.RankingEntry
	settlements   map[string]models.SettlementRun
	history       []models.RankingHistoryRecord
	goals         map[string]models.Goal // по goal.ID
	studies       []models.StudyFact
	exams         []models.ExamFact
	progress      []models.ContentProgressFact
	essays        []models.EssayFact
	journal       []models.JournalEntry
	notifications []models.Notification

	failures map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		students:    make(map[string]models.Student),
		ranking:     make(map[string]models.RankingEntry),
		settlements: make(map[string]models.SettlementRun),
		goals:       make(map[string]models.Goal),
		failures:    make(map[string]error),
	}
}

// FailOn заставляет метод с именем op возвращать err (nil — снять).
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error { return s.failures[op] }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// ---- students

func (s *Store) UpsertStudent(_ context.Context, st models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertStudent"); err != nil {
		return err
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now()
	}
	s.students[st.ID] = st
	return nil
}

func (s *Store) ListStudentIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListStudentIDs"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.students))
	for id := range s.students {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ---- ranking

func (s *Store) GetRankingEntry(_ context.Context, studentID string) (*models.RankingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetRankingEntry"); err != nil {
		return nil, err
	}
	e, ok := s.ranking[studentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) CreateRankingEntryIfAbsent(_ context.Context, e models.RankingEntry) (models.RankingEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateRankingEntryIfAbsent"); err != nil {
		return models.RankingEntry{}, false, err
	}
	if cur, ok := s.ranking[e.StudentID]; ok {
		return cur, false, nil
	}
	s.ranking[e.StudentID] = e
	return e, true, nil
}

func (s *Store) UpdateWeeklyScore(_ context.Context, studentID string, score float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateWeeklyScore"); err != nil {
		return err
	}
	e, ok := s.ranking[studentID]
	if !ok {
		return store.ErrNotFound
	}
	e.WeeklyScore = score
	e.LastUpdatedAt = at
	s.ranking[studentID] = e
	return nil
}

func (s *Store) ListRankingEntries(context.Context) ([]models.RankingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListRankingEntries"); err != nil {
		return nil, err
	}
	out := make([]models.RankingEntry, 0, len(s.ranking))
	for _, e := range s.ranking {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s *Store) ListRankingEntriesByTier(_ context.Context, tier int) ([]models.RankingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListRankingEntriesByTier"); err != nil {
		return nil, err
	}
	var out []models.RankingEntry
	for _, e := range s.ranking {
		if e.Tier == tier {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s *Store) ApplySettlement(_ context.Context, run models.SettlementRun, updates []models.RankingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ApplySettlement"); err != nil {
		return err
	}
	if _, ok := s.settlements[run.PeriodKey]; ok {
		return store.ErrAlreadySettled
	}
	for _, u := range updates {
		if _, ok := s.ranking[u.StudentID]; !ok {
			return store.ErrNotFound
		}
	}
	for _, u := range updates {
		cur := s.ranking[u.StudentID]
		cur.Tier = u.Tier
		cur.PreviousTier = u.PreviousTier
		cur.WeeklyScore = u.WeeklyScore
		cur.LastUpdatedAt = u.LastUpdatedAt
		s.ranking[u.StudentID] = cur
	}
	s.settlements[run.PeriodKey] = run
	return nil
}

func (s *Store) LastSettlement(context.Context) (*models.SettlementRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("LastSettlement"); err != nil {
		return nil, err
	}
	var last *models.SettlementRun
	for _, r := range s.settlements {
		if last == nil || r.SettledAt.After(last.SettledAt) {
			r := r
			last = &r
		}
	}
	if last == nil {
		return nil, store.ErrNotFound
	}
	return last, nil
}

func (s *Store) AppendRankingHistory(_ context.Context, rec models.RankingHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AppendRankingHistory"); err != nil {
		return err
	}
	s.history = append(s.history, rec)
	return nil
}

func (s *Store) ListRankingHistory(_ context.Context, limit int) ([]models.RankingHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListRankingHistory"); err != nil {
		return nil, err
	}
	out := make([]models.RankingHistoryRecord, len(s.history))
	copy(out, s.history)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SettledAt.After(out[j].SettledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
