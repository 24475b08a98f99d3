package db

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/store"
)

func (s *Store) UpsertStudent(ctx context.Context, st models.Student) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO students (id, name, created_at)
		VALUES (:id, :name, :created_at)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, st)
	return err
}

func (s *Store) ListStudentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `SELECT id FROM students ORDER BY id`)
	return ids, err
}

const rankingCols = `student_id, tier, weekly_score, previous_tier, last_updated_at, created_at`

func (s *Store) GetRankingEntry(ctx context.Context, studentID string) (*models.RankingEntry, error) {
	var e models.RankingEntry
	err := s.db.GetContext(ctx, &e, `SELECT `+rankingCols+` FROM ranking WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// CreateRankingEntryIfAbsent — INSERT … ON CONFLICT DO NOTHING и чтение того, что в итоге лежит в таблице.
func (s *Store) CreateRankingEntryIfAbsent(ctx context.Context, e models.RankingEntry) (models.RankingEntry, bool, error) {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO ranking (student_id, tier, weekly_score, previous_tier, last_updated_at, created_at)
		VALUES (:student_id, :tier, :weekly_score, :previous_tier, :last_updated_at, :created_at)
		ON CONFLICT (student_id) DO NOTHING
	`, e)
	if err != nil {
		return models.RankingEntry{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.RankingEntry{}, false, err
	}
	cur, err := s.GetRankingEntry(ctx, e.StudentID)
	if err != nil {
		return models.RankingEntry{}, false, err
	}
	return *cur, n == 1, nil
}

func (s *Store) UpdateWeeklyScore(ctx context.Context, studentID string, score float64, at time.Time) error {
	return affected(s.db.ExecContext(ctx,
		`UPDATE ranking SET weekly_score = $2, last_updated_at = $3 WHERE student_id = $1`,
		studentID, score, at))
}

func (s *Store) ListRankingEntries(ctx context.Context) ([]models.RankingEntry, error) {
	var out []models.RankingEntry
	err := s.db.SelectContext(ctx, &out, `SELECT `+rankingCols+` FROM ranking ORDER BY student_id`)
	return out, err
}

func (s *Store) ListRankingEntriesByTier(ctx context.Context, tier int) ([]models.RankingEntry, error) {
	var out []models.RankingEntry
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+rankingCols+` FROM ranking WHERE tier = $1 ORDER BY weekly_score DESC, student_id`, tier)
	return out, err
}

// ApplySettlement — одна транзакция: отметка периода и пакетное обновление записей через unnest.
func (s *Store) ApplySettlement(ctx context.Context, run models.SettlementRun, updates []models.RankingEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO ranking_settlements (period_key, settled_at) VALUES ($1, $2)
		ON CONFLICT (period_key) DO NOTHING
	`, run.PeriodKey, run.SettledAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrAlreadySettled
	}

	if len(updates) > 0 {
		ids := make([]string, len(updates))
		tiers := make([]int64, len(updates))
		prev := make([]int64, len(updates))
		scores := make([]float64, len(updates))
		for i, u := range updates {
			ids[i] = u.StudentID
			tiers[i] = int64(u.Tier)
			if u.PreviousTier != nil {
				prev[i] = int64(*u.PreviousTier)
			}
			scores[i] = u.WeeklyScore
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE ranking r
			SET tier = u.tier,
			    previous_tier = NULLIF(u.prev, 0),
			    weekly_score = u.score,
			    last_updated_at = $5
			FROM unnest($1::text[], $2::smallint[], $3::smallint[], $4::float8[]) AS u(student_id, tier, prev, score)
			WHERE r.student_id = u.student_id
		`, pq.Array(ids), pq.Array(tiers), pq.Array(prev), pq.Array(scores), run.SettledAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(n) != len(updates) {
			return fmt.Errorf("settlement updated %d of %d entries: %w", n, len(updates), store.ErrNotFound)
		}
	}
	return tx.Commit()
}

func (s *Store) LastSettlement(ctx context.Context) (*models.SettlementRun, error) {
	var r models.SettlementRun
	err := s.db.GetContext(ctx, &r,
		`SELECT period_key, settled_at FROM ranking_settlements ORDER BY settled_at DESC LIMIT 1`)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Store) AppendRankingHistory(ctx context.Context, rec models.RankingHistoryRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO ranking_history (id, period_key, settled_at, total_students, promotions, relegations, holds, tier_population)
		VALUES (:id, :period_key, :settled_at, :total_students, :promotions, :relegations, :holds, :tier_population)
	`, rec)
	return err
}

// ListRankingHistory — новые сверху; limit <= 0 — без ограничения.
func (s *Store) ListRankingHistory(ctx context.Context, limit int) ([]models.RankingHistoryRecord, error) {
	var out []models.RankingHistoryRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, period_key, settled_at, total_students, promotions, relegations, holds, tier_population
		FROM ranking_history
		ORDER BY settled_at DESC
		LIMIT NULLIF($1, 0)
	`, max(limit, 0))
	return out, err
}
