package ranking

import (
	"sort"

	"github.com/Spok95/mentoria-engine/internal/models"
)

type Zone string

const (
	ZonePromotion  Zone = "promotion"
	ZoneRelegation Zone = "relegation"
	ZoneHold       Zone = "hold"
)

// ZoneSize — сколько мест сверху повышаются и сколько снизу понижаются.
const ZoneSize = 5

// ClassifyZone — зона позиции position (с 1) в уровне tier из tierSize учеников.
// Маленький уровень (≤ ZoneSize) повышается целиком; у верхнего уровня повышения нет,
// у нижнего — понижения. Если зоны пересекаются, побеждает повышение.
func ClassifyZone(tier, position, tierSize int) Zone {
	if tier < models.MaxTier && (tierSize <= ZoneSize || position <= ZoneSize) {
		return ZonePromotion
	}
	if tier > models.MinTier && position > tierSize-ZoneSize {
		return ZoneRelegation
	}
	return ZoneHold
}

// SortStandings — очки по убыванию, при равенстве id ученика по возрастанию.
func SortStandings(entries []models.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].WeeklyScore != entries[j].WeeklyScore {
			return entries[i].WeeklyScore > entries[j].WeeklyScore
		}
		return entries[i].StudentID < entries[j].StudentID
	})
}

type Standing struct {
	Position int                 `json:"position"`
	TierSize int                 `json:"tierSize"`
	Zone     Zone                `json:"zone"`
	Entry    models.RankingEntry `json:"entry"`
}

// Standings раскладывает записи одного уровня по местам.
func Standings(tier int, entries []models.RankingEntry) []Standing {
	sorted := make([]models.RankingEntry, len(entries))
	copy(sorted, entries)
	SortStandings(sorted)
	out := make([]Standing, len(sorted))
	for i, e := range sorted {
		out[i] = Standing{
			Position: i + 1,
			TierSize: len(sorted),
			Zone:     ClassifyZone(tier, i+1, len(sorted)),
			Entry:    e,
		}
	}
	return out
}
