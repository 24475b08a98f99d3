package goals

import (
	"fmt"
	"time"

	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/notify"
)

// Thresholds — проценты, о которых ученик получает уведомление.
var Thresholds = []int{25, 50, 75}

var thresholdKinds = map[int]models.NotificationKind{
	25: models.NotifyProgress25,
	50: models.NotifyProgress50,
	75: models.NotifyProgress75,
}

// Evaluate применяет новое значение к активной цели. Чистая функция: возвращает
// обновлённую цель, признак изменения и намерения уведомить.
//
// Завершение одностороннее: completed обратно в active не переходит. Каждый порог
// срабатывает не больше одного раза за жизнь цели (LastThreshold).
func Evaluate(g models.Goal, value float64, now time.Time) (models.Goal, bool, []notify.Intent) {
	if g.Status != models.GoalActive {
		return g, false, nil
	}
	prev := g.CurrentValue
	changed := value != prev
	g.CurrentValue = value

	var intents []notify.Intent
	if value >= g.TargetValue {
		done := now
		g.Status = models.GoalCompleted
		g.CompletionDate = &done
		intents = append(intents, completedIntent(g))
		changed = true
	} else {
		prevPct := models.Percent(prev, g.TargetValue)
		curPct := models.Percent(value, g.TargetValue)
		for _, t := range Thresholds {
			if t <= g.LastThreshold {
				continue
			}
			if prevPct < float64(t) && float64(t) <= curPct {
				intents = append(intents, progressIntent(g, t))
				g.LastThreshold = t
				changed = true
			}
		}
	}
	if changed {
		g.UpdatedAt = now
	}
	return g, changed, intents
}

func goalRef(g models.Goal) *string {
	id := g.ID
	return &id
}

func completedIntent(g models.Goal) notify.Intent {
	return notify.Intent{
		StudentID:     g.StudentID,
		Kind:          models.NotifyGoalCompleted,
		Title:         "Meta concluída! 🎉",
		Message:       fmt.Sprintf("Você concluiu a meta \"%s\".", g.Title),
		RelatedGoalID: goalRef(g),
	}
}

func progressIntent(g models.Goal, threshold int) notify.Intent {
	return notify.Intent{
		StudentID:     g.StudentID,
		Kind:          thresholdKinds[threshold],
		Title:         fmt.Sprintf("%d%% da meta", threshold),
		Message:       fmt.Sprintf("Você já fez %d%% da meta \"%s\". Continue assim!", threshold, g.Title),
		RelatedGoalID: goalRef(g),
	}
}

func expiredIntent(g models.Goal) notify.Intent {
	return notify.Intent{
		StudentID:     g.StudentID,
		Kind:          models.NotifyGoalExpired,
		Title:         "Meta encerrada",
		Message:       fmt.Sprintf("O prazo da meta \"%s\" terminou.", g.Title),
		RelatedGoalID: goalRef(g),
	}
}

func createdIntent(g models.Goal) notify.Intent {
	return notify.Intent{
		StudentID:     g.StudentID,
		Kind:          models.NotifyGoalCreated,
		Title:         "Nova meta",
		Message:       fmt.Sprintf("Meta \"%s\" criada. Bons estudos!", g.Title),
		RelatedGoalID: goalRef(g),
	}
}
