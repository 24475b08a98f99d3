// Package tg — служебные алерты администраторам в Telegram.
package tg

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/observability"
	"github.com/Spok95/mentoria-engine/internal/ranking"
)

type Alerter interface {
	Alert(ctx context.Context, text string)
}

// Nop — алерты выключены (нет BOT_TOKEN).
type Nop struct{}

func (Nop) Alert(context.Context, string) {}

type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	log     *zap.Logger
}

func NewTelegram(token string, chatIDs []int64, log *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewTelegramWithBot(bot, chatIDs, log), nil
}

func NewTelegramWithBot(bot *tgbotapi.BotAPI, chatIDs []int64, log *zap.Logger) *Telegram {
	return &Telegram{bot: bot, chatIDs: chatIDs, log: logging.OrNop(log)}
}

// New выбирает реализацию по конфигу: без токена или без получателей — Nop.
func New(token string, chatIDs []int64, log *zap.Logger) Alerter {
	if token == "" || len(chatIDs) == 0 {
		return Nop{}
	}
	t, err := NewTelegram(token, chatIDs, log)
	if err != nil {
		logging.OrNop(log).Warn("telegram alerts disabled", zap.Error(err))
		return Nop{}
	}
	return t
}

func (t *Telegram) Alert(ctx context.Context, text string) {
	for _, id := range t.chatIDs {
		if ctx.Err() != nil {
			return
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			t.log.Warn("telegram alert failed", zap.Int64("chat_id", id), zap.Error(err))
			if isSystemErr(err) {
				observability.CaptureErrWith(err, map[string]string{"op": "tg.alert"})
			}
		}
	}
}

// isSystemErr: 429, 5xx и сетевые таймауты. Ошибки запроса (чат не найден, бот
// заблокирован) — проблема настройки ADMIN_IDS, в Sentry их не шлём.
func isSystemErr(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func SettlementText(s ranking.SettlementSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Итоги недели %s\n", s.PeriodKey)
	fmt.Fprintf(&b, "Учеников: %d\nПовышены: %d\nПонижены: %d\nБез изменений: %d\n",
		s.TotalStudents, s.Promotions, s.Relegations, s.Holds)
	for tier := 6; tier >= 1; tier-- {
		if n := s.TierPopulation[tier]; n > 0 {
			fmt.Fprintf(&b, "Лига %d: %d\n", tier, n)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func DailyText(s goals.DailySummary) string {
	text := fmt.Sprintf("📅 Ежедневные цели\nУчеников: %d\nЦелей истекло: %d\nШаблонов истекло: %d\nЭкземпляров закрыто: %d\nЭкземпляров создано: %d",
		s.Students, s.GoalsExpired, s.TemplatesExpired, s.InstancesSettled, s.InstancesCreated)
	if s.Errors > 0 {
		text += fmt.Sprintf("\n⚠️ Ошибок: %d", s.Errors)
	}
	return text
}

func JobFailedText(job string, err error) string {
	return fmt.Sprintf("❌ Задача %s завершилась с ошибкой: %v", job, err)
}
