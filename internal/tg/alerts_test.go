package tg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/ranking"
)

// fakeAPI отвечает как Bot API и запоминает отправленные тексты.
type fakeAPI struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"mentoria","username":"mentoria_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		if r.FormValue("chat_id") == "404" {
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
			return
		}
		f.mu.Lock()
		f.texts = append(f.texts, r.FormValue("chat_id")+":"+r.FormValue("text"))
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	default:
		http.NotFound(w, r)
	}
}

func TestTelegramAlert(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	bot, err := tgbotapi.NewBotAPIWithClient("token", srv.URL+"/bot%s/%s", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	NewTelegramWithBot(bot, []int64{10, 404, 20}, nil).Alert(context.Background(), "привет")

	if len(api.texts) != 2 || api.texts[0] != "10:привет" || api.texts[1] != "20:привет" {
		t.Fatalf("отправлено: %v", api.texts)
	}
}

func TestNew_NopWithoutToken(t *testing.T) {
	if _, ok := New("", []int64{1}, nil).(Nop); !ok {
		t.Fatal("без токена ожидали Nop")
	}
	if _, ok := New("token", nil, nil).(Nop); !ok {
		t.Fatal("без получателей ожидали Nop")
	}
}

func TestTexts(t *testing.T) {
	s := SettlementText(ranking.SettlementSummary{
		PeriodKey: "2026-10-18", TotalStudents: 12, Promotions: 5, Relegations: 5, Holds: 2,
		TierPopulation: models.TierCounts{3: 12},
	})
	if !strings.Contains(s, "2026-10-18") || !strings.Contains(s, "Повышены: 5") || !strings.Contains(s, "Лига 3: 12") {
		t.Fatalf("текст: %s", s)
	}
	d := DailyText(goals.DailySummary{Students: 3, InstancesCreated: 2, Errors: 1})
	if !strings.Contains(d, "Экземпляров создано: 2") || !strings.Contains(d, "Ошибок: 1") {
		t.Fatalf("текст: %s", d)
	}
	if j := JobFailedText("goals-daily", errors.New("boom")); !strings.Contains(j, "goals-daily") {
		t.Fatalf("текст: %s", j)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsSystemErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5"}, true},
		{"502", fmt.Errorf("send: %w", &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}), true},
		{"chat not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, false},
		{"timeout", timeoutErr{}, true},
		{"other", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		if got := isSystemErr(c.err); got != c.want {
			t.Fatalf("%s: ожидали %v, получили %v", c.name, c.want, got)
		}
	}
}
