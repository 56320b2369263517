package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
)

type fakeStore struct {
	tariffs map[string]domain.Tariff
	saved   []domain.Tariff
}

func newFakeStore() *fakeStore {
	return &fakeStore{tariffs: map[string]domain.Tariff{
		"basic":   {Code: "basic", Name: "Базовый", PriceStars: 500, ChannelsLimit: 2, PostsPerDay: 5, DurationDays: 30},
		"premium": {Code: "premium", Name: "Премиум", PriceStars: 1000, ChannelsLimit: 5, PostsPerDay: 15, DurationDays: 30},
	}}
}

func (s *fakeStore) Get(code string) (domain.Tariff, error) {
	t, ok := s.tariffs[code]
	if !ok {
		return domain.Tariff{}, derrors.ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) List() []domain.Tariff {
	return []domain.Tariff{s.tariffs["basic"], s.tariffs["premium"]}
}

func (s *fakeStore) Save(_ context.Context, t domain.Tariff) error {
	s.tariffs[t.Code] = t
	s.saved = append(s.saved, t)
	return nil
}

type fakeSink struct {
	attached []domain.Channel
	err      error
}

func (s *fakeSink) AttachChannel(_ context.Context, ownerID, chatID int64, name string) (domain.Channel, error) {
	if s.err != nil {
		return domain.Channel{}, s.err
	}
	ch := domain.Channel{ID: int64(len(s.attached) + 1), OwnerID: ownerID, ChatID: chatID, Name: name, Active: true}
	s.attached = append(s.attached, ch)
	return ch, nil
}

func setupEngine(t *testing.T) (*fakeStore, *fakeSink, *Engine) {
	t.Helper()
	store := newFakeStore()
	sink := &fakeSink{}
	return store, sink, NewEngine(store, sink, slog.Default())
}

const admin = int64(1)

func step(t *testing.T, e *Engine, input string) (string, bool) {
	t.Helper()
	reply, done, err := e.Handle(context.Background(), admin, input)
	if err != nil {
		t.Fatalf("unexpected error on %q: %v", input, err)
	}
	return reply, done
}

func TestTariffEdit_HappyPath(t *testing.T) {
	store, _, e := setupEngine(t)

	prompt := e.StartTariffEdit(admin)
	if !strings.Contains(prompt, "basic") || !strings.Contains(prompt, "premium") {
		t.Fatalf("prompt misses tariffs: %q", prompt)
	}

	if reply, done := step(t, e, "basic"); done || !strings.Contains(reply, "Базовый") {
		t.Fatalf("unexpected tariff step: %q done=%v", reply, done)
	}
	if reply, done := step(t, e, "цена"); done || !strings.Contains(reply, "500") {
		t.Fatalf("unexpected field step: %q done=%v", reply, done)
	}
	reply, done := step(t, e, "749.50")
	if !done {
		t.Fatalf("expected dialog to finish, got %q", reply)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.saved))
	}
	if store.saved[0].PriceStars != 749.50 {
		t.Fatalf("unexpected price: %v", store.saved[0].PriceStars)
	}
	if e.Active(admin) {
		t.Fatalf("session must be gone after completion")
	}
}

// Невалидный ввод переспрашивается, шаг не двигается.
func TestTariffEdit_InvalidValueRepeatsStep(t *testing.T) {
	store, _, e := setupEngine(t)

	e.StartTariffEdit(admin)
	step(t, e, "basic")
	step(t, e, "посты")

	if reply, done := step(t, e, "не число"); done || reply == "" {
		t.Fatalf("expected re-prompt, got %q done=%v", reply, done)
	}
	if reply, done := step(t, e, "-5"); done || reply == "" {
		t.Fatalf("expected re-prompt on negative, got %q done=%v", reply, done)
	}
	if len(store.saved) != 0 {
		t.Fatalf("nothing must be saved yet")
	}

	// После переспроса корректное значение принимается.
	if _, done := step(t, e, "10"); !done {
		t.Fatalf("expected completion")
	}
	if store.tariffs["basic"].PostsPerDay != 10 {
		t.Fatalf("unexpected limit: %d", store.tariffs["basic"].PostsPerDay)
	}
}

func TestTariffEdit_UnlimitedSentinel(t *testing.T) {
	store, _, e := setupEngine(t)

	e.StartTariffEdit(admin)
	step(t, e, "premium")
	step(t, e, "каналы")
	if _, done := step(t, e, "-1"); !done {
		t.Fatalf("expected completion")
	}
	if store.tariffs["premium"].ChannelsLimit != domain.Unlimited {
		t.Fatalf("expected unlimited, got %d", store.tariffs["premium"].ChannelsLimit)
	}
}

func TestTariffEdit_UnknownTariffRepeats(t *testing.T) {
	_, _, e := setupEngine(t)

	e.StartTariffEdit(admin)
	if reply, done := step(t, e, "gold"); done || reply == "" {
		t.Fatalf("expected re-prompt, got %q done=%v", reply, done)
	}
	// Сессия жива, корректный выбор принимается.
	if reply, done := step(t, e, "basic"); done || !strings.Contains(reply, "Базовый") {
		t.Fatalf("unexpected: %q done=%v", reply, done)
	}
}

func TestCancel_AnyStep(t *testing.T) {
	store, _, e := setupEngine(t)

	e.StartTariffEdit(admin)
	step(t, e, "basic")
	step(t, e, "срок")

	if _, done := step(t, e, "отмена"); !done {
		t.Fatalf("expected cancellation to finish dialog")
	}
	if e.Active(admin) {
		t.Fatalf("session must be gone")
	}
	if len(store.saved) != 0 {
		t.Fatalf("cancelled dialog must not save")
	}
}

// Новый старт молча затирает предыдущую сессию.
func TestStart_OverwritesSession(t *testing.T) {
	_, sink, e := setupEngine(t)

	e.StartTariffEdit(admin)
	step(t, e, "basic")

	e.StartChannelAdd(admin)
	step(t, e, "-1001234567890")
	if _, done := step(t, e, "Новости"); !done {
		t.Fatalf("expected channel dialog to finish")
	}
	if len(sink.attached) != 1 || sink.attached[0].ChatID != -1001234567890 {
		t.Fatalf("unexpected attach: %+v", sink.attached)
	}
}

func TestChannelAdd_InvalidID(t *testing.T) {
	_, sink, e := setupEngine(t)

	e.StartChannelAdd(admin)
	if reply, done := step(t, e, "abc"); done || reply == "" {
		t.Fatalf("expected re-prompt, got %q done=%v", reply, done)
	}
	step(t, e, "-1001")
	if reply, done := step(t, e, "  "); done || reply == "" {
		t.Fatalf("expected re-prompt on empty name, got %q done=%v", reply, done)
	}
	if _, done := step(t, e, "Канал"); !done {
		t.Fatalf("expected completion")
	}
	if len(sink.attached) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(sink.attached))
	}
}

// Ошибка сервиса каналов отдаётся наружу, сессия закрывается.
func TestChannelAdd_SinkError(t *testing.T) {
	_, sink, e := setupEngine(t)
	sink.err = derrors.ErrChannelQuotaExceeded

	e.StartChannelAdd(admin)
	step(t, e, "-1001")
	_, done, err := e.Handle(context.Background(), admin, "Канал")
	if !done || !errors.Is(err, derrors.ErrChannelQuotaExceeded) {
		t.Fatalf("expected quota error, got done=%v err=%v", done, err)
	}
	if e.Active(admin) {
		t.Fatalf("session must be gone after error")
	}
}

func TestHandle_NoSession(t *testing.T) {
	_, _, e := setupEngine(t)

	reply, done, err := e.Handle(context.Background(), admin, "привет")
	if err != nil || done || reply != "" {
		t.Fatalf("expected silent pass, got %q done=%v err=%v", reply, done, err)
	}
}
