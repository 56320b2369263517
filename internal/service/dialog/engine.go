package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

// State — шаг диалога. Диалог живёт только в памяти: рестарт процесса
// просто сбрасывает незавершённые сессии.
type State int

const (
	StateSelectTariff State = iota
	StateSelectField
	StateEnterValue
	StateEnterChannelID
	StateEnterChannelName
)

// Field — редактируемое поле тарифа.
type Field int

const (
	FieldPrice Field = iota
	FieldChannels
	FieldPosts
	FieldDuration
)

type Session struct {
	State      State
	TariffCode string
	Field      Field
	ChatID     int64
}

type TariffStore interface {
	Get(code string) (domain.Tariff, error)
	List() []domain.Tariff
	Save(ctx context.Context, t domain.Tariff) error
}

type ChannelSink interface {
	AttachChannel(ctx context.Context, ownerID, chatID int64, name string) (domain.Channel, error)
}

// Engine ведёт пошаговые диалоги с админом. На пользователя не больше
// одной сессии: новый старт молча затирает предыдущую.
type Engine struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	tariffs  TariffStore
	channels ChannelSink
	log      *slog.Logger
}

func NewEngine(tariffs TariffStore, channels ChannelSink, log *slog.Logger) *Engine {
	return &Engine{
		sessions: make(map[int64]*Session),
		tariffs:  tariffs,
		channels: channels,
		log:      log,
	}
}

// StartTariffEdit начинает диалог редактирования тарифа.
func (e *Engine) StartTariffEdit(userID int64) string {
	e.mu.Lock()
	e.sessions[userID] = &Session{State: StateSelectTariff}
	e.mu.Unlock()

	var b strings.Builder
	b.WriteString("Какой тариф редактируем?\n")
	for _, t := range e.tariffs.List() {
		fmt.Fprintf(&b, "• %s (%s)\n", t.Code, t.Name)
	}
	b.WriteString("Напишите «отмена», чтобы выйти.")
	return b.String()
}

// StartChannelAdd начинает диалог привязки канала.
func (e *Engine) StartChannelAdd(userID int64) string {
	e.mu.Lock()
	e.sessions[userID] = &Session{State: StateEnterChannelID}
	e.mu.Unlock()
	return "Пришлите ID канала (например, -1001234567890). Бот должен быть в нём администратором."
}

// Cancel прерывает диалог. Возвращает false, если диалога не было.
func (e *Engine) Cancel(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[userID]
	delete(e.sessions, userID)
	return ok
}

// Active — идёт ли у пользователя диалог.
func (e *Engine) Active(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[userID]
	return ok
}

// Handle обрабатывает очередную реплику. Невалидный ввод не двигает
// диалог: шаг переспрашивается. done=true означает, что диалог завершён.
func (e *Engine) Handle(ctx context.Context, userID int64, input string) (reply string, done bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	input = strings.TrimSpace(input)
	if isCancelWord(input) {
		if _, ok := e.sessions[userID]; ok {
			delete(e.sessions, userID)
			return "Ок, отменил.", true, nil
		}
		return "Нечего отменять.", true, nil
	}

	sess, ok := e.sessions[userID]
	if !ok {
		return "", false, nil
	}

	switch sess.State {
	case StateSelectTariff:
		return e.handleSelectTariff(sess, input)
	case StateSelectField:
		return e.handleSelectField(sess, input)
	case StateEnterValue:
		return e.handleEnterValue(ctx, userID, sess, input)
	case StateEnterChannelID:
		return e.handleEnterChannelID(sess, input)
	case StateEnterChannelName:
		return e.handleEnterChannelName(ctx, userID, sess, input)
	}
	return "", false, nil
}

func (e *Engine) handleSelectTariff(sess *Session, input string) (string, bool, error) {
	needle := strings.ToLower(input)
	for _, t := range e.tariffs.List() {
		if strings.ToLower(t.Code) == needle || strings.ToLower(t.Name) == needle {
			sess.TariffCode = t.Code
			sess.State = StateSelectField
			return fmt.Sprintf("Тариф «%s». Что меняем: цена, каналы, посты или срок?", t.Name), false, nil
		}
	}
	return "Не знаю такого тарифа, попробуйте ещё раз.", false, nil
}

func (e *Engine) handleSelectField(sess *Session, input string) (string, bool, error) {
	f, ok := parseField(input)
	if !ok {
		return "Не понял. Варианты: цена, каналы, посты, срок.", false, nil
	}
	sess.Field = f
	sess.State = StateEnterValue

	t, err := e.tariffs.Get(sess.TariffCode)
	if err != nil {
		// Тариф исчез, пока шёл диалог.
		return "", false, err
	}
	switch f {
	case FieldPrice:
		return fmt.Sprintf("Сейчас цена %s ⭐. Введите новую.", formatStars(t.PriceStars)), false, nil
	case FieldChannels:
		return fmt.Sprintf("Сейчас лимит каналов: %s. Введите новый (-1 = без ограничений).", formatLimit(t.ChannelsLimit)), false, nil
	case FieldPosts:
		return fmt.Sprintf("Сейчас лимит постов в день: %s. Введите новый (-1 = без ограничений).", formatLimit(t.PostsPerDay)), false, nil
	default:
		return fmt.Sprintf("Сейчас срок %d дн. Введите новый.", t.DurationDays), false, nil
	}
}

func (e *Engine) handleEnterValue(ctx context.Context, userID int64, sess *Session, input string) (string, bool, error) {
	t, err := e.tariffs.Get(sess.TariffCode)
	if err != nil {
		return "", false, err
	}

	updated, verr := applyField(t, sess.Field, input)
	if verr != nil {
		return verr.prompt, false, nil
	}

	if err := e.tariffs.Save(ctx, updated); err != nil {
		return "", false, err
	}
	delete(e.sessions, userID)
	e.log.Info("tariff edited via dialog",
		slog.Int64("admin_id", userID),
		slog.String("tariff", updated.Code))
	return fmt.Sprintf("Готово. Тариф «%s» обновлён.", updated.Name), true, nil
}

func (e *Engine) handleEnterChannelID(sess *Session, input string) (string, bool, error) {
	chatID, err := parseChatID(input)
	if err != nil {
		return "ID канала выглядит как -1001234567890. Попробуйте ещё раз.", false, nil
	}
	sess.ChatID = chatID
	sess.State = StateEnterChannelName
	return "Как назовём канал?", false, nil
}

func (e *Engine) handleEnterChannelName(ctx context.Context, userID int64, sess *Session, input string) (string, bool, error) {
	if input == "" {
		return "Название не может быть пустым.", false, nil
	}
	ch, err := e.channels.AttachChannel(ctx, userID, sess.ChatID, input)
	delete(e.sessions, userID)
	if err != nil {
		return "", true, err
	}
	return fmt.Sprintf("Канал «%s» привязан (№%d).", ch.Name, ch.ID), true, nil
}

func isCancelWord(s string) bool {
	switch strings.ToLower(s) {
	case "отмена", "cancel", "/cancel", "стоп":
		return true
	}
	return false
}
