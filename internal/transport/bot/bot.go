package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/telebot.v4"

	"github.com/postplanner/post-planner-bot/internal/config"
	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"

	"github.com/google/uuid"
)

type Publications interface {
	Schedule(ctx context.Context, p domain.Publication) (domain.Publication, error)
	Cancel(ctx context.Context, id uuid.UUID, ownerID int64) (bool, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]domain.Publication, error)
}

type Subscriptions interface {
	RegisterUser(ctx context.Context, u domain.User) (domain.User, error)
	Grant(ctx context.Context, ownerID int64, tariffCode, providerID string) (domain.Subscription, error)
	Info(ctx context.Context, ownerID int64) (domain.SubscriptionInfo, error)
	AttachChannel(ctx context.Context, ownerID, chatID int64, name string) (domain.Channel, error)
	ListChannels(ctx context.Context, ownerID int64) ([]domain.Channel, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

type Tariffs interface {
	List() []domain.Tariff
}

type Dialog interface {
	StartTariffEdit(userID int64) string
	StartChannelAdd(userID int64) string
	Active(userID int64) bool
	Handle(ctx context.Context, userID int64, input string) (reply string, done bool, err error)
}

// Bot — телеграм-транспорт приложения
type Bot struct {
	tb       *telebot.Bot
	cfg      config.TelegramConfig
	pubs     Publications
	subs     Subscriptions
	tariffs  Tariffs
	dialog   Dialog
	logger   *slog.Logger
	conflict chan struct{}
}

// New создаёт клиента Telegram. Сервисы подвязываются отдельным
// вызовом Register: шлюзам доставки нужен уже созданный клиент.
func New(cfg config.TelegramConfig, logger *slog.Logger) (*Bot, error) {
	bot := &Bot{
		cfg:      cfg,
		logger:   logger,
		conflict: make(chan struct{}, 1),
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.Token,
		Poller:  &telebot.LongPoller{Timeout: cfg.LongPollTimeout},
		OnError: bot.onError,
	})
	if err != nil {
		return nil, err
	}
	bot.tb = b
	return bot, nil
}

// Register подвязывает сервисы и маршруты команд. Вызывается один раз
// до Run.
func (bot *Bot) Register(pubs Publications, subs Subscriptions, tariffs Tariffs, dialog Dialog) {
	bot.pubs = pubs
	bot.subs = subs
	bot.tariffs = tariffs
	bot.dialog = dialog

	b := bot.tb
	b.Handle("/start", bot.handleStart)
	b.Handle("/tariffs", bot.handleTariffs)
	b.Handle("/buy", bot.handleBuy)
	b.Handle("/profile", bot.handleProfile)
	b.Handle("/channels", bot.handleChannels)
	b.Handle("/addchannel", bot.handleAddChannel)
	b.Handle("/post", bot.handlePost)
	b.Handle("/posts", bot.handlePosts)
	b.Handle("/cancelpost", bot.handleCancelPost)
	b.Handle("/stats", bot.handleStats)
	b.Handle("/edittariff", bot.handleEditTariff)
	b.Handle(telebot.OnText, bot.handleText)
	b.Handle(telebot.OnPhoto, bot.handleMedia)
	b.Handle(telebot.OnVideo, bot.handleMedia)
	b.Handle(telebot.OnDocument, bot.handleMedia)
	b.Handle(telebot.OnCheckout, bot.handleCheckout)
	b.Handle(telebot.OnPayment, bot.handlePayment)
}

// Telebot returns the underlying client for gateway wiring.
func (b *Bot) Telebot() *telebot.Bot { return b.tb }

// onError — все ошибки поллинга и хендлеров стекаются сюда.
// Конфликт (второй инстанс с тем же токеном) сигналим в Run.
func (b *Bot) onError(err error, c telebot.Context) {
	if isConflict(err) {
		select {
		case b.conflict <- struct{}{}:
		default:
		}
		return
	}
	attrs := []any{slog.String("err", err.Error())}
	if c != nil && c.Chat() != nil {
		attrs = append(attrs, slog.Int64("chat_id", c.Chat().ID))
	}
	b.logger.Error("bot handler error", attrs...)
}

func isConflict(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "conflict") || strings.Contains(s, "(409)")
}

// Run запускает поллинг и блокируется до отмены контекста.
// При конфликте токена перезапускает поллинг с экспоненциальной паузой,
// после исчерпания попыток возвращает ErrConflict — процессу пора умирать.
func (b *Bot) Run(ctx context.Context) error {
	attempt := 0
	backoff := b.cfg.ConflictBackoff
	for {
		go b.tb.Start()
		b.logger.Info("bot polling started")

		select {
		case <-ctx.Done():
			b.tb.Stop()
			b.logger.Info("bot polling stopped")
			return nil
		case <-b.conflict:
			b.tb.Stop()
			attempt++
			if attempt > b.cfg.ConflictRetries {
				return derrors.ErrConflict
			}
			b.logger.Warn("another instance detected, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
}
