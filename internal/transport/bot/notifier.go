package bot

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v4"
)

// Notifier шлёт пользователям личные уведомления. Лимитер держит
// отправку под потолком Telegram (~30 сообщений в секунду на бота).
// Уведомления best-effort: ошибка только логируется.
type Notifier struct {
	tb      *telebot.Bot
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewNotifier(tb *telebot.Bot, perSecond float64, logger *slog.Logger) *Notifier {
	if perSecond <= 0 {
		perSecond = 25
	}
	return &Notifier{
		tb:      tb,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  logger,
	}
}

func (n *Notifier) Notify(ownerID int64, text string) {
	if err := n.limiter.Wait(context.Background()); err != nil {
		return
	}
	if _, err := n.tb.Send(&telebot.User{ID: ownerID}, text); err != nil {
		n.logger.Warn("notify failed",
			slog.Int64("user_id", ownerID),
			slog.String("err", err.Error()))
	}
}
