package bot

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/telebot.v4"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

// Gateway — исходящие вызовы Telegram: доставка постов в каналы
// и управление членством в приватном канале.
type Gateway struct {
	tb             *telebot.Bot
	privateChannel int64
	logger         *slog.Logger
}

func NewGateway(tb *telebot.Bot, privateChannel int64, logger *slog.Logger) *Gateway {
	return &Gateway{tb: tb, privateChannel: privateChannel, logger: logger}
}

// Publish отправляет пост в канал. Текст без вложения уходит сообщением,
// вложение — с текстом в подписи.
func (g *Gateway) Publish(ctx context.Context, chatID int64, p domain.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chat := &telebot.Chat{ID: chatID}

	var err error
	switch p.MediaKind {
	case domain.MediaPhoto:
		_, err = g.tb.Send(chat, &telebot.Photo{File: telebot.File{FileID: p.MediaFileID}, Caption: p.Text})
	case domain.MediaVideo:
		_, err = g.tb.Send(chat, &telebot.Video{File: telebot.File{FileID: p.MediaFileID}, Caption: p.Text})
	case domain.MediaDocument:
		_, err = g.tb.Send(chat, &telebot.Document{File: telebot.File{FileID: p.MediaFileID}, Caption: p.Text})
	default:
		_, err = g.tb.Send(chat, p.Text)
	}
	if err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// Revoke выкидывает пользователя из приватного канала (бан).
func (g *Gateway) Revoke(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chat := &telebot.Chat{ID: g.privateChannel}
	if err := g.tb.Ban(chat, &telebot.ChatMember{User: &telebot.User{ID: userID}}); err != nil {
		return fmt.Errorf("ban %d: %w", userID, err)
	}
	return nil
}

// ReinstateEligibility снимает бан, чтобы после новой покупки
// пользователь смог вернуться по инвайт-ссылке.
func (g *Gateway) ReinstateEligibility(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chat := &telebot.Chat{ID: g.privateChannel}
	if err := g.tb.Unban(chat, &telebot.User{ID: userID}); err != nil {
		return fmt.Errorf("unban %d: %w", userID, err)
	}
	return nil
}
