package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v4"

	"github.com/postplanner/post-planner-bot/internal/domain"
	"github.com/postplanner/post-planner-bot/internal/pkg/botfmt"
)

const requestTimeout = 5 * time.Second

func reqCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// handleStart — регистрирует пользователя и отправляет справку
func (b *Bot) handleStart(c telebot.Context) error {
	ctx, cancel := reqCtx()
	defer cancel()

	sender := c.Sender()
	if _, err := b.subs.RegisterUser(ctx, domain.User{
		TelegramID: sender.ID,
		Username:   sender.Username,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
	}); err != nil {
		b.logger.Error("register user failed",
			slog.Int64("user_id", sender.ID),
			slog.String("err", err.Error()))
	}

	return c.Send("Привет! Я планирую публикации в ваши каналы.\n" +
		"/tariffs - тарифы и цены\n" +
		"/buy {код} - купить подписку\n" +
		"/profile - моя подписка\n" +
		"/addchannel - привязать канал\n" +
		"/channels - мои каналы\n" +
		"/post {№ канала} {когда} {текст} - запланировать пост\n" +
		"  когда: now, +1h, +3h или 2026.01.02 15:04 (UTC)\n" +
		"/posts - мои посты\n" +
		"/cancelpost {id} - отменить пост")
}

func (b *Bot) handleTariffs(c telebot.Context) error {
	var bld strings.Builder
	for _, t := range b.tariffs.List() {
		bld.WriteString(botfmt.FormatTariffLine(t))
		bld.WriteByte('\n')
	}
	bld.WriteString("\nКупить: /buy basic или /buy premium")
	return c.Send(bld.String())
}

// handleBuy — выставляет счёт в Telegram Stars
func (b *Bot) handleBuy(c telebot.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Укажите код тарифа: /buy basic")
	}
	code := strings.ToLower(args[0])
	for _, t := range b.tariffs.List() {
		if t.Code == code {
			return c.Send(&telebot.Invoice{
				Title:       t.Name,
				Description: fmt.Sprintf("Подписка на %d дн.", t.DurationDays),
				Payload:     t.Code,
				Currency:    "XTR",
				Prices: []telebot.Price{
					{Label: t.Name, Amount: int(math.Round(t.PriceStars))},
				},
			})
		}
	}
	return c.Send("Не знаю такого тарифа. Список: /tariffs")
}

// handleCheckout — подтверждение перед списанием звёзд
func (b *Bot) handleCheckout(c telebot.Context) error {
	payload := c.PreCheckoutQuery().Payload
	for _, t := range b.tariffs.List() {
		if t.Code == payload {
			return c.Accept()
		}
	}
	return c.Accept("Тариф больше недоступен")
}

// handlePayment — оплата прошла: оформляем подписку и даём инвайт
func (b *Bot) handlePayment(c telebot.Context) error {
	p := c.Message().Payment
	ctx, cancel := reqCtx()
	defer cancel()

	sub, err := b.subs.Grant(ctx, c.Sender().ID, p.Payload, p.TelegramChargeID)
	if err != nil {
		b.logger.Error("grant after payment failed",
			slog.Int64("user_id", c.Sender().ID),
			slog.String("tariff", p.Payload),
			slog.String("err", err.Error()))
		return c.Send("Оплата прошла, но оформить подписку не удалось. Напишите в поддержку.")
	}

	msg := fmt.Sprintf("Подписка оформлена до %s.", sub.ExpiresAt.Format("02.01.2006 15:04"))
	if b.cfg.InviteLink != "" {
		msg += "\nПриватный канал: " + b.cfg.InviteLink
	}
	return c.Send(msg)
}

func (b *Bot) handleProfile(c telebot.Context) error {
	ctx, cancel := reqCtx()
	defer cancel()

	info, err := b.subs.Info(ctx, c.Sender().ID)
	if err != nil {
		return c.Send(userMessage(err))
	}
	return c.Send(botfmt.FormatProfile(info))
}

func (b *Bot) handleChannels(c telebot.Context) error {
	ctx, cancel := reqCtx()
	defer cancel()

	list, err := b.subs.ListChannels(ctx, c.Sender().ID)
	if err != nil {
		return c.Send(userMessage(err))
	}
	if len(list) == 0 {
		return c.Send("Каналов пока нет. Привязать: /addchannel")
	}
	var bld strings.Builder
	for _, ch := range list {
		bld.WriteString(botfmt.FormatChannelLine(ch))
		bld.WriteByte('\n')
	}
	return c.Send(bld.String())
}

func (b *Bot) handleAddChannel(c telebot.Context) error {
	return c.Send(b.dialog.StartChannelAdd(c.Sender().ID))
}

// handlePost — планирует текстовый пост:
// /post {№ канала} {когда} {текст}
func (b *Bot) handlePost(c telebot.Context) error {
	return b.schedule(c, c.Message().Payload, domain.MediaNone, "")
}

// handleMedia — фото/видео/документ с подписью вида «/post № когда текст»
func (b *Bot) handleMedia(c telebot.Context) error {
	m := c.Message()
	caption := strings.TrimSpace(m.Caption)
	if !strings.HasPrefix(caption, "/post") {
		return nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(caption, "/post"))

	var kind domain.MediaKind
	var fileID string
	switch {
	case m.Photo != nil:
		kind, fileID = domain.MediaPhoto, m.Photo.FileID
	case m.Video != nil:
		kind, fileID = domain.MediaVideo, m.Video.FileID
	case m.Document != nil:
		kind, fileID = domain.MediaDocument, m.Document.FileID
	default:
		return nil
	}
	return b.schedule(c, payload, kind, fileID)
}

func (b *Bot) schedule(c telebot.Context, payload string, kind domain.MediaKind, fileID string) error {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return c.Send("Формат: /post {№ канала} {когда} {текст}\nКогда: now, +1h, +3h или 2026.01.02 15:04 (UTC)")
	}

	channelID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return c.Send("Первым идёт номер канала из /channels.")
	}

	fireAt, consumed, err := parseWhen(fields[1:])
	if err != nil {
		return c.Send(err.Error())
	}
	text := strings.Join(fields[1+consumed:], " ")

	ctx, cancel := reqCtx()
	defer cancel()

	pub, err := b.pubs.Schedule(ctx, domain.Publication{
		OwnerID:     c.Sender().ID,
		ChannelID:   channelID,
		Text:        text,
		MediaKind:   kind,
		MediaFileID: fileID,
		FireAt:      fireAt,
	})
	if err != nil {
		return c.Send(userMessage(err))
	}
	return c.Send(fmt.Sprintf("Запланировал на %s (UTC). Отменить: /cancelpost %s",
		pub.FireAt.Format("02.01.2006 15:04"), pub.ID.String()[:8]))
}

func (b *Bot) handlePosts(c telebot.Context) error {
	ctx, cancel := reqCtx()
	defer cancel()

	list, err := b.pubs.ListByOwner(ctx, c.Sender().ID, 10)
	if err != nil {
		return c.Send(userMessage(err))
	}
	if len(list) == 0 {
		return c.Send("Постов пока нет. Запланировать: /post")
	}
	var bld strings.Builder
	for _, p := range list {
		bld.WriteString(botfmt.FormatPublicationLine(p))
		bld.WriteByte('\n')
	}
	return c.Send(bld.String())
}

// handleCancelPost — отмена по полному id либо короткому префиксу из /posts
func (b *Bot) handleCancelPost(c telebot.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Укажите id поста: /cancelpost a1b2c3d4")
	}
	prefix := strings.ToLower(args[0])

	ctx, cancel := reqCtx()
	defer cancel()

	list, err := b.pubs.ListByOwner(ctx, c.Sender().ID, 50)
	if err != nil {
		return c.Send(userMessage(err))
	}
	for _, p := range list {
		if !strings.HasPrefix(p.ID.String(), prefix) {
			continue
		}
		ok, err := b.pubs.Cancel(ctx, p.ID, c.Sender().ID)
		if err != nil {
			return c.Send(userMessage(err))
		}
		if !ok {
			return c.Send("Пост уже обработан, отменять нечего.")
		}
		return c.Send("Отменил.")
	}
	return c.Send("Не нашёл такого поста. Список: /posts")
}

func (b *Bot) handleStats(c telebot.Context) error {
	if c.Sender().ID != b.cfg.AdminID {
		return nil
	}
	ctx, cancel := reqCtx()
	defer cancel()

	st, err := b.subs.Stats(ctx)
	if err != nil {
		return c.Send(userMessage(err))
	}
	return c.Send(botfmt.FormatStats(st))
}

func (b *Bot) handleEditTariff(c telebot.Context) error {
	if c.Sender().ID != b.cfg.AdminID {
		return nil
	}
	return c.Send(b.dialog.StartTariffEdit(c.Sender().ID))
}

// handleText — свободный текст уходит в диалоговый движок
func (b *Bot) handleText(c telebot.Context) error {
	userID := c.Sender().ID
	if !b.dialog.Active(userID) {
		return nil
	}

	ctx, cancel := reqCtx()
	defer cancel()

	reply, _, err := b.dialog.Handle(ctx, userID, c.Text())
	if err != nil {
		return c.Send(userMessage(err))
	}
	if reply == "" {
		return nil
	}
	return c.Send(reply)
}
