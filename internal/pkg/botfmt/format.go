package botfmt

import (
	"fmt"
	"strings"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

// FormatTariffLine — короткая строка для списка /tariffs
func FormatTariffLine(t domain.Tariff) string {
	return fmt.Sprintf("%s | %s ⭐ | каналов: %s | постов в день: %s | %d дн.",
		t.Name,
		humanStars(t.PriceStars),
		humanLimit(t.ChannelsLimit),
		humanLimit(t.PostsPerDay),
		t.DurationDays,
	)
}

// FormatProfile — подробное сообщение для команды /profile
func FormatProfile(info domain.SubscriptionInfo) string {
	if !info.Active {
		return "Активной подписки нет. Посмотрите /tariffs."
	}
	return fmt.Sprintf(
		"Тариф: %s\nДействует до: %s\nКаналов: %d из %s\nПостов сегодня: %d из %s",
		info.Tariff.Name,
		info.ExpiresAt.Format("02.01.2006 15:04"),
		info.Channels,
		humanLimit(info.Tariff.ChannelsLimit),
		info.PostsToday,
		humanLimit(info.Tariff.PostsPerDay),
	)
}

// FormatPublicationLine — строка для списка /posts
func FormatPublicationLine(p domain.Publication) string {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		text = "[медиа]"
	}
	if len([]rune(text)) > 40 {
		text = string([]rune(text)[:40]) + "…"
	}
	return fmt.Sprintf("%s | %s | %s | %s",
		shortID(p.ID.String()),
		p.FireAt.Format("02.01 15:04"),
		humanStatus(p.Status),
		text,
	)
}

// FormatChannelLine — строка для списка /channels
func FormatChannelLine(ch domain.Channel) string {
	return fmt.Sprintf("№%d | %s", ch.ID, ch.Name)
}

// FormatStats — сводка для админа.
func FormatStats(st domain.Stats) string {
	return fmt.Sprintf(
		"Пользователей: %d\nАктивных подписок: %d\nПлатежей: %d\nВыручка: %s ⭐\nПостов в очереди: %d\nДоставлено: %d\nНеудачных: %d",
		st.Users, st.ActiveSubs, st.Payments, humanStars(st.RevenueStars),
		st.PendingPosts, st.DeliveredPosts, st.FailedPosts,
	)
}

func humanStatus(s domain.PublicationStatus) string {
	switch s {
	case domain.StatusPending:
		return "в очереди"
	case domain.StatusDelivered:
		return "доставлен"
	case domain.StatusFailed:
		return "ошибка"
	case domain.StatusCancelled:
		return "отменён"
	}
	return string(s)
}

func humanLimit(v int) string {
	if v == domain.Unlimited {
		return "∞"
	}
	return fmt.Sprintf("%d", v)
}

// humanStars — цена без хвостовых нулей.
func humanStars(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// shortID — первые 8 символов UUID, хватает для /cancelpost.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
