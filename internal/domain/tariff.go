package domain

import "time"

// Unlimited — сентинел «без ограничений» для числовых полей тарифа.
const Unlimited = -1

// Tariff — именованный набор лимитов, покупаемый пользователем.
type Tariff struct {
	Code          string  // ключ: basic, premium, ...
	Name          string
	PriceStars    float64 // цена в звёздах
	ChannelsLimit int     // Unlimited = без лимита
	PostsPerDay   int     // Unlimited = без лимита
	DurationDays  int
}

// Duration — срок действия тарифа.
func (t Tariff) Duration() time.Duration {
	return time.Duration(t.DurationDays) * 24 * time.Hour
}

// AllowsPosts — укладывается ли число постов за сегодня в лимит.
func (t Tariff) AllowsPosts(today int) bool {
	return t.PostsPerDay == Unlimited || today < t.PostsPerDay
}

// AllowsChannels — укладывается ли число каналов в лимит.
func (t Tariff) AllowsChannels(count int) bool {
	return t.ChannelsLimit == Unlimited || count < t.ChannelsLimit
}
