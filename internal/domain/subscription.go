package domain

import "time"

// Subscription — запись о подписке пользователя. На пользователя не более одной.
// Нулевой ExpiresAt означает, что подписки никогда не было.
type Subscription struct {
	OwnerID       int64
	Tariff        string // код тарифа
	ExpiresAt     time.Time
	AccessGranted bool // пользователь допущен в приватный канал
}

// Active — действует ли подписка на момент now.
func (s Subscription) Active(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.Before(s.ExpiresAt)
}

// SubscriptionInfo — срез состояния подписки для профиля пользователя.
// Счётчики производные: собираются из каналов и публикаций.
type SubscriptionInfo struct {
	Tariff     Tariff
	ExpiresAt  time.Time
	Active     bool
	Channels   int
	PostsToday int
}
