package domain

import "time"

// User — зарегистрированный пользователь бота.
type User struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	CreatedAt  time.Time
}

// Stats — сводка для админ-панели.
type Stats struct {
	Users          int
	ActiveSubs     int
	Payments       int
	RevenueStars   float64
	PendingPosts   int
	DeliveredPosts int
	FailedPosts    int
}
