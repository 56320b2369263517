package domain

import "time"

// Payment — факт оплаты тарифа.
type Payment struct {
	ID          int64
	OwnerID     int64
	AmountStars float64
	Tariff      string
	Completed   bool
	ProviderID  string // id платежа на стороне платёжного провайдера
	CreatedAt   time.Time
}
