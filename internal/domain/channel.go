package domain

import "time"

// Channel — канал пользователя, в который публикуются посты.
type Channel struct {
	ID      int64
	OwnerID int64
	ChatID  int64 // telegram id чата канала
	Name    string
	Active  bool
	AddedAt time.Time
}
