package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind — тип вложения запланированного поста.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// PublicationStatus — статус публикации. Переход из pending строго один раз.
type PublicationStatus string

const (
	StatusPending   PublicationStatus = "pending"
	StatusDelivered PublicationStatus = "delivered"
	StatusFailed    PublicationStatus = "failed"
	StatusCancelled PublicationStatus = "cancelled"
)

// Publication — запланированная публикация в канал.
// Записи никогда не удаляются: таблица служит журналом.
type Publication struct {
	ID          uuid.UUID
	OwnerID     int64 // telegram id автора
	ChannelID   int64 // внутренний id канала (channels.id)
	Text        string
	MediaKind   MediaKind
	MediaFileID string
	FireAt      time.Time // UTC, момент доставки
	Status      PublicationStatus
	Error       string // причина, если status = failed
	CreatedAt   time.Time
}

// HasMedia — есть ли у публикации вложение.
func (p Publication) HasMedia() bool { return p.MediaKind != MediaNone }
