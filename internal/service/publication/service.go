package publication

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
	"github.com/postplanner/post-planner-bot/internal/metrics"
	"github.com/postplanner/post-planner-bot/internal/pkg/utils"
)

type Repo interface {
	Create(ctx context.Context, p domain.Publication) error
	Get(ctx context.Context, id uuid.UUID) (domain.Publication, error)
	ListPending(ctx context.Context) ([]domain.Publication, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]domain.Publication, error)
	CountForDay(ctx context.Context, ownerID int64, day time.Time) (int, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
}

type Channels interface {
	Get(ctx context.Context, id int64) (domain.Channel, error)
}

type Subscriptions interface {
	ActiveTariff(ctx context.Context, ownerID int64) (domain.Tariff, error)
}

// Gateway — доставка поста в канал. Единственный побочный эффект сервиса.
type Gateway interface {
	Publish(ctx context.Context, chatID int64, p domain.Publication) error
}

// Notifier — уведомление автора об исходе. Строго best-effort.
type Notifier interface {
	Notify(ownerID int64, text string)
}

// Service — планировщик публикаций. Источник истины — строка в БД,
// таймеры в памяти лишь будят доставку: после рестарта они
// восстанавливаются из pending-строк (Restore).
type Service struct {
	repo           Repo
	channels       Channels
	subs           Subscriptions
	gateway        Gateway
	notifier       Notifier
	log            *slog.Logger
	gatewayTimeout time.Duration

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	locks  map[uuid.UUID]*sync.Mutex
}

func New(repo Repo, channels Channels, subs Subscriptions, gateway Gateway, notifier Notifier, log *slog.Logger, gatewayTimeout time.Duration) *Service {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &Service{
		repo:           repo,
		channels:       channels,
		subs:           subs,
		gateway:        gateway,
		notifier:       notifier,
		log:            log,
		gatewayTimeout: gatewayTimeout,
		timers:         make(map[uuid.UUID]*time.Timer),
		locks:          make(map[uuid.UUID]*sync.Mutex),
	}
}

// Schedule валидирует публикацию, проверяет владение каналом, подписку и
// суточную квоту, сохраняет pending-строку и взводит таймер.
// Время в прошлом допустимо: такой пост уйдёт немедленно.
func (s *Service) Schedule(ctx context.Context, p domain.Publication) (domain.Publication, error) {
	if strings.TrimSpace(p.Text) == "" && !p.HasMedia() {
		return domain.Publication{}, fmt.Errorf("%w: empty publication", derrors.ErrValidation)
	}

	ch, err := s.channels.Get(ctx, p.ChannelID)
	if err != nil {
		return domain.Publication{}, err
	}
	if ch.OwnerID != p.OwnerID {
		return domain.Publication{}, derrors.ErrChannelNotOwned
	}

	tariff, err := s.subs.ActiveTariff(ctx, p.OwnerID)
	if err != nil {
		return domain.Publication{}, err
	}

	now := utils.NowFunc()
	// Квота суточная по дате UTC, отменённые и упавшие посты квоту не тратят.
	used, err := s.repo.CountForDay(ctx, p.OwnerID, utils.Day(now))
	if err != nil {
		return domain.Publication{}, err
	}
	if !tariff.AllowsPosts(used) {
		return domain.Publication{}, derrors.ErrQuotaExceeded
	}

	p.ID = uuid.New()
	p.Status = domain.StatusPending
	p.Error = ""
	p.FireAt = p.FireAt.UTC()
	p.CreatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Publication{}, err
	}
	s.arm(p)

	s.log.Info("publication scheduled",
		slog.String("id", p.ID.String()),
		slog.Int64("owner_id", p.OwnerID),
		slog.Int64("channel_id", p.ChannelID),
		slog.Time("fire_at", p.FireAt))
	return p, nil
}

// Cancel переводит pending-пост в cancelled. Возвращает false, если пост
// уже ушёл (или в полёте): отмена после выстрела — no-op без ошибки.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, ownerID int64) (bool, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	// Чужой пост неотличим от несуществующего.
	if p.OwnerID != ownerID {
		return false, derrors.ErrNotFound
	}

	lock := s.jobLock(id)
	lock.Lock()
	defer lock.Unlock()

	ok, err := s.repo.MarkCancelled(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.forget(id)
		metrics.RecordPublication("cancelled")
		s.log.Info("publication cancelled", slog.String("id", id.String()))
	}
	return ok, nil
}

// ListByOwner — посты пользователя для /posts.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]domain.Publication, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit)
}

// Restore перечитывает pending-строки и взводит таймеры заново.
// Вызывается один раз при старте процесса; просроченные посты уходят сразу.
func (s *Service) Restore(ctx context.Context) error {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("restore publications: %w", err)
	}
	for _, p := range pending {
		s.arm(p)
	}
	s.log.Info("publication timers restored", slog.Int("count", len(pending)))
	return nil
}

// Stop гасит все таймеры. Pending-строки остаются в БД и будут
// восстановлены следующим запуском.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Service) arm(p domain.Publication) {
	delay := p.FireAt.Sub(utils.NowFunc())
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[p.ID]; ok {
		old.Stop()
	}
	id := p.ID
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
}

// fire — единственная точка доставки. Замок по id сериализует выстрел
// с отменой, а переход pending -> терминал в БД гарантирует, что
// доставка случится не больше одного раза.
func (s *Service) fire(id uuid.UUID) {
	ctx := context.Background()

	lock := s.jobLock(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		s.log.Error("fire: load publication failed",
			slog.String("id", id.String()), slog.String("err", err.Error()))
		return
	}
	if p.Status != domain.StatusPending {
		s.forget(id)
		return
	}

	ch, err := s.channels.Get(ctx, p.ChannelID)
	if err != nil {
		s.terminate(ctx, p, "", fmt.Sprintf("channel lookup: %v", err))
		return
	}

	gCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	err = s.gateway.Publish(gCtx, ch.ChatID, p)
	cancel()
	if err != nil {
		metrics.RecordGatewayFailure("delivery")
		s.terminate(ctx, p, ch.Name, err.Error())
		return
	}
	s.terminate(ctx, p, ch.Name, "")
}

// terminate фиксирует исход в БД и уведомляет автора.
// Пустой reason означает успешную доставку.
func (s *Service) terminate(ctx context.Context, p domain.Publication, channelName, reason string) {
	defer s.forget(p.ID)

	if reason == "" {
		ok, err := s.repo.MarkDelivered(ctx, p.ID)
		if err != nil {
			s.log.Error("fire: mark delivered failed",
				slog.String("id", p.ID.String()), slog.String("err", err.Error()))
			return
		}
		if !ok {
			return
		}
		metrics.RecordPublication("delivered")
		s.log.Info("publication delivered", slog.String("id", p.ID.String()))
		s.notifier.Notify(p.OwnerID, fmt.Sprintf("Пост опубликован в канале «%s»", channelName))
		return
	}

	ok, err := s.repo.MarkFailed(ctx, p.ID, reason)
	if err != nil {
		s.log.Error("fire: mark failed failed",
			slog.String("id", p.ID.String()), slog.String("err", err.Error()))
		return
	}
	if !ok {
		return
	}
	metrics.RecordPublication("failed")
	s.log.Error("publication delivery failed",
		slog.String("id", p.ID.String()), slog.String("reason", reason))
	if channelName == "" {
		channelName = "?"
	}
	s.notifier.Notify(p.OwnerID, fmt.Sprintf("Не удалось опубликовать пост в канале «%s». Пост помечен как неудавшийся.", channelName))
}

func (s *Service) jobLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Service) forget(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	delete(s.locks, id)
}

// armed — число взведённых таймеров, для тестов и диагностики.
func (s *Service) armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
