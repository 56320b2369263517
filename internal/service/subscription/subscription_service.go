package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
	"github.com/postplanner/post-planner-bot/internal/metrics"
	"github.com/postplanner/post-planner-bot/internal/pkg/utils"
)

type Repo interface {
	Upsert(ctx context.Context, ownerID int64, tariff string, expiresAt time.Time) error
	Get(ctx context.Context, ownerID int64) (domain.Subscription, error)
	GrantAccess(ctx context.Context, ownerID int64) error
	RevokeAccess(ctx context.Context, ownerID int64) (bool, error)
	FindExpired(ctx context.Context, deadline time.Time) ([]domain.Subscription, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
}

type Tariffs interface {
	Get(code string) (domain.Tariff, error)
	List() []domain.Tariff
}

type Payments interface {
	Create(ctx context.Context, p domain.Payment) error
	Totals(ctx context.Context) (int, float64, error)
}

type Channels interface {
	Add(ctx context.Context, ch domain.Channel) (int64, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Channel, error)
	CountByOwner(ctx context.Context, ownerID int64) (int, error)
}

type Publications interface {
	CountForDay(ctx context.Context, ownerID int64, day time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[domain.PublicationStatus]int, error)
}

type Users interface {
	GetOrCreate(ctx context.Context, u domain.User) (domain.User, error)
	Count(ctx context.Context) (int, error)
}

// AccessGateway — управление членством в приватном канале.
// Revoke выкидывает пользователя, ReinstateEligibility снимает бан,
// чтобы после новой покупки он смог войти по инвайт-ссылке.
type AccessGateway interface {
	Revoke(ctx context.Context, userID int64) error
	ReinstateEligibility(ctx context.Context, userID int64) error
}

type Notifier interface {
	Notify(ownerID int64, text string)
}

// Service — учёт подписок: выдача, проверка, профиль, каналы и
// отзыв доступа у истёкших.
type Service struct {
	repo           Repo
	tariffs        Tariffs
	payments       Payments
	channels       Channels
	pubs           Publications
	users          Users
	gateway        AccessGateway
	notifier       Notifier
	log            *slog.Logger
	gracePeriod    time.Duration
	gatewayTimeout time.Duration
}

func New(repo Repo, tariffs Tariffs, payments Payments, channels Channels, pubs Publications, users Users, gateway AccessGateway, notifier Notifier, log *slog.Logger, gracePeriod, gatewayTimeout time.Duration) *Service {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &Service{
		repo:           repo,
		tariffs:        tariffs,
		payments:       payments,
		channels:       channels,
		pubs:           pubs,
		users:          users,
		gateway:        gateway,
		notifier:       notifier,
		log:            log,
		gracePeriod:    gracePeriod,
		gatewayTimeout: gatewayTimeout,
	}
}

// RegisterUser записывает пользователя при /start. Идемпотентна.
func (s *Service) RegisterUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.NowFunc()
	}
	return s.users.GetOrCreate(ctx, u)
}

// Grant оформляет подписку после успешной оплаты: фиксирует платёж,
// перезаписывает подписку со сроком now + длительность тарифа и
// открывает допуск в приватный канал. Повторная покупка заменяет срок,
// а не складывает его.
func (s *Service) Grant(ctx context.Context, ownerID int64, tariffCode, providerID string) (domain.Subscription, error) {
	t, err := s.tariffs.Get(tariffCode)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("tariff %q: %w", tariffCode, err)
	}

	now := utils.NowFunc()
	expiresAt := now.Add(t.Duration())

	if err := s.payments.Create(ctx, domain.Payment{
		OwnerID:     ownerID,
		AmountStars: t.PriceStars,
		Tariff:      t.Code,
		Completed:   true,
		ProviderID:  providerID,
		CreatedAt:   now,
	}); err != nil {
		return domain.Subscription{}, fmt.Errorf("record payment: %w", err)
	}

	if err := s.repo.Upsert(ctx, ownerID, t.Code, expiresAt); err != nil {
		return domain.Subscription{}, fmt.Errorf("upsert subscription: %w", err)
	}
	if err := s.repo.GrantAccess(ctx, ownerID); err != nil {
		return domain.Subscription{}, fmt.Errorf("grant access: %w", err)
	}

	s.log.Info("subscription granted",
		slog.Int64("owner_id", ownerID),
		slog.String("tariff", t.Code),
		slog.Time("expires_at", expiresAt))
	return domain.Subscription{OwnerID: ownerID, Tariff: t.Code, ExpiresAt: expiresAt, AccessGranted: true}, nil
}

// IsActive — действует ли подписка пользователя сейчас.
// Отсутствие записи это штатное «нет», а не ошибка.
func (s *Service) IsActive(ctx context.Context, ownerID int64) (bool, error) {
	sub, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, derrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.Active(utils.NowFunc()), nil
}

// ActiveTariff возвращает тариф действующей подписки.
func (s *Service) ActiveTariff(ctx context.Context, ownerID int64) (domain.Tariff, error) {
	sub, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, derrors.ErrNotFound) {
		return domain.Tariff{}, derrors.ErrNoActiveSubscription
	}
	if err != nil {
		return domain.Tariff{}, err
	}
	if !sub.Active(utils.NowFunc()) {
		return domain.Tariff{}, derrors.ErrNoActiveSubscription
	}
	t, err := s.tariffs.Get(sub.Tariff)
	if err != nil {
		// Тариф выпилили из каталога, а подписка на него ещё жива.
		return domain.Tariff{}, fmt.Errorf("tariff %q missing from catalogue: %w", sub.Tariff, derrors.ErrInternal)
	}
	return t, nil
}

// Info — профиль подписки для /profile. Счётчики каналов и постов
// производные и собираются на лету.
func (s *Service) Info(ctx context.Context, ownerID int64) (domain.SubscriptionInfo, error) {
	sub, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, derrors.ErrNotFound) {
		return domain.SubscriptionInfo{}, nil
	}
	if err != nil {
		return domain.SubscriptionInfo{}, err
	}

	now := utils.NowFunc()
	info := domain.SubscriptionInfo{
		ExpiresAt: sub.ExpiresAt,
		Active:    sub.Active(now),
	}
	if t, err := s.tariffs.Get(sub.Tariff); err == nil {
		info.Tariff = t
	}

	if info.Channels, err = s.channels.CountByOwner(ctx, ownerID); err != nil {
		return domain.SubscriptionInfo{}, err
	}
	if info.PostsToday, err = s.pubs.CountForDay(ctx, ownerID, utils.Day(now)); err != nil {
		return domain.SubscriptionInfo{}, err
	}
	return info, nil
}

// AttachChannel регистрирует канал пользователя с проверкой лимита тарифа.
func (s *Service) AttachChannel(ctx context.Context, ownerID, chatID int64, name string) (domain.Channel, error) {
	t, err := s.ActiveTariff(ctx, ownerID)
	if err != nil {
		return domain.Channel{}, err
	}
	count, err := s.channels.CountByOwner(ctx, ownerID)
	if err != nil {
		return domain.Channel{}, err
	}
	if !t.AllowsChannels(count) {
		return domain.Channel{}, derrors.ErrChannelQuotaExceeded
	}

	ch := domain.Channel{OwnerID: ownerID, ChatID: chatID, Name: name, Active: true, AddedAt: utils.NowFunc()}
	id, err := s.channels.Add(ctx, ch)
	if err != nil {
		return domain.Channel{}, err
	}
	ch.ID = id
	s.log.Info("channel attached",
		slog.Int64("owner_id", ownerID),
		slog.Int64("channel_id", id),
		slog.String("name", name))
	return ch, nil
}

// ListChannels — активные каналы пользователя.
func (s *Service) ListChannels(ctx context.Context, ownerID int64) ([]domain.Channel, error) {
	return s.channels.ListByOwner(ctx, ownerID)
}

// RevokeExpired — один проход обхода истёкших. Для каждой подписки с
// допуском, истёкшей больше grace period назад: бан в приватном канале,
// следом разбан, и лишь после обоих успехов сброс флага в БД.
// Сбой шлюза не фатален: флаг остаётся, следующий проход повторит
// пару бан/разбан (оба вызова на стороне Telegram идемпотентны).
// Возвращает число успешно отозванных.
func (s *Service) RevokeExpired(ctx context.Context) (int, error) {
	now := utils.NowFunc()
	deadline := now.Add(-s.gracePeriod)

	expired, err := s.repo.FindExpired(ctx, deadline)
	if err != nil {
		return 0, fmt.Errorf("find expired: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	revoked := 0
	for _, sub := range expired {
		if err := s.revokeOne(ctx, sub); err != nil {
			s.log.Error("revoke failed, will retry next sweep",
				slog.Int64("owner_id", sub.OwnerID),
				slog.String("err", err.Error()))
			continue
		}
		revoked++
	}
	s.log.Info("expiry sweep completed",
		slog.Int("expired", len(expired)),
		slog.Int("revoked", revoked))
	return revoked, nil
}

func (s *Service) revokeOne(ctx context.Context, sub domain.Subscription) error {
	gCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	if err := s.gateway.Revoke(gCtx, sub.OwnerID); err != nil {
		metrics.RecordGatewayFailure("access")
		return fmt.Errorf("revoke: %w", err)
	}
	if err := s.gateway.ReinstateEligibility(gCtx, sub.OwnerID); err != nil {
		metrics.RecordGatewayFailure("access")
		return fmt.Errorf("reinstate: %w", err)
	}

	ok, err := s.repo.RevokeAccess(ctx, sub.OwnerID)
	if err != nil {
		return fmt.Errorf("mark revoked: %w", err)
	}
	if !ok {
		// Кто-то уже сбросил флаг, уведомление не дублируем.
		return nil
	}
	metrics.RecordRevocation()
	s.log.Info("access revoked", slog.Int64("owner_id", sub.OwnerID))
	s.notifier.Notify(sub.OwnerID, "Срок подписки истёк, доступ к приватному каналу закрыт. Оформите подписку заново, чтобы вернуться.")
	return nil
}

// Stats — сводка для админа.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	var err error

	if st.Users, err = s.users.Count(ctx); err != nil {
		return domain.Stats{}, err
	}
	if st.ActiveSubs, err = s.repo.CountActive(ctx, utils.NowFunc()); err != nil {
		return domain.Stats{}, err
	}
	if st.Payments, st.RevenueStars, err = s.payments.Totals(ctx); err != nil {
		return domain.Stats{}, err
	}
	byStatus, err := s.pubs.CountByStatus(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	st.PendingPosts = byStatus[domain.StatusPending]
	st.DeliveredPosts = byStatus[domain.StatusDelivered]
	st.FailedPosts = byStatus[domain.StatusFailed]
	return st, nil
}
