package subscription

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
	"github.com/postplanner/post-planner-bot/internal/pkg/utils"
	submocks "github.com/postplanner/post-planner-bot/internal/service/subscription/mocks"
)

var frozenNow = time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)

const gracePeriod = 2 * time.Hour

func freezeTime(t *testing.T, now time.Time) {
	t.Helper()
	prev := utils.NowFunc
	utils.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { utils.NowFunc = prev })
}

type fixtures struct {
	repo     *submocks.MockRepo
	tariffs  *submocks.MockTariffs
	payments *submocks.MockPayments
	channels *submocks.MockChannels
	pubs     *submocks.MockPublications
	users    *submocks.MockUsers
	gateway  *submocks.MockAccessGateway
	notifier *submocks.MockNotifier
}

func setupSvc(t *testing.T) (context.Context, fixtures, *Service) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	f := fixtures{
		repo:     submocks.NewMockRepo(ctrl),
		tariffs:  submocks.NewMockTariffs(ctrl),
		payments: submocks.NewMockPayments(ctrl),
		channels: submocks.NewMockChannels(ctrl),
		pubs:     submocks.NewMockPublications(ctrl),
		users:    submocks.NewMockUsers(ctrl),
		gateway:  submocks.NewMockAccessGateway(ctrl),
		notifier: submocks.NewMockNotifier(ctrl),
	}
	svc := New(f.repo, f.tariffs, f.payments, f.channels, f.pubs, f.users, f.gateway, f.notifier,
		slog.Default(), gracePeriod, time.Second)
	return context.Background(), f, svc
}

func basicTariff() domain.Tariff {
	return domain.Tariff{Code: "basic", Name: "Базовый", PriceStars: 500, ChannelsLimit: 2, PostsPerDay: 5, DurationDays: 30}
}

// -------------------------
// Grant
// -------------------------

func TestGrant_Success(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	wantExpiry := frozenNow.Add(30 * 24 * time.Hour)

	f.tariffs.EXPECT().Get("basic").Return(basicTariff(), nil)
	f.payments.EXPECT().Create(gomock.Any(), domain.Payment{
		OwnerID: 100, AmountStars: 500, Tariff: "basic", Completed: true,
		ProviderID: "tg-charge-1", CreatedAt: frozenNow,
	}).Return(nil)
	f.repo.EXPECT().Upsert(gomock.Any(), int64(100), "basic", wantExpiry).Return(nil)
	f.repo.EXPECT().GrantAccess(gomock.Any(), int64(100)).Return(nil)

	sub, err := svc.Grant(ctx, 100, "basic", "tg-charge-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sub.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("unexpected expiry: %v", sub.ExpiresAt)
	}
	if !sub.AccessGranted {
		t.Fatalf("expected access to be granted")
	}
}

func TestGrant_UnknownTariff(t *testing.T) {
	ctx, f, svc := setupSvc(t)

	f.tariffs.EXPECT().Get("gold").Return(domain.Tariff{}, derrors.ErrNotFound)

	_, err := svc.Grant(ctx, 100, "gold", "x")
	if err == nil || !errors.Is(err, derrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Повторная покупка перезаписывает срок, а не продлевает его.
func TestGrant_RepurchaseResetsExpiry(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	later := frozenNow.Add(10 * 24 * time.Hour)
	freezeTime(t, later)

	f.tariffs.EXPECT().Get("basic").Return(basicTariff(), nil)
	f.payments.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.repo.EXPECT().Upsert(gomock.Any(), int64(100), "basic", later.Add(30*24*time.Hour)).Return(nil)
	f.repo.EXPECT().GrantAccess(gomock.Any(), int64(100)).Return(nil)

	if _, err := svc.Grant(ctx, 100, "basic", "tg-charge-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// -------------------------
// IsActive / ActiveTariff
// -------------------------

func TestIsActive(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	// Нет записи: штатное «нет».
	f.repo.EXPECT().Get(gomock.Any(), int64(1)).Return(domain.Subscription{}, derrors.ErrNotFound)
	active, err := svc.IsActive(ctx, 1)
	if err != nil || active {
		t.Fatalf("expected inactive without record, got %v %v", active, err)
	}

	// Истекла.
	f.repo.EXPECT().Get(gomock.Any(), int64(2)).Return(
		domain.Subscription{OwnerID: 2, Tariff: "basic", ExpiresAt: frozenNow.Add(-time.Minute)}, nil)
	active, err = svc.IsActive(ctx, 2)
	if err != nil || active {
		t.Fatalf("expected expired to be inactive, got %v %v", active, err)
	}

	// Действует.
	f.repo.EXPECT().Get(gomock.Any(), int64(3)).Return(
		domain.Subscription{OwnerID: 3, Tariff: "basic", ExpiresAt: frozenNow.Add(time.Hour)}, nil)
	active, err = svc.IsActive(ctx, 3)
	if err != nil || !active {
		t.Fatalf("expected active, got %v %v", active, err)
	}
}

func TestActiveTariff_Expired(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().Get(gomock.Any(), int64(100)).Return(
		domain.Subscription{OwnerID: 100, Tariff: "basic", ExpiresAt: frozenNow.Add(-time.Hour)}, nil)

	_, err := svc.ActiveTariff(ctx, 100)
	if err == nil || !errors.Is(err, derrors.ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestActiveTariff_Success(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().Get(gomock.Any(), int64(100)).Return(
		domain.Subscription{OwnerID: 100, Tariff: "basic", ExpiresAt: frozenNow.Add(time.Hour)}, nil)
	f.tariffs.EXPECT().Get("basic").Return(basicTariff(), nil)

	tariff, err := svc.ActiveTariff(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tariff.Code != "basic" {
		t.Fatalf("unexpected tariff: %+v", tariff)
	}
}

// -------------------------
// AttachChannel
// -------------------------

func TestAttachChannel_QuotaExceeded(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().Get(gomock.Any(), int64(100)).Return(
		domain.Subscription{OwnerID: 100, Tariff: "basic", ExpiresAt: frozenNow.Add(time.Hour)}, nil)
	f.tariffs.EXPECT().Get("basic").Return(basicTariff(), nil)
	f.channels.EXPECT().CountByOwner(gomock.Any(), int64(100)).Return(2, nil)

	_, err := svc.AttachChannel(ctx, 100, -1001, "Новости")
	if err == nil || !errors.Is(err, derrors.ErrChannelQuotaExceeded) {
		t.Fatalf("expected ErrChannelQuotaExceeded, got %v", err)
	}
}

func TestAttachChannel_Success(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().Get(gomock.Any(), int64(100)).Return(
		domain.Subscription{OwnerID: 100, Tariff: "basic", ExpiresAt: frozenNow.Add(time.Hour)}, nil)
	f.tariffs.EXPECT().Get("basic").Return(basicTariff(), nil)
	f.channels.EXPECT().CountByOwner(gomock.Any(), int64(100)).Return(1, nil)
	f.channels.EXPECT().Add(gomock.Any(), gomock.Any()).Return(int64(42), nil)

	ch, err := svc.AttachChannel(ctx, 100, -1001, "Новости")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ID != 42 || ch.ChatID != -1001 {
		t.Fatalf("unexpected channel: %+v", ch)
	}
}

// -------------------------
// RevokeExpired
// -------------------------

func expiredSub(owner int64) domain.Subscription {
	return domain.Subscription{OwnerID: owner, Tariff: "basic", ExpiresAt: frozenNow.Add(-3 * time.Hour), AccessGranted: true}
}

func TestRevokeExpired_Success(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().FindExpired(gomock.Any(), frozenNow.Add(-gracePeriod)).
		Return([]domain.Subscription{expiredSub(100)}, nil)
	gomock.InOrder(
		f.gateway.EXPECT().Revoke(gomock.Any(), int64(100)).Return(nil),
		f.gateway.EXPECT().ReinstateEligibility(gomock.Any(), int64(100)).Return(nil),
		f.repo.EXPECT().RevokeAccess(gomock.Any(), int64(100)).Return(true, nil),
	)
	f.notifier.EXPECT().Notify(int64(100), gomock.Any())

	revoked, err := svc.RevokeExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected 1 revoked, got %d", revoked)
	}
}

// Сбой шлюза: флаг не трогаем, следующий проход повторяет бан/разбан.
// В итоге пара выполняется, а флаг сбрасывается ровно один раз.
func TestRevokeExpired_GatewayFailureThenRetry(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	// Первый проход: бан упал, до разбана и БД дело не доходит.
	f.repo.EXPECT().FindExpired(gomock.Any(), frozenNow.Add(-gracePeriod)).
		Return([]domain.Subscription{expiredSub(100)}, nil)
	f.gateway.EXPECT().Revoke(gomock.Any(), int64(100)).Return(errors.New("telegram: 502"))

	revoked, err := svc.RevokeExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != 0 {
		t.Fatalf("expected 0 revoked after gateway failure, got %d", revoked)
	}

	// Второй проход: подписка всё ещё в выборке, теперь всё удаётся.
	f.repo.EXPECT().FindExpired(gomock.Any(), frozenNow.Add(-gracePeriod)).
		Return([]domain.Subscription{expiredSub(100)}, nil)
	f.gateway.EXPECT().Revoke(gomock.Any(), int64(100)).Return(nil)
	f.gateway.EXPECT().ReinstateEligibility(gomock.Any(), int64(100)).Return(nil)
	f.repo.EXPECT().RevokeAccess(gomock.Any(), int64(100)).Return(true, nil)
	f.notifier.EXPECT().Notify(int64(100), gomock.Any())

	revoked, err = svc.RevokeExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected 1 revoked on retry, got %d", revoked)
	}
}

// Флаг уже сброшен параллельным проходом: уведомление не дублируется.
func TestRevokeExpired_AlreadyRevoked(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().FindExpired(gomock.Any(), frozenNow.Add(-gracePeriod)).
		Return([]domain.Subscription{expiredSub(100)}, nil)
	f.gateway.EXPECT().Revoke(gomock.Any(), int64(100)).Return(nil)
	f.gateway.EXPECT().ReinstateEligibility(gomock.Any(), int64(100)).Return(nil)
	f.repo.EXPECT().RevokeAccess(gomock.Any(), int64(100)).Return(false, nil)

	revoked, err := svc.RevokeExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected pass to count as done, got %d", revoked)
	}
}

func TestRevokeExpired_Empty(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().FindExpired(gomock.Any(), frozenNow.Add(-gracePeriod)).Return(nil, nil)

	revoked, err := svc.RevokeExpired(ctx)
	if err != nil || revoked != 0 {
		t.Fatalf("expected empty sweep, got %d %v", revoked, err)
	}
}

// Один сбойный пользователь не останавливает обход остальных.
func TestRevokeExpired_ContinuesAfterFailure(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.repo.EXPECT().FindExpired(gomock.Any(), frozenNow.Add(-gracePeriod)).
		Return([]domain.Subscription{expiredSub(100), expiredSub(200)}, nil)

	f.gateway.EXPECT().Revoke(gomock.Any(), int64(100)).Return(errors.New("telegram: 502"))

	f.gateway.EXPECT().Revoke(gomock.Any(), int64(200)).Return(nil)
	f.gateway.EXPECT().ReinstateEligibility(gomock.Any(), int64(200)).Return(nil)
	f.repo.EXPECT().RevokeAccess(gomock.Any(), int64(200)).Return(true, nil)
	f.notifier.EXPECT().Notify(int64(200), gomock.Any())

	revoked, err := svc.RevokeExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected 1 revoked, got %d", revoked)
	}
}

// -------------------------
// Stats
// -------------------------

func TestStats(t *testing.T) {
	ctx, f, svc := setupSvc(t)
	freezeTime(t, frozenNow)

	f.users.EXPECT().Count(gomock.Any()).Return(10, nil)
	f.repo.EXPECT().CountActive(gomock.Any(), frozenNow).Return(4, nil)
	f.payments.EXPECT().Totals(gomock.Any()).Return(6, 3500.0, nil)
	f.pubs.EXPECT().CountByStatus(gomock.Any()).Return(map[domain.PublicationStatus]int{
		domain.StatusPending:   2,
		domain.StatusDelivered: 15,
		domain.StatusFailed:    1,
	}, nil)

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Stats{Users: 10, ActiveSubs: 4, Payments: 6, RevenueStars: 3500, PendingPosts: 2, DeliveredPosts: 15, FailedPosts: 1}
	if st != want {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
