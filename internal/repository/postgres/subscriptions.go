package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
)

type SubscriptionRepo struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepo(db *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Upsert записывает/перезаписывает подписку владельца: тариф и срок действия.
// Поле access_granted не трогаем — допуск в канал это отдельный шаг.
func (r *SubscriptionRepo) Upsert(ctx context.Context, ownerID int64, tariff string, expiresAt time.Time) error {
	query := `
	INSERT INTO subscriptions (owner_id, tariff, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (owner_id)
	DO UPDATE SET tariff = EXCLUDED.tariff,
	              expires_at = EXCLUDED.expires_at`
	_, err := r.db.Exec(ctx, query, ownerID, tariff, expiresAt)
	return err
}

func (r *SubscriptionRepo) Get(ctx context.Context, ownerID int64) (domain.Subscription, error) {
	query := `SELECT owner_id, tariff, expires_at, access_granted FROM subscriptions WHERE owner_id = $1`
	var s domain.Subscription
	err := r.db.QueryRow(ctx, query, ownerID).Scan(&s.OwnerID, &s.Tariff, &s.ExpiresAt, &s.AccessGranted)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, derrors.ErrNotFound
	}
	if err != nil {
		return domain.Subscription{}, err
	}
	return s, nil
}

// GrantAccess отмечает, что владелец допущен в приватный канал.
func (r *SubscriptionRepo) GrantAccess(ctx context.Context, ownerID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET access_granted = TRUE WHERE owner_id = $1`, ownerID)
	return err
}

// RevokeAccess сбрасывает допуск. Возвращает false, если допуск уже снят:
// повторный обход не должен второй раз дёргать ревокацию.
func (r *SubscriptionRepo) RevokeAccess(ctx context.Context, ownerID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET access_granted = FALSE WHERE owner_id = $1 AND access_granted = TRUE`, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FindExpired возвращает подписки с допуском, истёкшие к моменту deadline
// (deadline = now - grace_period, отсрочку вычитает вызывающий).
func (r *SubscriptionRepo) FindExpired(ctx context.Context, deadline time.Time) ([]domain.Subscription, error) {
	query := `
	SELECT owner_id, tariff, expires_at, access_granted
	FROM subscriptions
	WHERE access_granted = TRUE AND expires_at < $1`
	rows, err := r.db.Query(ctx, query, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.OwnerID, &s.Tariff, &s.ExpiresAt, &s.AccessGranted); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// CountActive — число действующих подписок на момент now (для статистики).
func (r *SubscriptionRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE expires_at > $1`, now).Scan(&n)
	return n, err
}
