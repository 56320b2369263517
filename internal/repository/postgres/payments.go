package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

type PaymentRepo struct {
	db *pgxpool.Pool
}

func NewPaymentRepo(db *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Create(ctx context.Context, p domain.Payment) error {
	query := `
	INSERT INTO payments (owner_id, amount_stars, tariff, completed, provider_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, p.OwnerID, p.AmountStars, p.Tariff, p.Completed, p.ProviderID, p.CreatedAt)
	return err
}

// Totals — число завершённых платежей и суммарный доход в звёздах.
func (r *PaymentRepo) Totals(ctx context.Context) (count int, revenue float64, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(amount_stars), 0) FROM payments WHERE completed = TRUE`
	err = r.db.QueryRow(ctx, query).Scan(&count, &revenue)
	return count, revenue, err
}
