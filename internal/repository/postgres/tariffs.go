package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

type TariffRepo struct {
	db *pgxpool.Pool
}

func NewTariffRepo(db *pgxpool.Pool) *TariffRepo {
	return &TariffRepo{db: db}
}

func (r *TariffRepo) List(ctx context.Context) ([]domain.Tariff, error) {
	query := `SELECT code, name, price_stars, channels_limit, posts_per_day, duration_days FROM tariffs ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Tariff
	for rows.Next() {
		var t domain.Tariff
		if err := rows.Scan(&t.Code, &t.Name, &t.PriceStars, &t.ChannelsLimit, &t.PostsPerDay, &t.DurationDays); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Upsert перезаписывает параметры тарифа. Каталог тарифов переписывается
// целиком при каждом админ-редактировании.
func (r *TariffRepo) Upsert(ctx context.Context, t domain.Tariff) error {
	query := `
	INSERT INTO tariffs (code, name, price_stars, channels_limit, posts_per_day, duration_days)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (code)
	DO UPDATE SET name = EXCLUDED.name,
	              price_stars = EXCLUDED.price_stars,
	              channels_limit = EXCLUDED.channels_limit,
	              posts_per_day = EXCLUDED.posts_per_day,
	              duration_days = EXCLUDED.duration_days`
	_, err := r.db.Exec(ctx, query, t.Code, t.Name, t.PriceStars, t.ChannelsLimit, t.PostsPerDay, t.DurationDays)
	return err
}
