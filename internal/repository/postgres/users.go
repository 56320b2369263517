package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

// GetOrCreate регистрирует пользователя при первом обращении.
// Повторный /start обновляет имя/юзернейм.
func (r *UserRepo) GetOrCreate(ctx context.Context, u domain.User) (domain.User, error) {
	query := `
	INSERT INTO users (telegram_id, username, first_name, last_name, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (telegram_id)
	DO UPDATE SET username = EXCLUDED.username,
	              first_name = EXCLUDED.first_name,
	              last_name = EXCLUDED.last_name
	RETURNING telegram_id, username, first_name, last_name, created_at`
	var out domain.User
	err := r.db.QueryRow(ctx, query, u.TelegramID, u.Username, u.FirstName, u.LastName, u.CreatedAt).
		Scan(&out.TelegramID, &out.Username, &out.FirstName, &out.LastName, &out.CreatedAt)
	return out, err
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
