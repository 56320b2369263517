package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
)

type ChannelRepo struct {
	db *pgxpool.Pool
}

func NewChannelRepo(db *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{db: db}
}

func (r *ChannelRepo) Add(ctx context.Context, ch domain.Channel) (int64, error) {
	query := `
	INSERT INTO channels (owner_id, chat_id, name, active, added_at)
	VALUES ($1, $2, $3, TRUE, $4)
	RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query, ch.OwnerID, ch.ChatID, ch.Name, ch.AddedAt).Scan(&id)
	return id, err
}

func (r *ChannelRepo) Get(ctx context.Context, id int64) (domain.Channel, error) {
	query := `SELECT id, owner_id, chat_id, name, active, added_at FROM channels WHERE id = $1`
	var ch domain.Channel
	err := r.db.QueryRow(ctx, query, id).Scan(&ch.ID, &ch.OwnerID, &ch.ChatID, &ch.Name, &ch.Active, &ch.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, derrors.ErrNotFound
	}
	if err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}

// ListByOwner — активные каналы пользователя.
func (r *ChannelRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Channel, error) {
	query := `
	SELECT id, owner_id, chat_id, name, active, added_at
	FROM channels WHERE owner_id = $1 AND active = TRUE ORDER BY id`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.OwnerID, &ch.ChatID, &ch.Name, &ch.Active, &ch.AddedAt); err != nil {
			return nil, err
		}
		result = append(result, ch)
	}
	return result, rows.Err()
}

func (r *ChannelRepo) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM channels WHERE owner_id = $1 AND active = TRUE`, ownerID).Scan(&n)
	return n, err
}
