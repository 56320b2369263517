package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
)

type PublicationRepo struct {
	db *pgxpool.Pool
}

func NewPublicationRepo(db *pgxpool.Pool) *PublicationRepo {
	return &PublicationRepo{db: db}
}

// Create сохраняет новую публикацию со статусом pending.
func (r *PublicationRepo) Create(ctx context.Context, p domain.Publication) error {
	query := `
	INSERT INTO publications (id, owner_id, channel_id, content, media_kind, media_file_id, fire_at, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.OwnerID, p.ChannelID, p.Text, string(p.MediaKind), p.MediaFileID,
		p.FireAt, string(p.Status), p.CreatedAt)
	return err
}

func (r *PublicationRepo) Get(ctx context.Context, id uuid.UUID) (domain.Publication, error) {
	query := `
	SELECT id, owner_id, channel_id, content, media_kind, media_file_id, fire_at, status, error, created_at
	FROM publications WHERE id = $1`
	var p domain.Publication
	var kind, status string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.ChannelID, &p.Text, &kind, &p.MediaFileID,
		&p.FireAt, &status, &p.Error, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Publication{}, derrors.ErrNotFound
	}
	if err != nil {
		return domain.Publication{}, err
	}
	p.MediaKind = domain.MediaKind(kind)
	p.Status = domain.PublicationStatus(status)
	return p, nil
}

// ListPending возвращает все необработанные публикации.
// Используется при старте процесса для восстановления таймеров.
func (r *PublicationRepo) ListPending(ctx context.Context) ([]domain.Publication, error) {
	query := `
	SELECT id, owner_id, channel_id, content, media_kind, media_file_id, fire_at, status, error, created_at
	FROM publications WHERE status = 'pending' ORDER BY fire_at`
	return r.list(ctx, query)
}

// ListByOwner — публикации пользователя, свежие первыми.
func (r *PublicationRepo) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]domain.Publication, error) {
	query := `
	SELECT id, owner_id, channel_id, content, media_kind, media_file_id, fire_at, status, error, created_at
	FROM publications WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, ownerID, limit)
}

// CountForDay — число публикаций пользователя, созданных в указанную дату (UTC)
// и идущих в зачёт суточной квоты (pending либо delivered).
func (r *PublicationRepo) CountForDay(ctx context.Context, ownerID int64, day time.Time) (int, error) {
	query := `
	SELECT COUNT(*) FROM publications
	WHERE owner_id = $1
	  AND (created_at AT TIME ZONE 'UTC')::date = $2::date
	  AND status IN ('pending', 'delivered')`
	var n int
	err := r.db.QueryRow(ctx, query, ownerID, day.UTC()).Scan(&n)
	return n, err
}

// MarkDelivered переводит публикацию pending -> delivered.
// Возвращает false, если публикация уже не pending: переход из pending
// допускается ровно один раз, и это свойство обеспечивает именно БД.
func (r *PublicationRepo) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE publications SET status = 'delivered' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed переводит публикацию pending -> failed с причиной. Терминально, ретраев нет.
func (r *PublicationRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE publications SET status = 'failed', error = $2 WHERE id = $1 AND status = 'pending'`, id, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCancelled переводит публикацию pending -> cancelled.
// Если выстрел уже случился (или в полёте) — false, отмена считается no-op.
func (r *PublicationRepo) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE publications SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountByStatus — счётчики для админ-статистики.
func (r *PublicationRepo) CountByStatus(ctx context.Context) (map[domain.PublicationStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM publications GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.PublicationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		result[domain.PublicationStatus(status)] = n
	}
	return result, rows.Err()
}

func (r *PublicationRepo) list(ctx context.Context, query string, args ...any) ([]domain.Publication, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Publication
	for rows.Next() {
		var p domain.Publication
		var kind, status string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.ChannelID, &p.Text, &kind, &p.MediaFileID,
			&p.FireAt, &status, &p.Error, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.MediaKind = domain.MediaKind(kind)
		p.Status = domain.PublicationStatus(status)
		result = append(result, p)
	}
	return result, rows.Err()
}
