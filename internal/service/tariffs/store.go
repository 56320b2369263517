package tariffs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
)

// Repo — персистентное хранилище каталога тарифов.
type Repo interface {
	List(ctx context.Context) ([]domain.Tariff, error)
	Upsert(ctx context.Context, t domain.Tariff) error
}

// Store — каталог тарифов: БД как источник истины плюс кеш в памяти.
// Все читатели ходят через Store, а не через глобальные мапы.
type Store struct {
	mu     sync.RWMutex
	repo   Repo
	byCode map[string]domain.Tariff
	logger *slog.Logger
}

func NewStore(repo Repo, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		byCode: make(map[string]domain.Tariff),
		logger: logger,
	}
}

// defaults — стартовый каталог, записывается при пустой таблице.
func defaults() []domain.Tariff {
	return []domain.Tariff{
		{Code: "basic", Name: "Базовый", PriceStars: 500, ChannelsLimit: 2, PostsPerDay: 5, DurationDays: 30},
		{Code: "premium", Name: "Премиум", PriceStars: 1000, ChannelsLimit: 5, PostsPerDay: 15, DurationDays: 30},
	}
}

// Load читает каталог при старте. Пустую таблицу засеивает дефолтами.
func (s *Store) Load(ctx context.Context) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load tariffs: %w", err)
	}
	if len(list) == 0 {
		list = defaults()
		for _, t := range list {
			if err := s.repo.Upsert(ctx, t); err != nil {
				return fmt.Errorf("seed tariff %s: %w", t.Code, err)
			}
		}
		s.logger.Info("tariff catalogue seeded", slog.Int("count", len(list)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCode = make(map[string]domain.Tariff, len(list))
	for _, t := range list {
		s.byCode[t.Code] = t
	}
	return nil
}

func (s *Store) Get(code string) (domain.Tariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byCode[code]
	if !ok {
		return domain.Tariff{}, derrors.ErrNotFound
	}
	return t, nil
}

// List — тарифы в стабильном порядке по коду.
func (s *Store) List() []domain.Tariff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tariff, 0, len(s.byCode))
	for _, t := range s.byCode {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Save пишет тариф насквозь: сначала БД, затем кеш.
func (s *Store) Save(ctx context.Context, t domain.Tariff) error {
	if err := s.repo.Upsert(ctx, t); err != nil {
		return fmt.Errorf("save tariff %s: %w", t.Code, err)
	}
	s.mu.Lock()
	s.byCode[t.Code] = t
	s.mu.Unlock()
	s.logger.Info("tariff updated",
		slog.String("code", t.Code),
		slog.Float64("price_stars", t.PriceStars),
		slog.Int("channels_limit", t.ChannelsLimit),
		slog.Int("posts_per_day", t.PostsPerDay),
		slog.Int("duration_days", t.DurationDays))
	return nil
}
