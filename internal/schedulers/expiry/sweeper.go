package expiry

import (
	"context"
	"log/slog"
	"time"
)

// Revoker — один проход обхода истёкших подписок.
type Revoker interface {
	RevokeExpired(ctx context.Context) (int, error)
}

type Sweeper struct {
	svc    Revoker
	period time.Duration
	logger *slog.Logger
}

func NewSweeper(svc Revoker, period time.Duration, logger *slog.Logger) *Sweeper {
	if period <= 0 {
		period = 30 * time.Minute
	}
	logger.Debug("expiry sweeper configured", slog.Duration("period", period))
	return &Sweeper{svc: svc, period: period, logger: logger}
}

// Run - основной цикл: раз в period проверяем, у кого истекла подписка.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("expiry sweeper started", slog.Duration("period", s.period))
	t := time.NewTicker(s.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

// tick — одна итерация обхода: планировщик просто дергает сервис.
func (s *Sweeper) tick(ctx context.Context) {
	started := time.Now()
	revoked, err := s.svc.RevokeExpired(ctx)
	if err != nil {
		s.logger.Error("tick: sweep failed", slog.String("err", err.Error()))
		return
	}
	s.logger.Debug("tick: sweep completed",
		slog.Int("revoked", revoked),
		slog.Duration("duration", time.Since(started)))
}
