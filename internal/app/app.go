package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/postplanner/post-planner-bot/internal/config"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
	repopg "github.com/postplanner/post-planner-bot/internal/repository/postgres"
	"github.com/postplanner/post-planner-bot/internal/schedulers/expiry"
	"github.com/postplanner/post-planner-bot/internal/service/dialog"
	pubsvc "github.com/postplanner/post-planner-bot/internal/service/publication"
	subsvc "github.com/postplanner/post-planner-bot/internal/service/subscription"
	"github.com/postplanner/post-planner-bot/internal/service/tariffs"
	botpkg "github.com/postplanner/post-planner-bot/internal/transport/bot"
	"github.com/postplanner/post-planner-bot/internal/transport/httptransport"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db   *pgxpool.Pool
	e    *echo.Echo
	serv *http.Server

	tariffStore *tariffs.Store
	pubs        *pubsvc.Service
	subs        *subsvc.Service

	sweeper *expiry.Sweeper
	bot     *botpkg.Bot
}

func NewApp(cfg config.Config, log *slog.Logger, db *pgxpool.Pool) (*App, error) {
	app := &App{cfg: cfg, log: log, db: db}

	pubRepo := repopg.NewPublicationRepo(db)
	subRepo := repopg.NewSubscriptionRepo(db)
	chanRepo := repopg.NewChannelRepo(db)
	payRepo := repopg.NewPaymentRepo(db)
	tariffRepo := repopg.NewTariffRepo(db)
	userRepo := repopg.NewUserRepo(db)

	app.tariffStore = tariffs.NewStore(tariffRepo, log)

	// Клиент Telegram нужен раньше сервисов: на нём построены шлюзы.
	botApp, err := botpkg.New(cfg.Telegram, log)
	if err != nil {
		log.Error("telegram init failed", slog.String("error", err.Error()))
		return nil, err
	}
	app.bot = botApp

	gateway := botpkg.NewGateway(botApp.Telebot(), cfg.Telegram.PrivateChannel, log)
	notifier := botpkg.NewNotifier(botApp.Telebot(), cfg.Telegram.NotifyRate, log)

	app.subs = subsvc.New(subRepo, app.tariffStore, payRepo, chanRepo, pubRepo, userRepo,
		gateway, notifier, log, cfg.Subscription.GracePeriod, cfg.Subscription.GatewayTimeout)
	app.pubs = pubsvc.New(pubRepo, chanRepo, app.subs, gateway, notifier, log,
		cfg.Publication.GatewayTimeout)

	dlg := dialog.NewEngine(app.tariffStore, app.subs, log)
	botApp.Register(app.pubs, app.subs, app.tariffStore, dlg)

	app.sweeper = expiry.NewSweeper(app.subs, cfg.Subscription.SweepInterval, log)

	e := echo.New()
	e.HideBanner = true
	app.e = e

	ah := httptransport.NewAdminHandler(log, app.subs, db, cfg.Server.ReadTimeout)
	ah.RegisterRoutes(e)

	app.serv = &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Handler:      e,
	}

	log.Info("app initialized", slog.String("http_addr", cfg.Server.Addr))
	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	// Каталог тарифов и таймеры публикаций восстанавливаются до того,
	// как бот начнёт принимать команды.
	if err := a.tariffStore.Load(ctx); err != nil {
		return err
	}
	if err := a.pubs.Restore(ctx); err != nil {
		return err
	}

	go a.sweeper.Run(ctx)

	botErr := make(chan error, 1)
	go func() {
		botErr <- a.bot.Run(ctx)
	}()

	a.log.Info("starting server", slog.String("addr", a.cfg.Server.Addr))
	go func() {
		if err := a.e.StartServer(a.serv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", slog.String("error", err.Error()))
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	case err := <-botErr:
		// ErrConflict после исчерпания ретраев фатален.
		if err != nil && errors.Is(err, derrors.ErrConflict) {
			a.log.Error("shutting down: another instance owns the bot token")
			shErr := a.Shutdown(context.Background())
			if shErr != nil {
				a.log.Error("shutdown error", slog.String("error", shErr.Error()))
			}
			return err
		}
		return a.Shutdown(context.Background())
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	shCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.e != nil {
		if err := a.e.Shutdown(shCtx); err != nil {
			a.log.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.pubs != nil {
		a.pubs.Stop()
	}

	if a.db != nil {
		a.db.Close()
	}

	a.log.Info("application stopped")
	return nil
}
