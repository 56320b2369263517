package httptransport

import (
	"context"
	"log"
	"net/http"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

// StatsService — абстракция для админ-сводки.
type StatsService interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// Pinger — проверка живости БД для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsResponse — DTO для ответа API со сводкой.
type StatsResponse struct {
	Users          int     `json:"users"`
	ActiveSubs     int     `json:"active_subscriptions"`
	Payments       int     `json:"payments"`
	RevenueStars   float64 `json:"revenue_stars"`
	PendingPosts   int     `json:"pending_posts"`
	DeliveredPosts int     `json:"delivered_posts"`
	FailedPosts    int     `json:"failed_posts"`
}

func makeStats(st domain.Stats) StatsResponse {
	return StatsResponse{
		Users:          st.Users,
		ActiveSubs:     st.ActiveSubs,
		Payments:       st.Payments,
		RevenueStars:   st.RevenueStars,
		PendingPosts:   st.PendingPosts,
		DeliveredPosts: st.DeliveredPosts,
		FailedPosts:    st.FailedPosts,
	}
}

// AdminHandler — HTTP‑handler служебных маршрутов.
type AdminHandler struct {
	logger  *slog.Logger
	svc     StatsService
	db      Pinger
	timeout time.Duration
}

func NewAdminHandler(logger *slog.Logger, svc StatsService, db Pinger, timeout time.Duration) *AdminHandler {
	if logger == nil {
		log.Fatal("nil logger")
	}
	if svc == nil {
		log.Fatal("nil service")
	}
	// Задаём таймаут по умолчанию, если он не задан
	if timeout <= 0 {
		timeout = time.Second * 3
	}
	return &AdminHandler{
		logger:  logger,
		svc:     svc,
		db:      db,
		timeout: timeout,
	}
}

func (h *AdminHandler) RegisterRoutes(r interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}) {
	// Регистрируем маршруты
	r.GET("/healthz", h.Healthz)
	r.GET("/admin/stats", h.GetStats)
	r.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (h *AdminHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("healthz: db ping failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status": "degraded",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
	})
}

func (h *AdminHandler) GetStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	st, err := h.svc.Stats(ctx)
	if err != nil {
		code := FromServiceError(err)
		h.logger.Error("Stats failed",
			slog.String("op", "GetStats"),
			slog.String("code", string(code)),
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal_server_error",
		})
	}
	return c.JSON(http.StatusOK, makeStats(st))
}
