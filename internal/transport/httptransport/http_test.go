package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/postplanner/post-planner-bot/internal/domain"
	derrors "github.com/postplanner/post-planner-bot/internal/errors"
	"github.com/postplanner/post-planner-bot/internal/ports/errcode"
)

type stubStats struct {
	st  domain.Stats
	err error
}

func (s *stubStats) Stats(context.Context) (domain.Stats, error) { return s.st, s.err }

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }

func do(t *testing.T, h echo.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestGetStats_OK(t *testing.T) {
	svc := &stubStats{st: domain.Stats{Users: 3, ActiveSubs: 2, Payments: 5, RevenueStars: 2500, PendingPosts: 1, DeliveredPosts: 7}}
	h := NewAdminHandler(slog.Default(), svc, &stubPinger{}, time.Second)

	rec := do(t, h.GetStats, "/admin/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"users":3`, `"active_subscriptions":2`, `"revenue_stars":2500`, `"delivered_posts":7`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body misses %s: %s", want, body)
		}
	}
}

func TestGetStats_Error(t *testing.T) {
	svc := &stubStats{err: errors.New("db down")}
	h := NewAdminHandler(slog.Default(), svc, &stubPinger{}, time.Second)

	rec := do(t, h.GetStats, "/admin/stats")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := NewAdminHandler(slog.Default(), &stubStats{}, &stubPinger{}, time.Second)
	if rec := do(t, h.Healthz, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	h = NewAdminHandler(slog.Default(), &stubStats{}, &stubPinger{err: errors.New("refused")}, time.Second)
	if rec := do(t, h.Healthz, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestFromServiceError(t *testing.T) {
	cases := []struct {
		err  error
		want errcode.Code
	}{
		{derrors.ErrValidation, errcode.BadRequest},
		{derrors.ErrQuotaExceeded, errcode.QuotaExceeded},
		{derrors.ErrChannelQuotaExceeded, errcode.QuotaExceeded},
		{derrors.ErrNotFound, errcode.NotFound},
		{derrors.ErrChannelNotOwned, errcode.NotOwned},
		{derrors.ErrNoActiveSubscription, errcode.NoSubscription},
		{derrors.ErrGateway, errcode.Gateway},
		{errors.New("boom"), errcode.Internal},
	}
	for _, tc := range cases {
		if got := FromServiceError(tc.err); got != tc.want {
			t.Fatalf("FromServiceError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
