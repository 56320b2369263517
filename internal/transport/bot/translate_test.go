package bot

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	derrors "github.com/postplanner/post-planner-bot/internal/errors"
)

func TestUserMessage_KnownErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{derrors.ErrQuotaExceeded, "Лимит постов"},
		{derrors.ErrChannelQuotaExceeded, "Лимит каналов"},
		{derrors.ErrChannelNotOwned, "не ваш канал"},
		{derrors.ErrNoActiveSubscription, "подписка"},
		{derrors.ErrNotFound, "Не нашёл"},
		{fmt.Errorf("wrap: %w", derrors.ErrValidation), "пустой"},
	}
	for _, tc := range cases {
		if got := userMessage(tc.err); !strings.Contains(got, tc.want) {
			t.Fatalf("userMessage(%v) = %q, want substring %q", tc.err, got, tc.want)
		}
	}
}

func TestUserMessage_UnknownErrorIsOpaque(t *testing.T) {
	got := userMessage(errors.New("pq: deadlock detected"))
	if strings.Contains(got, "deadlock") {
		t.Fatalf("internal details leaked: %q", got)
	}
}
