package bot

import (
	"errors"
	"strings"
	"time"

	"github.com/postplanner/post-planner-bot/internal/pkg/utils"
)

const customLayout = "2006.01.02 15:04"

var (
	errBadTime  = errors.New("Не понял время. Варианты: now, +1h, +3h либо 2026.01.02 15:04 (UTC).")
	errPastTime = errors.New("Это время уже прошло. Укажите будущее (UTC).")
)

// parseWhen разбирает момент публикации из полей команды.
// Возвращает время и число потреблённых полей.
// Пресеты и относительные сдвиги принимаются как есть, явная дата
// в прошлом отклоняется.
func parseWhen(fields []string) (time.Time, int, error) {
	if len(fields) == 0 {
		return time.Time{}, 0, errBadTime
	}
	now := utils.NowFunc()

	first := strings.ToLower(fields[0])
	switch first {
	case "now", "сейчас":
		return now, 1, nil
	}
	if strings.HasPrefix(first, "+") {
		d, err := time.ParseDuration(first[1:])
		if err != nil || d <= 0 {
			return time.Time{}, 0, errBadTime
		}
		return now.Add(d), 1, nil
	}

	if len(fields) >= 2 {
		ts, err := time.Parse(customLayout, fields[0]+" "+fields[1])
		if err == nil {
			ts = ts.UTC()
			if ts.Before(now) {
				return time.Time{}, 0, errPastTime
			}
			return ts, 2, nil
		}
	}
	return time.Time{}, 0, errBadTime
}
