package dialog

import (
	"strconv"
	"strings"

	"github.com/postplanner/post-planner-bot/internal/domain"
)

// valueError — невалидный ввод. Диалог остаётся на том же шаге
// и переспрашивает текстом prompt.
type valueError struct {
	prompt string
}

func (e *valueError) Error() string { return e.prompt }

// parseField распознаёт поле тарифа по свободному тексту,
// русские и английские варианты.
func parseField(s string) (Field, bool) {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "цен") || strings.Contains(s, "стоимост") || strings.Contains(s, "price"):
		return FieldPrice, true
	case strings.Contains(s, "канал") || strings.Contains(s, "channel"):
		return FieldChannels, true
	case strings.Contains(s, "пост") || strings.Contains(s, "post"):
		return FieldPosts, true
	case strings.Contains(s, "срок") || strings.Contains(s, "дн") || strings.Contains(s, "day") || strings.Contains(s, "duration"):
		return FieldDuration, true
	}
	return 0, false
}

// applyField валидирует ввод и возвращает тариф с обновлённым полем.
func applyField(t domain.Tariff, f Field, raw string) (domain.Tariff, *valueError) {
	raw = strings.TrimSpace(raw)
	switch f {
	case FieldPrice:
		v, err := parseMoney(raw)
		if err != nil {
			return t, &valueError{"Цена — неотрицательное число, например 499.99. Попробуйте ещё раз."}
		}
		t.PriceStars = v
	case FieldChannels:
		v, err := parseLimit(raw)
		if err != nil {
			return t, &valueError{"Лимит — целое число не меньше нуля либо -1 (без ограничений)."}
		}
		t.ChannelsLimit = v
	case FieldPosts:
		v, err := parseLimit(raw)
		if err != nil {
			return t, &valueError{"Лимит — целое число не меньше нуля либо -1 (без ограничений)."}
		}
		t.PostsPerDay = v
	case FieldDuration:
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return t, &valueError{"Срок — целое число дней больше нуля."}
		}
		t.DurationDays = v
	}
	return t, nil
}

// parseMoney принимает десятичную запись с точкой или запятой.
func parseMoney(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// parseLimit — неотрицательное целое либо сентинел -1.
func parseLimit(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 && v != domain.Unlimited {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func parseChatID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func formatLimit(v int) string {
	if v == domain.Unlimited {
		return "без ограничений"
	}
	return strconv.Itoa(v)
}

func formatStars(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
