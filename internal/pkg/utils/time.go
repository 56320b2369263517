package utils

import "time"

// NowFunc — источник текущего времени (UTC). Подменяется в тестах.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Day — усечение до даты по UTC. Суточные квоты считаются
// по равенству даты, а не скользящим окном в 24 часа.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
