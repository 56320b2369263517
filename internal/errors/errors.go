package errors

import "errors"

// Ошибки времени запроса: возвращаются вызывающему синхронно,
// в журнал как сбои системы не попадают.
var (
	ErrValidation           = errors.New("validation failed")
	ErrQuotaExceeded        = errors.New("daily post quota exceeded")
	ErrChannelQuotaExceeded = errors.New("channel quota exceeded")
	ErrNotFound             = errors.New("not found")
	ErrChannelNotOwned      = errors.New("channel does not belong to user")
	ErrNoActiveSubscription = errors.New("no active subscription")
)

// Ошибки среды выполнения.
var (
	// ErrGateway — транзиентный сбой внешнего шлюза (доставка, ревокация).
	ErrGateway = errors.New("gateway failure")
	// ErrConflict — обнаружен второй работающий экземпляр бота. Фатально на старте.
	ErrConflict = errors.New("another bot instance is already running")
	ErrInternal = errors.New("internal error")
)
