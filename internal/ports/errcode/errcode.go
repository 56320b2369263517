package errcode

type Code string

const (
	BadRequest     Code = "BAD_REQUEST"
	QuotaExceeded  Code = "QUOTA_EXCEEDED"
	NotFound       Code = "NOT_FOUND"
	NotOwned       Code = "CHANNEL_NOT_OWNED"
	NoSubscription Code = "NO_SUBSCRIPTION"

	Gateway  Code = "GATEWAY_FAILURE"
	Internal Code = "INTERNAL_ERROR"
)
