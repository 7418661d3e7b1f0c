package redis

import "errors"

var (
	ErrInvalidConnectionURL = errors.New("redis: invalid connection url")
	ErrEmptyConnectionURL   = errors.New("redis: empty connection url, set REDIS_URL")
	ErrNotReady             = errors.New("redis: server did not become ready")
	ErrHealthcheckFailed    = errors.New("redis: healthcheck failed")
	ErrMalformedEvent       = errors.New("redis: malformed state event payload")
)
