package mongo

import "errors"

var (
	ErrConnectFailed      = errors.New("mongo: failed to connect to state store")
	ErrEmptyConnectionURL = errors.New("mongo: empty connection url, set MONGODB_URL")
	ErrHealthcheckFailed  = errors.New("mongo: healthcheck failed")
	ErrUnsupportedValue   = errors.New("mongo: state value must be a string or null")
)
