package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("remote row not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrFeedClosed      = errors.New("change feed closed")
)
