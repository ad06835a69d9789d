package config

import (
	"errors"
)

var (
	// ErrConfigNil error if a nil config is passed around.
	ErrConfigNil = errors.New("config is nil")

	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormengine names an unsupported database.
	ErrUnknownGormEngine = errors.New("toml config db.gormengine is not supported")

	// ErrUnknownCacheDriver error if config cache.driver names an unsupported backend.
	ErrUnknownCacheDriver = errors.New("toml config cache.driver is not supported")

	// ErrCacheAddrEmpty error if the redis cache has no address.
	ErrCacheAddrEmpty = errors.New("toml config cache.addr can not be empty for redis")

	// ErrUnknownNonEditablePolicy error if config confetti.noneditablepolicy is unknown.
	ErrUnknownNonEditablePolicy = errors.New("toml config confetti.noneditablepolicy is not supported")

	// ErrNegativeTTL error if one of the confetti cache TTLs is negative.
	ErrNegativeTTL = errors.New("toml config confetti cache ttl can not be negative")
)
