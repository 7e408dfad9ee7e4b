package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrNoAuthBackendEnabled error if neither local, directory nor oidc authentication is enabled.
	ErrNoAuthBackendEnabled = errors.New("toml config auth must enable at least one backend")
)
