package config

import (
	"log/slog"
	"net/url"
	"os"
)

var exit = os.Exit

func missing(envName, problem string) {
	slog.Error("config_invalid", "env", envName, "reason", problem)
	exit(1)
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		missing(envName, "empty")
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		missing(envName, "empty")
	}
}

// MustURL requires an absolute http(s) URL, as used for upstream services.
func MustURL(value, envName string) {
	if value == "" {
		missing(envName, "empty")
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		missing(envName, "not an http(s) url")
	}
}
