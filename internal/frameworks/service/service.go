// Package service defines the HTTP service framework: the Service
// interface, a constructor registry, and config decoding utilities.
package service

import (
	"log/slog"
	"net/http"
)

// Service represents an HTTP service that can be registered and mounted.
type Service interface {
	Handler() http.Handler
	Prefix() string
	Close() error
}

// NewService is the constructor function type for services. conf is the
// raw [http.services.<name>] map from configuration.
type NewService func(conf map[string]any, log *slog.Logger) (Service, error)
