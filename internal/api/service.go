package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusops/roomclerk/internal/frameworks/service"
	"github.com/campusops/roomclerk/internal/frameworks/service/cfg"
	"github.com/campusops/roomclerk/internal/platform/cache"
	cachemem "github.com/campusops/roomclerk/internal/platform/cache/memory"
	"github.com/campusops/roomclerk/internal/platform/deps"
	"github.com/campusops/roomclerk/internal/platform/logutil"
)

const timeLayout = "2006-01-02T15:04:05Z07:00" // RFC 3339

func init() {
	service.MustRegister("api", New)
}

// Settings is the [http.services.api] configuration block.
type Settings struct {
	// Prefix is the mount path segment, default "api".
	Prefix string `mapstructure:"prefix"`

	// MaxSuggestions caps how many free slots a suggestion response
	// returns. Zero means unlimited.
	MaxSuggestions int `mapstructure:"max_suggestions"`

	// DirectoryCacheSeconds is how long room and device listings are
	// served from cache. They change only at provisioning time.
	DirectoryCacheSeconds int `mapstructure:"directory_cache_seconds"`
}

// ApplyDefaults fills in default settings values.
func (s *Settings) ApplyDefaults() {
	if s.Prefix == "" {
		s.Prefix = "api"
	}
	if s.DirectoryCacheSeconds == 0 {
		s.DirectoryCacheSeconds = 30
	}
}

// Svc is the scheduling API service.
type Svc struct {
	settings  Settings
	deps      *deps.Deps
	router    chi.Router
	directory cache.CacheWithCounter
	dirTTL    time.Duration
	log       *slog.Logger
}

// New creates the api service from its raw config map. Shared deps must
// be installed before the service is constructed.
func New(conf map[string]any, log *slog.Logger) (service.Service, error) {
	log = logutil.NoopIfNil(log)

	var settings Settings
	if err := cfg.Decode(conf, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode api service config: %w", err)
	}

	d := deps.GetDeps()
	if d == nil {
		return nil, fmt.Errorf("shared deps not initialized: call deps.SetDeps() before mounting services")
	}

	dirTTL := time.Duration(settings.DirectoryCacheSeconds) * time.Second
	s := &Svc{
		settings:  settings,
		deps:      d,
		directory: cachemem.New(dirTTL, time.Minute),
		dirTTL:    dirTTL,
		log:       log,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Svc) routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/meetings", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{meetingID}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handleUpdate)
			r.Post("/cancel", s.handleCancel)
			r.Post("/checkin", s.handleCheckIn)
			r.Post("/approve", s.handleApprove)
			r.Post("/reject", s.handleReject)
			r.Post("/respond", s.handleRespond)
		})
	})
	r.Post("/series/{seriesID}/cancel", s.handleCancelSeries)
	r.Post("/respond/{token}", s.handleRespondByToken)
	r.Post("/suggestions", s.handleSuggest)
	r.Get("/rooms", s.handleListRooms)
	r.Get("/devices", s.handleListDevices)

	return r
}

// Handler returns the HTTP handler for this service.
func (s *Svc) Handler() http.Handler { return s.router }

// Prefix returns the mount path segment.
func (s *Svc) Prefix() string { return s.settings.Prefix }

// Close releases service resources.
func (s *Svc) Close() error { return s.directory.Close() }
