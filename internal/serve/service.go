// Package serve exposes the dataset registry over a read-only HTTP API
// for lab tooling and training jobs. Datasets are resolved and loaded on
// first use and cached for the lifetime of the service.
package serve

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/aerlab/aerdctl/internal/aer"
	"github.com/aerlab/aerdctl/internal/auth"
	"github.com/aerlab/aerdctl/internal/observability"
)

const serviceVersion = "0.1.0"

// Options carries the listener configuration for one service instance.
type Options struct {
	Addr        string
	CorsOrigins []string
	AuthToken   string
}

// Service is the dataset API server.
type Service struct {
	registry *aer.Registry
	opts     Options
	appeared time.Time
	router   *gin.Engine

	mu       sync.Mutex
	datasets map[string]aer.Dataset
}

// New builds a Service over the given registry. Routes are registered
// immediately; call Run to serve.
func New(registry *aer.Registry, opts Options) *Service {
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Service{
		registry: registry,
		opts:     opts,
		appeared: time.Now(),
		router:   r,
		datasets: make(map[string]aer.Dataset),
	}
	s.registerRoutes()
	return s
}

// Router exposes the underlying engine for tests and embedding.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Run serves until the listener fails.
func (s *Service) Run() error {
	addr := strings.TrimSpace(s.opts.Addr)
	if addr == "" {
		addr = ":9300"
	}
	log.Info().Str("addr", addr).Msg("dataset api listening")
	return s.router.Run(addr)
}

// dataset resolves and fully loads the dataset registered under id,
// caching the loaded instance.
func (s *Service) dataset(id string) (aer.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ds, ok := s.datasets[id]; ok {
		return ds, nil
	}

	ds, err := s.registry.Resolve(id)
	if err != nil {
		return nil, err
	}
	if err := ds.LoadTrials(); err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	s.datasets[id] = ds
	return ds, nil
}

// bearerAuth guards dataset routes with the configured shared token.
func bearerAuth(validator auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if err := validator.Validate(strings.TrimSpace(token)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
