// Package control assembles the gateway service from its configuration:
// downstream gRPC connections plus the health and metrics server.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/johnyburd/autbot/internal/core/config"
	"github.com/johnyburd/autbot/internal/health"
	"github.com/johnyburd/autbot/internal/infra/rpc/provider"
	"google.golang.org/grpc"
)

// Service names used for logs, metrics and health reports.
const (
	FeatureGateService = "feature_gate"
	LogsUptimeService  = "logs_uptime"
)

// ErrMissingSecret is returned when a required secret is empty.
var ErrMissingSecret = errors.New("required secret is not configured")

// Options holds dependencies that are not part of the configuration file.
type Options struct {
	// DialOptions are passed to every downstream connection.
	DialOptions []grpc.DialOption
	Logger      *slog.Logger
}

// Service owns the downstream connections for the lifetime of the process.
type Service struct {
	cfg          config.Configuration
	opts         Options
	log          *slog.Logger
	healthServer *health.Server

	mu          sync.RWMutex
	featureGate *provider.GRPCProvider
	logsUptime  *provider.GRPCProvider
}

// NewService checks the values this service cannot run without and builds
// an unstarted Service.
func NewService(cfg config.Configuration, opts Options) (*Service, error) {
	if strings.TrimSpace(cfg.Secrets.DiscordToken) == "" {
		return nil, fmt.Errorf("secrets.discord_token: %w", ErrMissingSecret)
	}
	if cfg.Services.FeatureGate == "" {
		return nil, fmt.Errorf("services.feature_gate: %w", provider.ErrMissingEndpoint)
	}
	if cfg.Services.LogsUptime == "" {
		return nil, fmt.Errorf("services.logs_uptime: %w", provider.ErrMissingEndpoint)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		cfg:  cfg,
		opts: opts,
		log:  log,
	}
	s.healthServer = health.NewServer(s, cfg.Server.Port)
	return s, nil
}

// Start serves health and metrics, then connects to every downstream
// service under the initialization backoff. Any failed connection aborts
// startup.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	featureGate, err := s.connect(ctx, FeatureGateService, s.cfg.Services.FeatureGate)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.featureGate = featureGate
	s.mu.Unlock()

	logsUptime, err := s.connect(ctx, LogsUptimeService, s.cfg.Services.LogsUptime)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.logsUptime = logsUptime
	s.mu.Unlock()

	s.log.Info("Service started",
		"indexing_feature", s.cfg.IndexingFeature,
		"health_port", s.cfg.Server.Port,
	)
	return nil
}

func (s *Service) connect(ctx context.Context, name, endpoint string) (*provider.GRPCProvider, error) {
	return provider.Connect(ctx, provider.GRPCConfig{
		Name:        name,
		Endpoint:    endpoint,
		InitBackoff: s.cfg.InitializationBackoff,
		RPCBackoff:  s.cfg.RPCBackoff,
		DialOptions: s.opts.DialOptions,
		Logger:      s.log,
	})
}

// FeatureGate returns the feature-gate connection, or nil before Start.
func (s *Service) FeatureGate() *provider.GRPCProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.featureGate
}

// LogsUptime returns the uptime service connection, or nil before Start.
func (s *Service) LogsUptime() *provider.GRPCProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logsUptime
}

// Providers lists connected services for health reporting.
func (s *Service) Providers() []provider.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []provider.Provider
	if s.featureGate != nil {
		out = append(out, s.featureGate)
	}
	if s.logsUptime != nil {
		out = append(out, s.logsUptime)
	}
	return out
}

// Health returns the current health report.
func (s *Service) Health() health.Report {
	return s.healthServer.Check()
}

// Stop closes connections and shuts the health server down.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")

	s.mu.Lock()
	providers := []*provider.GRPCProvider{s.featureGate, s.logsUptime}
	s.featureGate, s.logsUptime = nil, nil
	s.mu.Unlock()

	var errs []error
	for _, p := range providers {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.GetName(), err))
		}
	}
	if err := s.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop health server: %w", err))
	}
	return errors.Join(errs...)
}
