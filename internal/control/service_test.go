package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/johnyburd/autbot/internal/core/backoff"
	"github.com/johnyburd/autbot/internal/core/config"
	"github.com/johnyburd/autbot/internal/health"
	"github.com/johnyburd/autbot/internal/infra/rpc/provider"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func testConfiguration() config.Configuration {
	spec := backoff.Spec{
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		MaxElapsed:      100 * time.Millisecond,
		Multiplier:      2,
	}
	return config.Configuration{
		Secrets: config.Secrets{DiscordToken: "token"},
		Services: config.Services{
			FeatureGate: "passthrough:///feature-gate",
			LogsUptime:  "passthrough:///logs-uptime",
		},
		InitializationBackoff: spec,
		RPCBackoff:            spec,
		IndexingFeature:       "logs-indexing",
	}
}

func bufconnOptions(t *testing.T) []grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, grpchealth.NewServer())
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	}
}

func TestNewService_RequiresValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Configuration)
		want   error
	}{
		{"missing token", func(c *config.Configuration) { c.Secrets.DiscordToken = "" }, ErrMissingSecret},
		{"missing feature gate", func(c *config.Configuration) { c.Services.FeatureGate = "" }, provider.ErrMissingEndpoint},
		{"missing uptime", func(c *config.Configuration) { c.Services.LogsUptime = "" }, provider.ErrMissingEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfiguration()
			tt.mutate(&cfg)
			if _, err := NewService(cfg, Options{}); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_Lifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(testConfiguration(), Options{
		DialOptions: bufconnOptions(t),
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if len(svc.Providers()) != 0 {
		t.Fatal("expected no providers before Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if svc.FeatureGate() == nil || svc.LogsUptime() == nil {
		t.Fatal("expected both services connected")
	}
	if report := svc.Health(); report.Status != health.StatusHealthy || len(report.Services) != 2 {
		t.Errorf("unexpected health report: %+v", report)
	}

	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if len(svc.Providers()) != 0 {
		t.Error("expected providers released after Stop")
	}
}
