package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/johnyburd/autbot/internal/core/backoff"
	"github.com/johnyburd/autbot/internal/infra/metrics"
	"github.com/johnyburd/autbot/internal/infra/rpc/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ErrMissingEndpoint is returned when a service address is not configured.
var ErrMissingEndpoint = errors.New("service endpoint is not configured")

const defaultAttemptTimeout = 5 * time.Second

// GRPCConfig describes how to reach one downstream service.
type GRPCConfig struct {
	// Name labels logs and metrics (e.g., "feature_gate").
	Name string
	// Endpoint is host:port, optionally with an http:// or https:// scheme.
	Endpoint string
	// InitBackoff drives connecting and probing during startup.
	InitBackoff backoff.Spec
	// RPCBackoff drives every Execute call.
	RPCBackoff backoff.Spec
	// AttemptTimeout bounds a single connect-and-probe attempt.
	AttemptTimeout time.Duration
	// DialOptions are appended after the transport credentials.
	DialOptions []grpc.DialOption
	Logger      *slog.Logger
}

// GRPCProvider implements Provider for gRPC.
// Callers use Conn() with generated clients, or wrap those calls in an
// Operation to get the RPC retry policy.
type GRPCProvider struct {
	*BaseProvider
	endpoint string
	conn     *grpc.ClientConn
	rpc      *retry.Executor
	log      *slog.Logger
	recorder *metrics.Recorder
}

// Connect dials the service and waits until it is ready and its health
// check passes, retrying under cfg.InitBackoff. Connection failures count as
// transient for this phase.
func Connect(ctx context.Context, cfg GRPCConfig) (*GRPCProvider, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Name, ErrMissingEndpoint)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("service", cfg.Name)
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}

	target, opts := dialTarget(cfg.Endpoint)
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	recorder := metrics.NewRecorder(cfg.Name)
	initExec := retry.New(cfg.InitBackoff,
		retry.WithLogger(log),
		retry.WithObserver(recorder),
	)

	log.Info("Connecting to service", "endpoint", target)
	start := time.Now()
	err = initExec.Do(ctx, "connect", func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cancel()
		return probe(attemptCtx, conn)
	})
	if err != nil {
		recorder.SetUp(false)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to %s at %s: %w", cfg.Name, target, err)
	}
	recorder.SetUp(true)
	log.Info("Connected to service", "endpoint", target, "took", time.Since(start))

	p := &GRPCProvider{
		BaseProvider: NewBaseProvider(cfg.Name),
		endpoint:     cfg.Endpoint,
		conn:         conn,
		log:          log,
		recorder:     recorder,
		rpc: retry.New(cfg.RPCBackoff,
			retry.WithLogger(log),
			retry.WithObserver(recorder),
		),
	}
	p.RecordSuccess(time.Since(start))
	return p, nil
}

func dialTarget(endpoint string) (string, []grpc.DialOption) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}
	return target, opts
}

// probe waits for the connection to become ready and asks the standard
// health service for the overall status. Servers without a health service
// are accepted once the connection is ready.
func probe(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			break
		}
		if !conn.WaitForStateChange(ctx, state) {
			// Not ready within the attempt: transient, even if grpc says Unavailable.
			return status.Errorf(codes.DeadlineExceeded, "connection not ready: %s", state)
		}
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	switch {
	case status.Code(err) == codes.Unimplemented:
		return nil
	case err != nil:
		return status.Errorf(codes.DeadlineExceeded, "health check failed: %v", err)
	case resp.GetStatus() != healthpb.HealthCheckResponse_SERVING:
		return status.Errorf(codes.FailedPrecondition, "service reports %s", resp.GetStatus())
	}
	return nil
}

// Execute runs op under the RPC backoff and records the result.
func (p *GRPCProvider) Execute(ctx context.Context, op Operation) (any, error) {
	return Invoke(ctx, p, op.Name, op.Invoke)
}

// Invoke is the typed form of Execute.
func Invoke[T any](
	ctx context.Context,
	p *GRPCProvider,
	name string,
	fn func(ctx context.Context, conn grpc.ClientConnInterface) (T, error),
) (T, error) {
	start := time.Now()
	result, err := retry.Call(ctx, p.rpc, name, func(ctx context.Context) (T, error) {
		return fn(ctx, p.conn)
	})
	if err != nil {
		p.RecordFailure(err)
		return result, err
	}
	p.RecordSuccess(time.Since(start))
	return result, nil
}

// Conn returns the underlying gRPC connection.
// This allows using generated gRPC clients.
func (p *GRPCProvider) Conn() *grpc.ClientConn {
	return p.conn
}

// Endpoint returns the configured address.
func (p *GRPCProvider) Endpoint() string {
	return p.endpoint
}

// Close cleans up resources.
func (p *GRPCProvider) Close() error {
	p.log.Debug("Closing service connection")
	p.recorder.SetUp(false)
	return p.conn.Close()
}
