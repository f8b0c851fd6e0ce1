package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/jecoplus/lending/pkg/auth"
)

// ServerConfig tunes the gRPC server. A nil JWT disables authentication and
// nil Creds serves plaintext.
type ServerConfig struct {
	JWT        *auth.JWTService
	Creds      credentials.TransportCredentials
	Reflection bool
}

// MethodRoles lists the staff-only RPCs.
var MethodRoles = map[string][]string{
	FullMethod("DecideApplication"): {auth.RolePartner, auth.RoleOperator},
	FullMethod("ReversePayment"):    {auth.RoleOperator},
	FullMethod("WaiveLateFee"):      {auth.RoleOperator},
	FullMethod("ModifyLoan"):        {auth.RoleOperator},
}

// Server wraps a gRPC server with the lending handler registered.
type Server struct {
	gs     *grpclib.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates and configures the gRPC server.
func NewServer(handler LendingServiceServer, cfg ServerConfig, logger *slog.Logger) *Server {
	interceptors := []grpclib.UnaryServerInterceptor{tracingInterceptor(), loggingInterceptor(logger)}
	if cfg.JWT != nil {
		interceptors = append(interceptors, auth.UnaryAuthInterceptor(cfg.JWT, auth.InterceptorConfig{
			SkipMethods: []string{
				"/grpc.health.v1.Health/Check",
				"/grpc.health.v1.Health/Watch",
			},
			MethodRoles: MethodRoles,
		}))
	} else {
		logger.Warn("gRPC authentication disabled")
	}

	opts := []grpclib.ServerOption{grpclib.ChainUnaryInterceptor(interceptors...)}
	if cfg.Creds != nil {
		opts = append(opts, grpclib.Creds(cfg.Creds))
	}
	gs := grpclib.NewServer(opts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if cfg.Reflection {
		reflection.Register(gs)
	}

	RegisterLendingServiceServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, logger: logger}
}

// SetServing flips the health status reported for the lending service.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// Serve starts the gRPC server on the specified address.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.logger.Info("gRPC server listening", "addr", addr)
	return s.gs.Serve(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.gs.Serve(lis)
}

// GracefulStop stops the server gracefully.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}

// loggingInterceptor translates handler errors into gRPC statuses and logs
// failures with the original error.
func loggingInterceptor(logger *slog.Logger) grpclib.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err == nil {
			logger.DebugContext(ctx, "rpc completed", "method", info.FullMethod, "duration", time.Since(start))
			return resp, nil
		}
		st := status.Convert(toStatus(err))
		level := slog.LevelWarn
		if st.Code() == codes.Internal {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "rpc failed",
			"method", info.FullMethod,
			"code", st.Code().String(),
			"error", err,
			"duration", time.Since(start),
		)
		return nil, st.Err()
	}
}

const tracerName = "github.com/jecoplus/lending/internal/presentation/grpc"

// tracingInterceptor opens a server span per RPC, continuing any trace
// context the caller sent in metadata. Spans go to the global provider, a
// no-op unless tracing is configured.
func tracingInterceptor() grpclib.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = otel.GetTextMapPropagator().Extract(ctx, metadataCarrier(md))
		}
		ctx, span := otel.Tracer(tracerName).Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		resp, err := handler(ctx, req)
		if err != nil {
			st := status.Convert(toStatus(err))
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, st.Code().String())
		}
		return resp, err
	}
}

type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	if v := metadata.MD(c).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
