package temporal

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
)

// Dial connects to Temporal with structured logging and OpenTelemetry tracing.
func Dial(hostPort, namespace string, logger *slog.Logger, tracer trace.Tracer) (client.Client, error) {
	if hostPort == "" {
		hostPort = client.DefaultHostPort
	}
	if namespace == "" {
		namespace = client.DefaultNamespace
	}
	options := client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	}
	if logger != nil {
		options.Logger = workerlog.NewStructuredLogger(logger)
	}
	if tracer != nil {
		interceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{Tracer: tracer})
		if err != nil {
			return nil, fmt.Errorf("configure Temporal tracing interceptor: %w", err)
		}
		options.Interceptors = append(options.Interceptors, interceptor)
	}
	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("dial Temporal at %s: %w", hostPort, err)
	}
	return c, nil
}
