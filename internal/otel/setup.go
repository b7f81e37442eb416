package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "clipcoach-api"

// SetupOTelSDK installs global trace, metric and log providers. When useOTLP
// is false everything is exported to stdout, which is what local development
// wants. The returned function flushes and shuts down whatever providers were
// installed; call it even when an error is returned.
func SetupOTelSDK(
	ctx context.Context,
	useOTLP bool,
) (func(context.Context) error, error) {
	var cleanups []func(context.Context) error

	shutdown := func(ctx context.Context) error {
		var errs error
		for _, fn := range cleanups {
			errs = errors.Join(errs, fn(ctx))
		}
		cleanups = nil
		return errs
	}

	fail := func(err error) error {
		return errors.Join(err, shutdown(ctx))
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return shutdown, fail(err)
	}

	tp, err := newTracerProvider(useOTLP, res)
	if err != nil {
		return shutdown, fail(err)
	}
	cleanups = append(cleanups, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mp, err := newMeterProvider(useOTLP, res)
	if err != nil {
		return shutdown, fail(err)
	}
	cleanups = append(cleanups, mp.Shutdown)
	otel.SetMeterProvider(mp)

	lp, err := newLoggerProvider(useOTLP, res)
	if err != nil {
		return shutdown, fail(err)
	}
	cleanups = append(cleanups, lp.Shutdown)
	global.SetLoggerProvider(lp)

	return shutdown, nil
}

func newTracerProvider(useOTLP bool, res *resource.Resource) (*trace.TracerProvider, error) {
	var exporter trace.SpanExporter
	var err error

	if useOTLP {
		exporter, err = otlptracegrpc.New(context.Background())
	} else {
		exporter, err = stdouttrace.New()
	}
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	), nil
}

func newMeterProvider(useOTLP bool, res *resource.Resource) (*metric.MeterProvider, error) {
	var exporter metric.Exporter
	var err error

	if useOTLP {
		exporter, err = otlpmetricgrpc.New(context.Background())
	} else {
		exporter, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, err
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	), nil
}

func newLoggerProvider(useOTLP bool, res *resource.Resource) (*log.LoggerProvider, error) {
	var exporter log.Exporter
	var err error

	if useOTLP {
		exporter, err = otlploggrpc.New(context.Background())
	} else {
		exporter, err = stdoutlog.New()
	}
	if err != nil {
		return nil, err
	}

	return log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter)),
		log.WithResource(res),
	), nil
}
