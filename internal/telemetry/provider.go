// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// DefaultExportInterval is how often metrics are pushed.
const DefaultExportInterval = 30 * time.Second

// ProviderConfig configures the OTLP/HTTP exporters.
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is the OTLP/HTTP base URL. Empty defers to the standard
	// OTEL_EXPORTER_OTLP_* environment variables.
	Endpoint       string
	ExportInterval time.Duration
}

// Providers owns the SDK meter and logger providers installed globally.
type Providers struct {
	meter  *sdkmetric.MeterProvider
	logger *sdklog.LoggerProvider
}

// Setup builds OTLP/HTTP exporters, installs the SDK providers as the OTel
// globals and returns them for shutdown.
func Setup(ctx context.Context, cfg ProviderConfig) (*Providers, error) {
	var metricOpts []otlpmetrichttp.Option
	var logOpts []otlploghttp.Option
	if cfg.Endpoint != "" {
		metricOpts = append(metricOpts, otlpmetrichttp.WithEndpointURL(cfg.Endpoint+"/v1/metrics"))
		logOpts = append(logOpts, otlploghttp.WithEndpointURL(cfg.Endpoint+"/v1/logs"))
	}

	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	logExp, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		_ = metricExp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = DefaultExportInterval
	}
	p := newProviders(cfg,
		sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(interval)),
		sdklog.NewBatchProcessor(logExp),
	)
	p.install()
	return p, nil
}

func newProviders(cfg ProviderConfig, reader sdkmetric.Reader, processor sdklog.Processor) *Providers {
	name := cfg.ServiceName
	if name == "" {
		name = loggerName
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	return &Providers{
		meter:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res)),
		logger: sdklog.NewLoggerProvider(sdklog.WithProcessor(processor), sdklog.WithResource(res)),
	}
}

// install makes p the global providers and rebinds the recorder counters.
func (p *Providers) install() {
	otel.SetMeterProvider(p.meter)
	global.SetLoggerProvider(p.logger)
	resetInstrumentsForProvider()
}

// Shutdown flushes pending telemetry and stops the exporters.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return errors.Join(p.meter.Shutdown(ctx), p.logger.Shutdown(ctx))
}
