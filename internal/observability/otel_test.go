package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/Schankelqt/meetings-dify-bot/internal/config"
)

func TestSetupOTel_DisabledIsNoOp(t *testing.T) {
	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("shutdown is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown: %v", err)
	}
}

func TestSetupOTel_ExporterError(t *testing.T) {
	orig := newOTLPExporterFn
	defer func() { newOTLPExporterFn = orig }()
	newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter down")
	}

	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test",
		SampleRatio: 1,
	}, "test")
	if err == nil {
		t.Fatalf("SetupOTel: want exporter error")
	}
}

func TestSetupOTel_ResourceError(t *testing.T) {
	origRes := newServiceResourceFn
	defer func() { newServiceResourceFn = origRes }()
	newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, errors.New("resource failed")
	}

	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test",
		SampleRatio: 0.5,
	}, "test")
	if err == nil {
		t.Fatalf("SetupOTel: want resource error")
	}
}
