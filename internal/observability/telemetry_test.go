package observability

import (
	"context"
	"testing"
)

func TestSetupDisabled(t *testing.T) {
	for _, cfg := range []*TelemetryConfig{nil, {Enabled: false, Endpoint: "collector:4318"}} {
		shutdown, err := Setup(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Setup: %v", err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}
}

func TestServiceName(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	if got := ServiceName(nil); got != DefaultServiceName {
		t.Fatalf("ServiceName(nil) = %q", got)
	}
	t.Setenv("OTEL_SERVICE_NAME", "from-env")
	if got := ServiceName(&TelemetryConfig{}); got != "from-env" {
		t.Fatalf("env service name = %q", got)
	}
	if got := ServiceName(&TelemetryConfig{ServiceName: "kiosk"}); got != "kiosk" {
		t.Fatalf("configured service name = %q", got)
	}
}

func TestEnabledFromEnv(t *testing.T) {
	cases := map[string]bool{"": false, "0": false, "no": false, "1": true, "TRUE": true, " yes ": true}
	for in, want := range cases {
		t.Setenv("OTEL_ENABLED", in)
		if got := EnabledFromEnv(); got != want {
			t.Errorf("OTEL_ENABLED=%q: got %v, want %v", in, got, want)
		}
	}
}

func TestTracerNoop(t *testing.T) {
	_, span := Tracer("tripcard.test").Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Fatalf("default provider should produce invalid span contexts")
	}
}
