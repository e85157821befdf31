package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/johnyburd/autbot/internal/core/backoff"
	"github.com/johnyburd/autbot/internal/core/config"
)

func TestWriteConfig(t *testing.T) {
	cfg := config.Configuration{
		Secrets: config.Secrets{DiscordToken: "super-secret"},
		RPCBackoff: backoff.Spec{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			MaxElapsed:      30 * time.Second,
			Multiplier:      1.5,
		},
	}

	var buf bytes.Buffer
	if err := writeConfig(&buf, cfg, false); err != nil {
		t.Fatalf("writeConfig failed: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "super-secret") {
		t.Error("secret leaked into output")
	}
	for _, want := range []string{"rpc_backoff:", "initial_interval: 100ms", "multiplier: 1.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeConfig(&buf, cfg, true); err != nil {
		t.Fatalf("writeConfig failed: %v", err)
	}
	if !strings.Contains(buf.String(), "super-secret") {
		t.Error("expected secret with show-secrets")
	}
}
