package server

import (
	"testing"
	"time"
)

func TestApplyPortArg(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"9000", 9000, false},
		{"65535", 65535, false},
		{"abc", DefaultPort, true},
		{"0", DefaultPort, true},
		{"-1", DefaultPort, true},
		{"70000", DefaultPort, true},
		{"", DefaultPort, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.ApplyPortArg(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if cfg.Port != tt.want {
				t.Fatalf("port = %d, want %d", cfg.Port, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TETRISDUEL_PORT", "17000")
	t.Setenv("TETRISDUEL_CODEC", "msgpack")
	t.Setenv("TETRISDUEL_TPS", "60")
	t.Setenv("TETRISDUEL_MATCH_SECONDS", "90")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 17000 || cfg.Codec != "msgpack" || cfg.TPS != 60 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SnapshotIntervalMs != 100 || cfg.StartLeadMs != 1000 || cfg.HTTPAddr != ":8080" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MatchDuration() != 90*time.Second {
		t.Fatalf("duration = %s", cfg.MatchDuration())
	}
	if cfg.Addr() != ":17000" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown codec", "TETRISDUEL_CODEC", "xml"},
		{"zero tps", "TETRISDUEL_TPS", "0"},
		{"negative lead", "TETRISDUEL_START_LEAD_MS", "-5"},
		{"not a number", "TETRISDUEL_SNAPSHOT_INTERVAL_MS", "fast"},
		{"port zero", "TETRISDUEL_PORT", "0"},
		{"port too large", "TETRISDUEL_PORT", "70000"},
		{"unknown log level", "TETRISDUEL_LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadConfigOrDefaultFallsBack(t *testing.T) {
	t.Setenv("TETRISDUEL_PORT", "99999")
	t.Setenv("TETRISDUEL_TPS", "60")

	cfg, err := LoadConfigOrDefault()
	if err == nil {
		t.Fatalf("expected the load error to be reported")
	}
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fallback config invalid: %v", err)
	}
}

func TestLoadConfigOrDefaultKeepsValidEnv(t *testing.T) {
	t.Setenv("TETRISDUEL_TPS", "60")
	cfg, err := LoadConfigOrDefault()
	if err != nil {
		t.Fatalf("LoadConfigOrDefault: %v", err)
	}
	if cfg.TPS != 60 {
		t.Fatalf("tps = %d", cfg.TPS)
	}
}

func TestDerivedDurations(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.TickInterval(); got != time.Second/30 {
		t.Fatalf("tick = %s", got)
	}
	if cfg.SnapshotInterval() != 100*time.Millisecond || cfg.StartLead() != time.Second {
		t.Fatalf("intervals = %s %s", cfg.SnapshotInterval(), cfg.StartLead())
	}
	if cfg.MatchDuration() != 0 {
		t.Fatalf("default should be endless")
	}
}
