package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("expected 8080, got %s", cfg.HTTPPort)
	}
	if cfg.Tracking.BaseToleranceMeters != 15 {
		t.Errorf("expected base tolerance 15, got %f", cfg.Tracking.BaseToleranceMeters)
	}
	if cfg.Tracking.ToleranceIncrementMeters != 15 {
		t.Errorf("expected increment 15, got %f", cfg.Tracking.ToleranceIncrementMeters)
	}
	if cfg.Tracking.AccuracyRejectMeters != 15 {
		t.Errorf("expected accuracy threshold 15, got %f", cfg.Tracking.AccuracyRejectMeters)
	}
	if cfg.Tracking.ForegroundInterval != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.Tracking.ForegroundInterval)
	}
	if cfg.Tracking.BackgroundInterval != 10*time.Second {
		t.Errorf("expected 10s, got %v", cfg.Tracking.BackgroundInterval)
	}
	if cfg.Tracking.FlushOnStop {
		t.Error("expected flush on stop to be disabled")
	}
	if cfg.Tracking.StorageRoot != "PaymentCollectionInfo/PaymentCollectorLocationHistory" {
		t.Errorf("unexpected storage root %s", cfg.Tracking.StorageRoot)
	}
	if cfg.Tracking.Location == nil {
		t.Error("expected location to be resolved")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("BASE_TOLERANCE_METERS", "20")
	t.Setenv("FOREGROUND_INTERVAL", "7s")
	t.Setenv("FLUSH_ON_STOP", "true")
	t.Setenv("TRACKING_TIMEZONE", "Asia/Jakarta")
	t.Setenv("STORAGE_ROOT", "/Root/History/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "9000" {
		t.Errorf("expected 9000, got %s", cfg.HTTPPort)
	}
	if cfg.Tracking.BaseToleranceMeters != 20 {
		t.Errorf("expected 20, got %f", cfg.Tracking.BaseToleranceMeters)
	}
	if cfg.Tracking.ForegroundInterval != 7*time.Second {
		t.Errorf("expected 7s, got %v", cfg.Tracking.ForegroundInterval)
	}
	if !cfg.Tracking.FlushOnStop {
		t.Error("expected flush on stop")
	}
	if cfg.Tracking.Location.String() != "Asia/Jakarta" {
		t.Errorf("expected Asia/Jakarta, got %s", cfg.Tracking.Location)
	}
	if cfg.Tracking.StorageRoot != "Root/History" {
		t.Errorf("expected trimmed root, got %s", cfg.Tracking.StorageRoot)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero tolerance", "BASE_TOLERANCE_METERS", "0"},
		{"negative increment", "TOLERANCE_INCREMENT_METERS", "-1"},
		{"zero accuracy", "ACCURACY_REJECT_METERS", "0"},
		{"bad timezone", "TRACKING_TIMEZONE", "Mars/Olympus"},
		{"empty root", "STORAGE_ROOT", "/"},
		{"zero queue", "WRITE_QUEUE_SIZE", "0"},
		{"negative retries", "WRITE_RETRIES", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoadRedisAddr(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want string
	}{
		{"empty disables redis", "", ""},
		{"address set", "redis:6379", "redis:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REDIS_ADDR", tt.val)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.RedisAddr != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.RedisAddr)
			}
		})
	}
}
