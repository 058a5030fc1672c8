// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Source:       SourceMemory,
		Store:        StoreMemory,
		Threshold:    20,
		Window:       10 * time.Second,
		LogFormat:    "json",
		OutputFormat: "text",
	}
}

func TestInitConfig(t *testing.T) {
	t.Run("with no config file", func(t *testing.T) {
		v, err := InitConfig("")
		if err != nil {
			t.Fatalf("InitConfig failed: %v", err)
		}

		// Check defaults
		if v.GetString("source") != SourceLocal {
			t.Errorf("Expected default source 'local', got %s", v.GetString("source"))
		}
		if v.GetInt64("threshold") != 20 {
			t.Errorf("Expected default threshold 20, got %d", v.GetInt64("threshold"))
		}
		if v.GetDuration("window") != 10*time.Second {
			t.Errorf("Expected default window 10s, got %s", v.GetDuration("window"))
		}
		if v.GetString("report-key") != "size-history.json" {
			t.Errorf("Expected default report key, got %s", v.GetString("report-key"))
		}
	})

	t.Run("with config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".objwatch.yaml")
		configContent := `source: s3
bucket: assignment-bucket
region: us-west-2
threshold: 100
window: 30s
store: sqlite
store-path: /tmp/records.db
`
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		v, err := InitConfig(configPath)
		if err != nil {
			t.Fatalf("InitConfig failed: %v", err)
		}
		cfg := GetConfig(v)

		if cfg.Source != SourceS3 || cfg.Bucket != "assignment-bucket" || cfg.Region != "us-west-2" {
			t.Errorf("Unexpected source settings: %+v", cfg)
		}
		if cfg.Threshold != 100 {
			t.Errorf("Expected threshold 100, got %d", cfg.Threshold)
		}
		if cfg.Window != 30*time.Second {
			t.Errorf("Expected window 30s, got %s", cfg.Window)
		}
		if cfg.Store != StoreSQLite || cfg.StorePath != "/tmp/records.db" {
			t.Errorf("Unexpected store settings: %s %s", cfg.Store, cfg.StorePath)
		}
	})

	t.Run("with environment override", func(t *testing.T) {
		t.Setenv("OBJWATCH_STORE_PATH", "/var/lib/objwatch")

		v, err := InitConfig("")
		if err != nil {
			t.Fatalf("InitConfig failed: %v", err)
		}
		if got := v.GetString("store-path"); got != "/var/lib/objwatch" {
			t.Errorf("Expected store-path from env, got %q", got)
		}
	})

	t.Run("with invalid config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(configPath, []byte("source: [unclosed"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}
		if _, err := InitConfig(configPath); err == nil {
			t.Error("Expected error for invalid config file")
		}
	})
}

func TestGetSourceSettings(t *testing.T) {
	cfg := &Config{
		Source:    SourceS3,
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "AKIAEXAMPLE",
		SecretKey: "secret",
	}
	settings := cfg.GetSourceSettings()

	want := map[string]string{
		"region":       "us-east-1",
		"endpoint":     "http://localhost:9000",
		"accessKey":    "AKIAEXAMPLE",
		"secretKey":    "secret",
		"usePathStyle": "true",
	}
	for k, v := range want {
		if settings[k] != v {
			t.Errorf("settings[%q] = %q, want %q", k, settings[k], v)
		}
	}
	if _, ok := settings["accountName"]; ok {
		t.Error("Empty settings should be omitted")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "local without path", mutate: func(c *Config) { c.Source = SourceLocal }, wantErr: ErrSourcePathRequired},
		{name: "s3 without region", mutate: func(c *Config) { c.Source = SourceS3 }, wantErr: ErrRegionRequired},
		{name: "s3 with endpoint", mutate: func(c *Config) { c.Source = SourceS3; c.Endpoint = "http://minio:9000" }},
		{name: "azure without account", mutate: func(c *Config) { c.Source = SourceAzure }, wantErr: ErrAccountRequired},
		{name: "unknown source", mutate: func(c *Config) { c.Source = "ftp" }, wantErr: ErrUnsupportedSource},
		{name: "badger without path", mutate: func(c *Config) { c.Store = StoreBadger }, wantErr: ErrStorePathRequired},
		{name: "unknown store", mutate: func(c *Config) { c.Store = "redis" }, wantErr: ErrUnsupportedStore},
		{name: "negative threshold", mutate: func(c *Config) { c.Threshold = -1 }, wantErr: ErrInvalidThreshold},
		{name: "zero threshold", mutate: func(c *Config) { c.Threshold = 0 }},
		{name: "zero window", mutate: func(c *Config) { c.Window = 0 }, wantErr: ErrInvalidWindow},
		{name: "bad output format", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: ErrUnsupportedOutputFormat},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "syslog" }, wantErr: ErrUnsupportedLogFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateConfig() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfigExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := validConfig()
	cfg.Source = SourceLocal
	cfg.SourcePath = "~/buckets"

	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig() error = %v", err)
	}
	if cfg.SourcePath != filepath.Join(home, "buckets") {
		t.Errorf("SourcePath = %s, want expanded home", cfg.SourcePath)
	}
}

func TestDisplayConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Bucket = "assignment-bucket"
	cfg.SecretKey = "supersecret"

	for _, format := range []string{"text", "json", "table"} {
		t.Run(format, func(t *testing.T) {
			out := DisplayConfig(cfg, format)
			if !strings.Contains(out, "assignment-bucket") {
				t.Errorf("DisplayConfig(%s) missing bucket:\n%s", format, out)
			}
			if strings.Contains(out, "supersecret") {
				t.Errorf("DisplayConfig(%s) leaked secret:\n%s", format, out)
			}
			if !strings.Contains(out, "supe****") {
				t.Errorf("DisplayConfig(%s) missing masked secret:\n%s", format, out)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":           "****",
		"abcd":       "****",
		"abcdefgh":   "abcd****",
		"AKIAEXAMPL": "AKIA****",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
