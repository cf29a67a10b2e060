package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "philanthrohub",
				Password: "secret",
				Name:     "directory",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=philanthrohub password=secret dbname=directory sslmode=require",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:    "db.example.com",
				Port:    5433,
				User:    "user",
				Name:    "dbname",
				SSLMode: "disable",
			},
			want: "host=db.example.com port=5433 user=user password= dbname=dbname sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetDSN(); got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetAddress(); got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Directory: DirectoryConfig{Backend: "memory"},
		Sessions:  SessionsConfig{MaxEntries: 100, TTL: time.Hour},
		Client:    ClientConfig{PollInterval: 30 * time.Second, StaleTime: time.Minute},
		Logging:   LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid minimal config", func(*Config) {}, ""},
		{"invalid server port 0", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"invalid server port 70000", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"unknown directory backend", func(c *Config) { c.Directory.Backend = "mongo" }, "invalid directory backend"},
		{"sqlite without path", func(c *Config) { c.Directory.Backend = "sqlite" }, "sqlite_path"},
		{"sqlite with path", func(c *Config) {
			c.Directory.Backend = "sqlite"
			c.Directory.SQLitePath = "dir.db"
		}, ""},
		{"postgres without host", func(c *Config) {
			c.Directory.Backend = "postgres"
			c.Database = DatabaseConfig{Name: "d", User: "u"}
		}, "database host"},
		{"postgres without user", func(c *Config) {
			c.Directory.Backend = "postgres"
			c.Database = DatabaseConfig{Host: "h", Name: "d"}
		}, "database user"},
		{"postgres complete", func(c *Config) {
			c.Directory.Backend = "postgres"
			c.Database = DatabaseConfig{Host: "h", Name: "d", User: "u"}
		}, ""},
		{"zero sessions", func(c *Config) { c.Sessions.MaxEntries = 0 }, "max_entries"},
		{"zero poll interval", func(c *Config) { c.Client.PollInterval = 0 }, "poll_interval"},
		{"rate limiting without budget", func(c *Config) {
			c.Security.RateLimiting = RateLimitingConfig{Enabled: true}
		}, "requests_per_minute"},
		{"tls missing key_file", func(c *Config) {
			c.Security.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"}
		}, "TLS"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"snapshot without key", func(c *Config) {
			c.Snapshot = SnapshotConfig{Enabled: true, Interval: time.Minute,
				Storage: StorageConfig{Backend: "local", Local: LocalStorageConfig{BasePath: "/tmp"}}}
		}, "snapshot.key"},
		{"snapshot unknown storage backend", func(c *Config) {
			c.Snapshot = SnapshotConfig{Enabled: true, Interval: time.Minute, Key: "k",
				Storage: StorageConfig{Backend: "ftp"}}
		}, "invalid storage backend"},
		{"snapshot s3 missing region", func(c *Config) {
			c.Snapshot = SnapshotConfig{Enabled: true, Interval: time.Minute, Key: "k",
				Storage: StorageConfig{Backend: "s3", S3: S3StorageConfig{Bucket: "b"}}}
		}, "s3 storage"},
		{"snapshot gcs missing bucket", func(c *Config) {
			c.Snapshot = SnapshotConfig{Enabled: true, Interval: time.Minute, Key: "k",
				Storage: StorageConfig{Backend: "gcs"}}
		}, "gcs storage"},
		{"snapshot azure missing key", func(c *Config) {
			c.Snapshot = SnapshotConfig{Enabled: true, Interval: time.Minute, Key: "k",
				Storage: StorageConfig{Backend: "azure", Azure: AzureStorageConfig{AccountName: "a", ContainerName: "c"}}}
		}, "azure storage"},
		{"snapshot azure complete", func(c *Config) {
			c.Snapshot = SnapshotConfig{Enabled: true, Interval: time.Minute, Key: "k",
				Storage: StorageConfig{Backend: "azure", Azure: AzureStorageConfig{AccountName: "a", AccountKey: "k", ContainerName: "c"}}}
		}, ""},
		{"snapshot disabled ignores storage", func(c *Config) {
			c.Snapshot = SnapshotConfig{Storage: StorageConfig{Backend: "ftp"}}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Load – defaults, file and env overrides
// ---------------------------------------------------------------------------

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for a missing explicit config file")
	}
	if !strings.Contains(err.Error(), "error reading config file") {
		t.Errorf("Load() unexpected error kind: %v", err)
	}
}

func TestLoad_DefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Directory.Backend != "memory" {
		t.Errorf("default backend = %q, want memory", cfg.Directory.Backend)
	}
	if cfg.Client.PollInterval != 30*time.Second || cfg.Client.StaleTime != 60*time.Second {
		t.Errorf("client timings = %v/%v, want 30s/60s", cfg.Client.PollInterval, cfg.Client.StaleTime)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug from file", cfg.Logging.Level)
	}
	if cfg.Directory.DirectImage != DefaultDirectImage {
		t.Errorf("direct image = %q, want default", cfg.Directory.DirectImage)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("directory:\n  backend: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PHUB_DIRECTORY_BACKEND", "sqlite")
	t.Setenv("PHUB_DIRECTORY_SQLITE_PATH", "/tmp/dir.db")
	t.Setenv("PHUB_SERVER_PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Directory.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite from env", cfg.Directory.Backend)
	}
	if cfg.Directory.SQLitePath != "/tmp/dir.db" {
		t.Errorf("sqlite path = %q", cfg.Directory.SQLitePath)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
}

func TestLoad_InvalidFileValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("directory:\n  backend: mongo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Load() error = %v, want invalid configuration", err)
	}
}

func TestWatch_ReturnsInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Watch(path, func(*Config) {})
	if err != nil {
		t.Fatalf("Watch() unexpected error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want warn", cfg.Logging.Level)
	}
}

// ---------------------------------------------------------------------------
// expandEnv
// ---------------------------------------------------------------------------

func TestExpandEnv(t *testing.T) {
	t.Run("expands ${VAR} syntax", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_SECRET", "super-secret")
		if got := expandEnv("${CONFIG_TEST_SECRET}"); got != "super-secret" {
			t.Errorf("expandEnv() = %q, want %q", got, "super-secret")
		}
	})

	t.Run("plain string passthrough", func(t *testing.T) {
		if got := expandEnv("no-vars-here"); got != "no-vars-here" {
			t.Errorf("expandEnv() = %q, want %q", got, "no-vars-here")
		}
	})

	t.Run("unset variable expands to empty string", func(t *testing.T) {
		os.Unsetenv("CONFIG_TEST_DEFINITELY_UNSET_12345")
		if got := expandEnv("${CONFIG_TEST_DEFINITELY_UNSET_12345}"); got != "" {
			t.Errorf("expandEnv() = %q, want empty string", got)
		}
	})
}
