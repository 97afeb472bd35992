package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines tt configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Teamwork  TeamworkConfig  `yaml:"teamwork"`
	Backup    BackupConfig    `yaml:"backup"`
}

// ServerConfig binds the HTTP transport. A non-empty Token is required as a
// bearer token on /mcp.
type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

// TransportConfig selects how `tt serve` exposes its tools: "stdio" or "http".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the log level. A non-empty Path also writes logs to that
// file, trimmed once it grows past a few megabytes.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// TeamworkConfig points the sync command at a Teamwork site.
type TeamworkConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// BackupConfig names the S3 bucket database snapshots are uploaded to.
// Endpoint is only needed for S3-compatible stores. Without static keys the
// default AWS credential chain is used.
type BackupConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// DefaultDBPath is ~/.tt.sqlite, or tt.sqlite when the home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "tt.sqlite"
	}
	return filepath.Join(home, ".tt.sqlite")
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path falls back to TT_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		DB: DBConfig{
			Path: DefaultDBPath(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Region: "us-east-1",
			Prefix: "tt/",
		},
	}

	if path == "" {
		path = os.Getenv("TT_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TT_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TT_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TT_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if token := os.Getenv("TT_SERVER_TOKEN"); token != "" {
		cfg.Server.Token = token
	}
	if mode := os.Getenv("TT_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("TT_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("TT_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if url := os.Getenv("TT_TEAMWORK_BASE_URL"); url != "" {
		cfg.Teamwork.BaseURL = url
	}
	if key := os.Getenv("TT_TEAMWORK_API_KEY"); key != "" {
		cfg.Teamwork.APIKey = key
	}
	if bucket := os.Getenv("TT_BACKUP_BUCKET"); bucket != "" {
		cfg.Backup.Bucket = bucket
	}
	if region := os.Getenv("TT_BACKUP_REGION"); region != "" {
		cfg.Backup.Region = region
	}
	if endpoint := os.Getenv("TT_BACKUP_ENDPOINT"); endpoint != "" {
		cfg.Backup.Endpoint = endpoint
	}
	if prefix := os.Getenv("TT_BACKUP_PREFIX"); prefix != "" {
		cfg.Backup.Prefix = prefix
	}
	if key := os.Getenv("TT_BACKUP_ACCESS_KEY_ID"); key != "" {
		cfg.Backup.AccessKeyID = key
	}
	if secret := os.Getenv("TT_BACKUP_SECRET_ACCESS_KEY"); secret != "" {
		cfg.Backup.SecretAccessKey = secret
	}

	switch cfg.Transport.Mode {
	case "stdio", "http":
	default:
		return Config{}, fmt.Errorf("invalid transport mode %q", cfg.Transport.Mode)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
