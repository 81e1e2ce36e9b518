package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Storage      StorageConfig      `json:"storage"`
	Registry     RegistryConfig     `json:"registry"`
	Certificates CertificatesConfig `json:"certificates"`
	Logging      LoggingConfig      `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration. Driver is "postgres"
// or "sqlite"; SQLitePath is used for the latter.
type DatabaseConfig struct {
	Driver         string        `json:"driver"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	SQLitePath     string        `json:"sqlite_path"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// StorageConfig selects the object store. Driver is "s3" or "memory".
type StorageConfig struct {
	Driver           string        `json:"driver"`
	Bucket           string        `json:"bucket"`
	Region           string        `json:"region"`
	Endpoint         string        `json:"endpoint"`
	AccessKeyID      string        `json:"access_key_id"`
	SecretAccessKey  string        `json:"secret_access_key"`
	UsePathStyle     bool          `json:"use_path_style"`
	PublicBaseURL    string        `json:"public_base_url"`
	PresignExpiry    time.Duration `json:"presign_expiry"`
	TemplateName     string        `json:"template_name"`
	TemplateCacheTTL time.Duration `json:"template_cache_ttl"`
}

// RegistryConfig selects where certificate records live. Driver is "sql"
// (the configured database) or "dynamodb".
type RegistryConfig struct {
	Driver      string `json:"driver"`
	DynamoTable string `json:"dynamo_table"`
}

// CertificatesConfig
type CertificatesConfig struct {
	LayoutPath string `json:"layout_path"`
	Timezone   string `json:"timezone"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables. A
// .env file in the working directory is applied to the environment first.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	// Default config
	config := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "exam_portal",
			SSLMode:        "disable",
			SQLitePath:     "certificates.db",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		Storage: StorageConfig{
			Driver:        "s3",
			Bucket:        "certificates",
			Region:        "eu-central-1",
			PresignExpiry: 7 * 24 * time.Hour,
			TemplateName:  "certificate-template",
		},
		Registry: RegistryConfig{
			Driver:      "sql",
			DynamoTable: "certificates",
		},
		Certificates: CertificatesConfig{
			Timezone: "Europe/Warsaw",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}
	setBool := func(key string, dst *bool) error {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = b
		}
		return nil
	}

	setString("SERVER_HOST", &config.Server.Host)
	if err := setInt("SERVER_PORT", &config.Server.Port); err != nil {
		return err
	}

	setString("DATABASE_DRIVER", &config.Database.Driver)
	setString("DATABASE_HOST", &config.Database.Host)
	if err := setInt("DATABASE_PORT", &config.Database.Port); err != nil {
		return err
	}
	setString("DATABASE_USER", &config.Database.User)
	setString("DATABASE_PASSWORD", &config.Database.Password)
	setString("DATABASE_DBNAME", &config.Database.DBName)
	setString("DATABASE_SSLMODE", &config.Database.SSLMode)
	setString("DATABASE_SQLITE_PATH", &config.Database.SQLitePath)

	setString("STORAGE_DRIVER", &config.Storage.Driver)
	setString("STORAGE_BUCKET", &config.Storage.Bucket)
	setString("AWS_REGION", &config.Storage.Region)
	setString("STORAGE_ENDPOINT", &config.Storage.Endpoint)
	setString("AWS_ACCESS_KEY_ID", &config.Storage.AccessKeyID)
	setString("AWS_SECRET_ACCESS_KEY", &config.Storage.SecretAccessKey)
	if err := setBool("STORAGE_USE_PATH_STYLE", &config.Storage.UsePathStyle); err != nil {
		return err
	}
	setString("STORAGE_PUBLIC_BASE_URL", &config.Storage.PublicBaseURL)
	if err := setDuration("STORAGE_PRESIGN_EXPIRY", &config.Storage.PresignExpiry); err != nil {
		return err
	}
	setString("CERTIFICATE_TEMPLATE_NAME", &config.Storage.TemplateName)
	if err := setDuration("CERTIFICATE_TEMPLATE_CACHE_TTL", &config.Storage.TemplateCacheTTL); err != nil {
		return err
	}

	setString("REGISTRY_DRIVER", &config.Registry.Driver)
	setString("REGISTRY_DYNAMO_TABLE", &config.Registry.DynamoTable)

	setString("CERTIFICATE_LAYOUT_PATH", &config.Certificates.LayoutPath)
	setString("CERTIFICATE_TIMEZONE", &config.Certificates.Timezone)

	setString("LOG_LEVEL", &config.Logging.Level)
	return nil
}

// Validate checks the driver selections
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "s3", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Registry.Driver {
	case "sql", "dynamodb":
	default:
		return fmt.Errorf("unsupported registry driver %q", c.Registry.Driver)
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("storage bucket is required")
	}
	return nil
}

// Location returns the time zone certificates are dated in
func (c *CertificatesConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid certificates timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
