package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderSupabase = "supabase"
	ProviderLocal    = "local"

	StorageDisk  = "disk"
	StorageMinIO = "minio"

	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	GinMode   string `envconfig:"GIN_MODE" default:"debug"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DBDriver      string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`

	IdentityProvider       string        `envconfig:"IDENTITY_PROVIDER" default:"supabase"`
	SupabaseURL            string        `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey        string        `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseServiceRoleKey string        `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	IdentityTimeout        time.Duration `envconfig:"IDENTITY_TIMEOUT" default:"10s"`

	JWTSecret       string        `envconfig:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"1h"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"720h"`
	BcryptCost      int           `envconfig:"BCRYPT_COST" default:"10"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"disk"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	MinIOEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinIOAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinIOBucket    string `envconfig:"MINIO_BUCKET" default:"file-hosting"`
	MinIOUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	SessionSecret string `envconfig:"SESSION_SECRET" default:"default-secret-key-change-me"`
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum values and the keys each selected backend needs.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	switch c.DBDriver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of postgres, mysql, sqlite (got %q)", c.DBDriver))
	}

	switch c.IdentityProvider {
	case ProviderSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase identity provider"))
		}
	case ProviderLocal:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for the local identity provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_PROVIDER must be supabase or local (got %q)", c.IdentityProvider))
	}

	switch c.StorageBackend {
	case StorageDisk:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for the disk storage backend"))
		}
	case StorageMinIO:
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be disk or minio (got %q)", c.StorageBackend))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

// Warnings lists configuration gaps that degrade a single operation
// instead of preventing startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.IdentityProvider == ProviderSupabase && c.SupabaseServiceRoleKey == "" {
		warnings = append(warnings, "Supabase service role key not configured; admin user deletion from the identity provider will not work")
	}
	if c.SessionSecret == "default-secret-key-change-me" && c.GinMode == "release" {
		warnings = append(warnings, "SESSION_SECRET is using the default value")
	}
	return warnings
}

// RedisAddr returns host:port, or "" when sessions stay in cookies.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}
