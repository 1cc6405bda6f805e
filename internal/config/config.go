package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// ErrAdminUnprotected is returned when the admin pages would be served without credentials
var ErrAdminUnprotected = errors.New("admin credentials not set: set APP_ADMIN_USER and APP_ADMIN_PASSWORD, or APP_ADMIN_INSECURE=true")

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `env:",prefix=SERVER_"`

	// Database configuration
	Database DatabaseConfig `env:",prefix=DB_"`

	// Application configuration
	App AppConfig `env:",prefix=APP_"`

	// System requirement thresholds
	Requirements RequirementsConfig `env:",prefix=REQ_"`
}

// ServerConfig holds admin server configuration
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
}

// DatabaseConfig holds connection settings for the WordPress database
type DatabaseConfig struct {
	Driver      string `env:"DRIVER,default=mysql"`
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=3306"`
	User        string `env:"USER,default=wordpress"`
	Password    string `env:"PASSWORD,default=wordpress"`
	Name        string `env:"NAME,default=wordpress"`
	SSLMode     string `env:"SSL_MODE,default=disable"`
	Path        string `env:"PATH,default=quizgift.db"` // sqlite only
	TablePrefix string `env:"TABLE_PREFIX,default=wp_"`
	MaxConns    int    `env:"MAX_CONNS,default=10"`
	MinConns    int    `env:"MIN_CONNS,default=2"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment       string        `env:"ENVIRONMENT,default=development"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	Debug             bool          `env:"DEBUG,default=false"`
	AdminUser         string        `env:"ADMIN_USER"`
	AdminPassword     string        `env:"ADMIN_PASSWORD"`
	AdminInsecure     bool          `env:"ADMIN_INSECURE,default=false"`
	ExportDir         string        `env:"EXPORT_DIR,default=./exports"`
	DefaultCampaignID int64         `env:"DEFAULT_CAMPAIGN_ID,default=1"`
	AbandonAfter      time.Duration `env:"ABANDON_AFTER,default=24h"`
	SchedulerEnabled  bool          `env:"SCHEDULER_ENABLED,default=true"`
}

// RequirementsConfig holds minimum versions checked before activation
type RequirementsConfig struct {
	MinGoVersion       string   `env:"MIN_GO_VERSION,default=1.22"`
	MinMySQLVersion    string   `env:"MIN_MYSQL_VERSION,default=5.7"`
	MinPostgresVersion string   `env:"MIN_POSTGRES_VERSION,default=12.0"`
	MinSQLiteVersion   string   `env:"MIN_SQLITE_VERSION,default=3.25"`
	RequiredDrivers    []string `env:"REQUIRED_DRIVERS"`
}

// Load loads configuration from a .env file (when present) and environment variables
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return Process(ctx, envconfig.OsLookuper())
}

// Process builds the configuration from the given lookuper and validates it
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be expressed as envconfig defaults
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if !tablePrefixPattern.MatchString(c.Database.TablePrefix) {
		return fmt.Errorf("invalid table prefix %q", c.Database.TablePrefix)
	}
	if c.App.DefaultCampaignID <= 0 {
		return fmt.Errorf("default campaign id must be positive, got %d", c.App.DefaultCampaignID)
	}
	return nil
}

// GetDSN returns the driver-specific data source name
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	case DriverSQLite:
		return c.Path
	default:
		params := url.Values{}
		params.Set("parseTime", "true")
		params.Set("charset", "utf8mb4")
		params.Set("loc", "Local")
		// Report matched rather than changed rows, so unchanged UPDATEs are not "not found".
		params.Set("clientFoundRows", "true")
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s",
			c.User, c.Password, c.Host, c.Port, c.Name, params.Encode())
	}
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// AdminAuthEnabled reports whether the admin pages require basic auth
func (c *AppConfig) AdminAuthEnabled() bool {
	return c.AdminUser != "" && c.AdminPassword != ""
}

// CheckAdminAccess refuses to expose the admin pages without basic auth
// unless AdminInsecure opts in explicitly.
func (c *AppConfig) CheckAdminAccess() error {
	if c.AdminAuthEnabled() || c.AdminInsecure {
		return nil
	}
	return ErrAdminUnprotected
}
