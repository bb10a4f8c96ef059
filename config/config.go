// Package config loads service settings. Values come from an optional TOML
// file; environment variables, including those loaded from a .env file,
// override the file, and defaults fill whatever remains.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP listener settings.
type Server struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	UploadDir      string   `toml:"upload_dir"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
}

// Database selects and addresses the document store.
type Database struct {
	URL            string `toml:"url"`
	Name           string `toml:"name"`
	ConnectTimeout string `toml:"connect_timeout"`
}

// Auth contains token settings.
type Auth struct {
	JWTSecret string `toml:"jwt_secret"`
	JWTExpire string `toml:"jwt_expire"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the complete service configuration.
type Config struct {
	Server       Server   `toml:"server"`
	Database     Database `toml:"database"`
	Auth         Auth     `toml:"auth"`
	Logging      Logging  `toml:"logging"`
	FixturesFile string   `toml:"fixtures_file"`
}

const (
	DefaultPort           = "5000"
	DefaultUploadDir      = "public/uploads"
	DefaultMaxBodyBytes   = 50 << 20
	DefaultDatabaseName   = "food-delivery-app"
	DefaultConnectTimeout = "5s"
	DefaultJWTSecret      = "your_jwt_secret_key"
	DefaultJWTExpire      = "30d"
	DefaultLogLevel       = "info"
)

// DefaultAllowedOrigins is the CORS allow-list used when none is configured.
var DefaultAllowedOrigins = []string{
	"https://food-delivery-app-online.vercel.app",
	"https://food-delivery-app-online-git-main-analyst-rjds-projects.vercel.app",
	"http://localhost:5173",
	"http://localhost:3000",
}

// Load reads .env, then the TOML file at path (skipped when path is empty),
// then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("FOODHUB_CONFIG")
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	setString(&c.Server.UploadDir, "UPLOAD_DIR")
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Server.MaxBodyBytes = n
		} else {
			c.Server.MaxBodyBytes = -1
		}
	}

	setString(&c.Database.URL, "MONGO_URI")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Name, "DATABASE_NAME")
	setString(&c.Database.ConnectTimeout, "DB_CONNECT_TIMEOUT")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.JWTExpire, "JWT_EXPIRE")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	setString(&c.FixturesFile, "FIXTURES_FILE")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = DefaultUploadDir
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Database.Name == "" {
		c.Database.Name = DefaultDatabaseName
	}
	if c.Database.ConnectTimeout == "" {
		c.Database.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = DefaultJWTSecret
	}
	if c.Auth.JWTExpire == "" {
		c.Auth.JWTExpire = DefaultJWTExpire
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.ParseUint(c.Server.Port, 10, 16); err != nil {
		errs = append(errs, fmt.Errorf("port %q is not a valid TCP port", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max_body_bytes must be positive"))
	}
	if _, err := c.ConnectTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TokenTTL(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be json or console", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ConnectTimeout parses Database.ConnectTimeout.
func (c *Config) ConnectTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Database.ConnectTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("connect timeout %q must be a positive duration", c.Database.ConnectTimeout)
	}
	return d, nil
}

// TokenTTL parses Auth.JWTExpire.
func (c *Config) TokenTTL() (time.Duration, error) {
	return ParseExpiry(c.Auth.JWTExpire)
}

// ParseExpiry accepts Go durations plus a whole-day form such as "30d".
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("token expiry %q must be a positive number of days", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("token expiry %q must be a positive duration", s)
	}
	return d, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
