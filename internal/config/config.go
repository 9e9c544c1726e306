package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/2beens/pushpullrun/pkg"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"

	BlobBackendMemory = "memory"
	BlobBackendDisk   = "disk"
	BlobBackendS3     = "s3"
)

type Config struct {
	Environment string
	Host        string
	Port        int
	// allowed browser origins
	CorsOrigins []string `toml:"cors_origins"`
	// CIDRs or addresses of the reverse proxies whose client ip headers are believed
	TrustedProxies []string `toml:"trusted_proxies"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogMaxBackups int    `toml:"log_max_backups"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// prometheus
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// documents
	StoreBackend   string `toml:"store_backend"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	MongoDBName    string `toml:"mongo_db_name"`

	// images
	BlobBackend     string `toml:"blob_backend"`
	BlobDiskRoot    string `toml:"blob_disk_root"`
	BlobBaseURL     string `toml:"blob_base_url"`
	S3Endpoint      string `toml:"s3_endpoint"`
	S3Region        string `toml:"s3_region"`
	S3Bucket        string `toml:"s3_bucket"`
	S3PublicBaseURL string `toml:"s3_public_base_url"`
	JPEGQuality     int    `toml:"jpeg_quality"`

	// exercise library cache, size 0 disables it
	ExerciseCacheSizeMB int      `toml:"exercise_cache_size_mb"`
	ExerciseCacheTTL    Duration `toml:"exercise_cache_ttl"`

	// auth
	SessionTTL                  Duration `toml:"session_ttl"`
	SessionCleanupSchedule      string   `toml:"session_cleanup_schedule"`
	LoginRateLimitAllowedPerMin int      `toml:"login_rate_limit_allowed_per_min"`
	SMTPHost                    string   `toml:"smtp_host"`
	SMTPPort                    int      `toml:"smtp_port"`
	SMTPFrom                    string   `toml:"smtp_from"`
	PasswordResetURL            string   `toml:"password_reset_url"`
}

// Duration reads "90s", "15m", "168h" style values.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the section of the toml file at path for the given env,
// and fills in the defaults for the keys left out.
func Load(env, path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(env, string(content))
}

func Parse(env, content string) (*Config, error) {
	var t Toml
	md, err := toml.Decode(content, &t)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undecoded)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg.Environment == "" {
		cfg.Environment = strings.ToLower(env)
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreBackendRedis
	}
	if c.BlobBackend == "" {
		c.BlobBackend = BlobBackendDisk
	}
	if c.SessionTTL.Duration == 0 {
		c.SessionTTL.Duration = 7 * 24 * time.Hour
	}
	if c.SessionCleanupSchedule == "" {
		c.SessionCleanupSchedule = "@every 8h"
	}
	if c.LoginRateLimitAllowedPerMin == 0 {
		c.LoginRateLimitAllowedPerMin = 10
	}
	if c.ExerciseCacheTTL.Duration == 0 {
		c.ExerciseCacheTTL.Duration = 10 * time.Minute
	}
}

func (c *Config) Validate() error {
	var err error
	switch c.StoreBackend {
	case StoreBackendMemory, StoreBackendRedis:
	case StoreBackendPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			err = multierr.Append(err, errors.New("postgres store needs postgres_host and postgres_db_name"))
		}
	case StoreBackendMongo:
		if c.MongoDBName == "" {
			err = multierr.Append(err, errors.New("mongo store needs mongo_db_name"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown store_backend: %s", c.StoreBackend))
	}

	switch c.BlobBackend {
	case BlobBackendMemory:
	case BlobBackendDisk:
		if c.BlobDiskRoot == "" {
			err = multierr.Append(err, errors.New("disk blob backend needs blob_disk_root"))
		}
	case BlobBackendS3:
		if c.S3Bucket == "" || c.S3Region == "" {
			err = multierr.Append(err, errors.New("s3 blob backend needs s3_bucket and s3_region"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown blob_backend: %s", c.BlobBackend))
	}

	if _, parseErr := pkg.ParseTrustedProxies(c.TrustedProxies); parseErr != nil {
		err = multierr.Append(err, parseErr)
	}

	return err
}
