// Package config loads server and CLI configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerCfg configures the HTTP and gRPC listeners.
type ServerCfg struct {
	Addr            string        `mapstructure:"addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	PublicURL       string        `mapstructure:"public_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// StoreCfg selects and configures the record store.
type StoreCfg struct {
	Driver  string `mapstructure:"driver"` // postgres | sqlite
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

// S3Cfg configures the S3 blob store.
type S3Cfg struct {
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	Endpoint   string        `mapstructure:"endpoint"`
	PublicRead bool          `mapstructure:"public_read"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

// BlobCfg selects and configures the blob store.
type BlobCfg struct {
	Driver     string        `mapstructure:"driver"` // fs | s3
	Dir        string        `mapstructure:"dir"`
	SignSecret string        `mapstructure:"sign_secret"`
	SignTTL    time.Duration `mapstructure:"sign_ttl"`
	S3         S3Cfg         `mapstructure:"s3"`
}

// FeedCfg configures realtime feed supervision.
type FeedCfg struct {
	BaseDelay time.Duration `mapstructure:"base_delay"`
	MaxDelay  time.Duration `mapstructure:"max_delay"`
}

// LimitCfg configures upload rate limiting.
type LimitCfg struct {
	Driver    string        `mapstructure:"driver"` // memory | postgres
	PerMinute int           `mapstructure:"per_minute"`
	Burst     int           `mapstructure:"burst"`
	Window    time.Duration `mapstructure:"window"`
}

// LogCfg configures logging.
type LogCfg struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Config is the complete configuration.
type Config struct {
	Server  ServerCfg `mapstructure:"server"`
	Store   StoreCfg  `mapstructure:"store"`
	Blob    BlobCfg   `mapstructure:"blob"`
	Feed    FeedCfg   `mapstructure:"feed"`
	Limit   LimitCfg  `mapstructure:"limit"`
	Log     LogCfg    `mapstructure:"log"`
	MaxTags int       `mapstructure:"max_tags"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(64<<20))

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "gallery.db")
	v.SetDefault("store.migrate", true)

	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.dir", "blobs")
	v.SetDefault("blob.sign_secret", "")
	v.SetDefault("blob.sign_ttl", 0)
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.public_read", true)
	v.SetDefault("blob.s3.presign_ttl", 24*time.Hour)

	v.SetDefault("feed.base_delay", 500*time.Millisecond)
	v.SetDefault("feed.max_delay", 30*time.Second)

	v.SetDefault("limit.driver", "memory")
	v.SetDefault("limit.per_minute", 10)
	v.SetDefault("limit.burst", 3)
	v.SetDefault("limit.window", time.Minute)

	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("max_tags", 32)
}

// Load reads defaults, then the optional file at path, then GALLERY_* environment
// variables (GALLERY_STORE_DSN overrides store.dsn).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver names and required fields.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown %q", c.Store.Driver))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn: required"))
	}
	switch c.Blob.Driver {
	case "fs":
		if c.Blob.Dir == "" {
			errs = append(errs, errors.New("blob.dir: required"))
		}
	case "s3":
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket: required"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver: unknown %q", c.Blob.Driver))
	}
	switch c.Limit.Driver {
	case "memory":
	case "postgres":
		if c.Store.Driver != "postgres" {
			errs = append(errs, errors.New("limit.driver: postgres requires store.driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("limit.driver: unknown %q", c.Limit.Driver))
	}
	return errors.Join(errs...)
}
