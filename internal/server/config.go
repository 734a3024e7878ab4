package server

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every server variable (MEMORIAL_ADDR, ...).
const EnvPrefix = "memorial"

// Config is the server configuration, read from the environment.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	// AssetDir is a directory or an http(s) base URL holding shapes,
	// textures, motifs and masks.
	AssetDir string `envconfig:"ASSET_DIR" default:"./assets"`
	// AssetURL is the public prefix scenes use to link assets.
	AssetURL string `envconfig:"ASSET_URL" default:"/assets"`

	DesignDir string `envconfig:"DESIGN_DIR" default:"./designs"`
	MongoURI  string `envconfig:"MONGO_URI"`
	MongoDB   string `envconfig:"MONGO_DB" default:"memorial"`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	CacheDir  string `envconfig:"CACHE_DIR"`

	Catalog         string  `envconfig:"CATALOG"`
	DesktopMaxWidth float64 `envconfig:"DESKTOP_MAX_WIDTH"`

	MaxUploadMB     int           `envconfig:"MAX_UPLOAD_MB" default:"10"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoadConfig reads the configuration from MEMORIAL_* variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// remoteAssets reports whether AssetDir is a URL.
func (c *Config) remoteAssets() bool {
	return strings.HasPrefix(c.AssetDir, "http://") || strings.HasPrefix(c.AssetDir, "https://")
}

func (c *Config) maxUpload() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.MaxUploadMB) << 20
}
