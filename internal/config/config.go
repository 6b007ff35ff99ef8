package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/hetaoshu/hetaoshu-web/internal/carousel"
	"github.com/hetaoshu/hetaoshu-web/internal/replytree"
)

const (
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Port           string        `yaml:"port" env:"PORT"`
	APIBaseURL     string        `yaml:"api_base_url" env:"API_BASE_URL" validate:"required,url"`
	AuthScheme     string        `yaml:"auth_scheme" env:"AUTH_SCHEME"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	Development    bool          `yaml:"development" env:"DEVELOPMENT"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogJSON        bool          `yaml:"log_json" env:"LOG_JSON"`

	SecureCookies    bool          `yaml:"secure_cookies" env:"SECURE_COOKIES"`
	SessionBackend   string        `yaml:"session_backend" env:"SESSION_BACKEND" validate:"omitempty,oneof=memory postgres redis"`
	SessionMaxAge    time.Duration `yaml:"session_max_age" env:"SESSION_MAX_AGE"`
	EncryptPasswords bool          `yaml:"encrypt_passwords" env:"ENCRYPT_PASSWORDS"`

	MaxImages    int   `yaml:"max_images" env:"MAX_IMAGES" validate:"gte=0"`
	MaxImageSize int64 `yaml:"max_image_size" env:"MAX_IMAGE_SIZE" validate:"gte=0"` // bytes, per file

	CommentMaxDepth       int     `yaml:"comment_max_depth" env:"COMMENT_MAX_DEPTH" validate:"gte=0"`
	CarouselMaxAspect     float64 `yaml:"carousel_max_aspect" env:"CAROUSEL_MAX_ASPECT" validate:"gte=0"`
	CarouselDefaultAspect float64 `yaml:"carousel_default_aspect" env:"CAROUSEL_DEFAULT_ASPECT" validate:"gte=0"`
	ProbeTimeout          time.Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`

	FeedColumns         int `yaml:"feed_columns" env:"FEED_COLUMNS" validate:"gte=0"`
	FeedScrollThreshold int `yaml:"feed_scroll_threshold" env:"FEED_SCROLL_THRESHOLD"` // px from the bottom
	SummaryLength       int `yaml:"summary_length" env:"SUMMARY_LENGTH"`

	AuthRateLimit float64 `yaml:"auth_rate_limit" env:"AUTH_RATE_LIMIT"` // requests per second per IP
	AuthRateBurst float64 `yaml:"auth_rate_burst" env:"AUTH_RATE_BURST"`

	// Forwarding headers are trusted only from these addresses or CIDRs.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:"," validate:"dive,cidr|ip"`
}

type Private struct {
	SessionSecret string `yaml:"session_secret" env:"SESSION_SECRET" validate:"required,min=16"`
	Pg            Pg     `yaml:"pg" envPrefix:"PG_"`
	Redis         Redis  `yaml:"redis" envPrefix:"REDIS_"`
}

type Pg struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Dbname   string `yaml:"dbname" env:"DBNAME"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

func (c *Config) applyDefaults() {
	p := &c.Public
	if p.Port == "" {
		p.Port = "8081"
	}
	if p.AuthScheme == "" {
		p.AuthScheme = "Token"
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = 10 * time.Second
	}
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
	if p.SessionBackend == "" {
		p.SessionBackend = SessionBackendMemory
	}
	if p.SessionMaxAge == 0 {
		p.SessionMaxAge = 365 * 24 * time.Hour
	}
	if p.MaxImages == 0 {
		p.MaxImages = 10
	}
	if p.MaxImageSize == 0 {
		p.MaxImageSize = 30 << 20
	}
	if p.CommentMaxDepth == 0 {
		p.CommentMaxDepth = replytree.DefaultMaxDepth
	}
	if p.CarouselMaxAspect == 0 {
		p.CarouselMaxAspect = carousel.DefaultMaxAspect
	}
	if p.CarouselDefaultAspect == 0 {
		p.CarouselDefaultAspect = carousel.DefaultFallbackAspect
	}
	if p.ProbeTimeout == 0 {
		p.ProbeTimeout = 3 * time.Second
	}
	if p.FeedColumns == 0 {
		p.FeedColumns = 2
	}
	if p.FeedScrollThreshold == 0 {
		p.FeedScrollThreshold = 300
	}
	if p.SummaryLength == 0 {
		p.SummaryLength = 100
	}
	if p.AuthRateLimit == 0 {
		p.AuthRateLimit = 0.2
	}
	if p.AuthRateBurst == 0 {
		p.AuthRateBurst = 5
	}
}

func (c *Config) validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return err
	}
	switch c.Public.SessionBackend {
	case SessionBackendPostgres:
		if c.Private.Pg.Host == "" || c.Private.Pg.Dbname == "" {
			return errors.New("postgres session backend requires pg.host and pg.dbname")
		}
	case SessionBackendRedis:
		if c.Private.Redis.Addr == "" {
			return errors.New("redis session backend requires redis.addr")
		}
	}
	return nil
}

func loadPath(configPath string, output any, optional bool) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if optional {
			return nil
		}
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml (required) and private.yaml (optional, secrets may
// come from the environment) from configFolder, then applies environment
// overrides, defaults and validation.
func Load(configFolder string) (*Config, error) {
	var cfg Config
	if err := loadPath(path.Join(configFolder, "public.yaml"), &cfg.Public, false); err != nil {
		return nil, err
	}
	if err := loadPath(path.Join(configFolder, "private.yaml"), &cfg.Private, true); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
