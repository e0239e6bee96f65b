package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type SecurityConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	CookieName string
}

type InferenceConfig struct {
	BaseURL             string
	Timeout             time.Duration
	ConfidenceThreshold float64
}

type StorageConfig struct {
	Enabled       bool
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketUploads string
	UseSSL        bool
	Region        string
}

type MaintenanceConfig struct {
	Retention     time.Duration
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Inference        InferenceConfig
	Storage          StorageConfig
	Maintenance      MaintenanceConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) Production() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CELLSCOPE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("security.jwtsecret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 9001)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "uploads:maintenance")
	v.SetDefault("redis.group", "upload-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("security.tokenttl", "168h") // 7 days
	v.SetDefault("security.cookiename", "token")

	v.SetDefault("inference.baseurl", "http://localhost:8000")
	v.SetDefault("inference.timeout", "60s")
	v.SetDefault("inference.confidencethreshold", 0.25)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucketuploads", "cellscope-uploads")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("maintenance.retention", "720h") // 30 days
	v.SetDefault("maintenance.claiminterval", "10s")
}
