package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Services ServicesConfig `yaml:"services"`
	WS       WSConfig       `yaml:"ws"`
}

type ServerConfig struct {
	Port           int    `yaml:"port"`
	BasePath       string `yaml:"base_path"`
	Env            string `yaml:"env"`
	LogLevel       string `yaml:"log_level"`
	AllowedOrigins string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	ServiceURL string `yaml:"service_url"`
	SecretKey  string `yaml:"secret_key"`
}

type ServicesConfig struct {
	NotiServiceURL string `yaml:"noti_service_url"`
}

// WSConfig tunes the realtime layer. TypingTTL bounds how long a typing
// indicator can outlive a vanished client; RingTimeout bounds how long a
// call may ring before it is marked missed server-side.
type WSConfig struct {
	TypingTTLSeconds   int `yaml:"typing_ttl_seconds"`
	RingTimeoutSeconds int `yaml:"ring_timeout_seconds"`
}

func (w WSConfig) TypingTTL() time.Duration {
	return time.Duration(w.TypingTTLSeconds) * time.Second
}

func (w WSConfig) RingTimeout() time.Duration {
	return time.Duration(w.RingTimeoutSeconds) * time.Second
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           8002,
			BasePath:       "/api/realtime",
			Env:            "dev",
			LogLevel:       "debug",
			AllowedOrigins: "*",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		WS: WSConfig{
			TypingTTLSeconds:   10,
			RingTimeoutSeconds: 45,
		},
	}

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if basePath := os.Getenv("SERVER_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Server.Env = env
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = origins
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if d, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.DB = d
		}
	}
	if authURL := os.Getenv("AUTH_SERVICE_URL"); authURL != "" {
		cfg.Auth.ServiceURL = authURL
	}
	if secretKey := os.Getenv("SECRET_KEY"); secretKey != "" {
		cfg.Auth.SecretKey = secretKey
	}
	if notiURL := os.Getenv("NOTI_SERVICE_URL"); notiURL != "" {
		cfg.Services.NotiServiceURL = notiURL
	}
	if ttl := os.Getenv("TYPING_TTL_SECONDS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			cfg.WS.TypingTTLSeconds = t
		}
	}
	if timeout := os.Getenv("RING_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			cfg.WS.RingTimeoutSeconds = t
		}
	}

	return cfg, nil
}
