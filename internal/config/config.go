// Package config загружает настройки из файла, окружения (YATUBE_*) и .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const EnvPrefix = "YATUBE"

type Server struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type Storage struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory postgres sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required_unless=Driver memory"`
}

type Posts struct {
	PageSize int `mapstructure:"page_size" validate:"gt=0"`
}

type Cache struct {
	Driver      string        `mapstructure:"driver" validate:"oneof=memory redis"`
	HomeTTL     time.Duration `mapstructure:"home_ttl" validate:"gte=0"`
	Size        int           `mapstructure:"size" validate:"gt=0"`
	RedisAddr   string        `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
}

type Media struct {
	Root     string `mapstructure:"root" validate:"required"`
	URL      string `mapstructure:"url" validate:"required,startswith=/"`
	MaxBytes int64  `mapstructure:"max_bytes" validate:"gte=0"`
}

type Auth struct {
	Secret   string        `mapstructure:"secret"`
	LoginURL string        `mapstructure:"login_url" validate:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gte=0"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Config - все настройки приложения.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Posts   Posts   `mapstructure:"posts"`
	Cache   Cache   `mapstructure:"cache"`
	Media   Media   `mapstructure:"media"`
	Auth    Auth    `mapstructure:"auth"`
	Log     Log     `mapstructure:"log"`
}

var defaults = map[string]any{
	"server.addr":        ":8080",
	"storage.driver":     "memory",
	"storage.dsn":        "",
	"posts.page_size":    10,
	"cache.driver":       "memory",
	"cache.home_ttl":     20 * time.Second,
	"cache.size":         128,
	"cache.redis_addr":   "",
	"cache.redis_prefix": "yatube:",
	"media.root":         "media",
	"media.url":          "/media/",
	"media.max_bytes":    5 << 20,
	"auth.secret":        "",
	"auth.login_url":     "/auth/login/",
	"auth.token_ttl":     24 * time.Hour,
	"log.level":          "info",
	"log.format":         "text",
}

// Load читает настройки. Если file пустой, ищется необязательный config.yaml
// в текущем каталоге. Переменные окружения перекрывают файл.
func Load(fs afero.Fs, file string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv подгружает переменные из .env файлов. Отсутствие файла не ошибка.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
