package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/config"
	"github.com/UkralStul/yatube/internal/logging"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
	"github.com/UkralStul/yatube/internal/storage/sqlstore"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// app - общие для команд зависимости.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store storage.Storage

	closers []func() error
}

func newApp() (*app, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(afero.NewOsFs(), configFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	if err := a.openStore(); err != nil {
		return nil, err
	}
	return a, nil
}

var (
	// errMemoryStorage - хранилище в памяти живет только внутри процесса команды.
	errMemoryStorage = errors.New("storage.driver is memory: admin commands need a shared postgres or sqlite store")
	// errMemoryCache - кэш в памяти принадлежит процессу сервера.
	errMemoryCache = errors.New("cache.driver is memory: the page cache lives inside the server process, use redis to clear it from the CLI")
)

// newAdminApp - как newApp, но отказывается работать с хранилищем в памяти:
// изменения пропали бы вместе с процессом команды.
func newAdminApp() (*app, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	if a.cfg.Storage.Driver == "memory" {
		a.Close()
		return nil, errMemoryStorage
	}
	return a, nil
}

func (a *app) openStore() error {
	a.log.WithField("driver", a.cfg.Storage.Driver).Info("opening storage")
	switch a.cfg.Storage.Driver {
	case "postgres":
		s, err := sqlstore.NewPostgres(a.cfg.Storage.DSN, a.log)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	case "sqlite":
		s, err := sqlstore.NewSQLite(a.cfg.Storage.DSN, a.log)
		if err != nil {
			return fmt.Errorf("failed to open sqlite: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	default:
		a.store = inmemory.New()
	}
	return nil
}

// openCache создает кэш страниц по настройкам.
func (a *app) openCache(ctx context.Context) (cache.Cache, error) {
	if a.cfg.Cache.Driver != "redis" {
		m, err := cache.NewMemory(a.cfg.Cache.Size)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	rc := redis.NewClient(&redis.Options{Addr: a.cfg.Cache.RedisAddr})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, rc.Close)
	return cache.NewRedis(rc, a.cfg.Cache.RedisPrefix), nil
}

// openMedia открывает каталог картинок на диске.
func (a *app) openMedia() (*media.Store, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(a.cfg.Media.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	fs := afero.NewBasePathFs(osFs, a.cfg.Media.Root)
	return media.New(fs, a.cfg.Media.URL, a.cfg.Media.MaxBytes), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("failed to close resource")
		}
	}
}
