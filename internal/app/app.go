package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_mirror/internal/config"
	"github.com/bassista/go_mirror/internal/datarepo"
	"github.com/bassista/go_mirror/internal/fscache"
	"github.com/bassista/go_mirror/internal/logger"
	"github.com/bassista/go_mirror/internal/source"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config  *config.Config
	Cache   *fscache.Cache
	Repo    *datarepo.Repository
	Sources []source.Source

	BaseCtx context.Context
	Cancel  context.CancelFunc
}

func New(cfg *config.Config, cache *fscache.Cache, repo *datarepo.Repository, sources []source.Source) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cache == nil {
		return nil, errors.New("cache is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:  cfg,
		Cache:   cache,
		Repo:    repo,
		Sources: sources,
		BaseCtx: ctx,
		Cancel:  cancel,
	}, nil
}

// StartBackground registers every configured source with the repository and
// starts the refresh loops. When enabled it also starts the cache directory
// watcher bound to the application context.
func (a *App) StartBackground() error {
	log := logger.WithComponent("app")

	if a.Config.Cache.WatcherEnabled {
		if err := a.Cache.StartWatcher(a.BaseCtx); err != nil {
			return fmt.Errorf("cannot start cache watcher: %w", err)
		}
	}

	for _, src := range a.Sources {
		if err := a.Repo.Register(src.Name(), src.Fetch, src.Interval(), src.Jitter()); err != nil {
			return fmt.Errorf("cannot register source %s: %w", src.Name(), err)
		}
		log.Debugf("registered source %s (interval %v, jitter %v)", src.Name(), src.Interval(), src.Jitter())
	}

	a.Repo.Start()
	log.Infof("started %d source refresh loops", len(a.Sources))
	return nil
}

// Shutdown cancels the base context and stops the repository, waiting up to
// its configured grace period for in-flight refreshes.
func (a *App) Shutdown() {
	if a == nil {
		return
	}
	if a.Cancel != nil {
		a.Cancel()
	}
	if a.Repo != nil {
		a.Repo.Stop()
	}
}
