package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/bassista/go_mirror/internal/api/middleware"
	route "github.com/bassista/go_mirror/internal/api/route"
	appctx "github.com/bassista/go_mirror/internal/app"
	"github.com/bassista/go_mirror/internal/config"
	"github.com/bassista/go_mirror/internal/datarepo"
	"github.com/bassista/go_mirror/internal/fscache"
	"github.com/bassista/go_mirror/internal/logger"
	"github.com/bassista/go_mirror/internal/source"
	"github.com/bassista/go_mirror/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/enrichman/httpgrace"
)

func main() {
	// A .env file is optional; deployed environments set variables directly.
	if err := godotenv.Load(); err != nil {
		logger.WithComponent("main").Debugf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	logger.SetLevel(cfg.Misc.LogLevel)
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)
	logger.WithComponent("main").Infof("Configured sources: %d", len(cfg.Sources))

	registry := prometheus.NewRegistry()
	collector, err := telemetry.NewPrometheusCollector(registry)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init telemetry: %v", err)
	}

	cacheStore, err := fscache.New(cfg.Cache.Dir,
		fscache.WithIndexTTL(cfg.Cache.IndexTTL),
		fscache.WithCollector(collector),
	)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init cache: %v", err)
	}

	sources := make([]source.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src, err := source.FromConfig(sc, cacheStore)
		if err != nil {
			logger.WithComponent("main").Fatalf("cannot init source %s: %v", sc.Key, err)
		}
		sources = append(sources, src)
	}

	repo, err := datarepo.New(
		datarepo.WithStopTimeout(cfg.Repo.StopTimeout),
		datarepo.WithCollector(collector),
	)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init repository: %v", err)
	}

	app, err := appctx.New(cfg, cacheStore, repo, sources)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	if err := app.StartBackground(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start background loops: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := createEngine(app, registry)
	srv := createGraceHttpServer(app.BaseCtx, "mirror", app.Config.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Fatal(err)
	}
}

// createEngine builds the gin engine with global middleware and every route.
func createEngine(app *appctx.App, metrics prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORSMiddleware(app.Config.Server.CORSAllowedOrigins))
	r.Use(middleware.HoneybadgerMiddleware())
	r.Use(gin.Recovery())

	route.SetupRoutes(r, app, metrics)
	return r
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
