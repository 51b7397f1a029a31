package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/curatorgate"
	"github.com/totegamma/curatorgate/internal/config"
	"github.com/totegamma/curatorgate/internal/infra/cache"
	"github.com/totegamma/curatorgate/internal/infra/database"
	"github.com/totegamma/curatorgate/internal/infra/ratelimit"
	"github.com/totegamma/curatorgate/internal/infra/repository"
	"github.com/totegamma/curatorgate/internal/present/rest"
	authmw "github.com/totegamma/curatorgate/internal/present/rest/middleware"
	"github.com/totegamma/curatorgate/internal/service"
	"github.com/totegamma/curatorgate/internal/telemetry"
	"github.com/totegamma/curatorgate/internal/usecase"
)

func main() {
	configPath := flag.String("config", os.Getenv("CURATORGATE_CONFIG"), "path to config yaml")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(*configPath); err != nil {
		slog.Error("curatorgate exited", slog.String("error", err.Error()), slog.String("module", "main"))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	policy := conf.Domain()

	traceEndpoint := ""
	if conf.Server.EnableTrace {
		traceEndpoint = conf.Server.TraceEndpoint
	}
	shutdownTracer, err := telemetry.Setup(ctx, "curatorgate", curatorgate.Version, traceEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		return err
	}
	defer database.ClosePostgres(db)

	if err := database.MigratePostgres(db); err != nil {
		return err
	}

	var rdb *redis.Client
	if conf.Server.RedisAddr != "" {
		rdb = database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		defer rdb.Close()
		if err := database.PingRedis(ctx, rdb); err != nil {
			return err
		}
	}

	codeRepo := repository.NewInviteCodeRepository(db)
	var grantRepo usecase.GrantRepository = repository.NewGrantRepository(db)

	if conf.Server.MemcachedAddr != "" {
		mc := database.NewMemcached(conf.Server.MemcachedAddr)
		defer mc.Close()
		grantRepo = cache.NewGrantCache(grantRepo, mc, conf.Access.GrantCacheTTL)
	}

	var limiter usecase.RateLimiter
	if rdb != nil {
		limiter = ratelimit.NewRedisLimiter(rdb, conf.Access.RateLimit, conf.Access.RateWindow)
	} else {
		limiter = ratelimit.NewMemoryLimiter(conf.Access.RateLimit, conf.Access.RateWindow)
	}

	signalService := service.NewSignalService(rdb)
	authService := service.NewAuthService(policy)

	accessUsecase := usecase.NewAccessUsecase(codeRepo, grantRepo, limiter, signalService, policy)
	codeUsecase := usecase.NewCodeUsecase(codeRepo, grantRepo, policy)

	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("curatorgate"))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(authmw.CORS(conf.Server.CORSOrigins))

	auth := authmw.NewAuthMiddleware(authService, policy)
	handler := rest.NewHandler(policy, accessUsecase, codeUsecase, authService, signalService)
	handler.RegisterRoutes(e, auth.IdentifyIdentity, auth.RequireAdmin)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(
			"curatorgate listening",
			slog.String("addr", conf.Server.Addr),
			slog.String("scopeMode", string(policy.ScopeMode)),
			slog.Bool("redis", rdb != nil),
			slog.Bool("memcached", conf.Server.MemcachedAddr != ""),
			slog.String("module", "main"),
		)
		if err := e.Start(conf.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", slog.String("module", "main"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
