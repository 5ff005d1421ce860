// @title                       Request Tracker API
// @version                     1.0
// @description                 Work-order lifecycle with role-based access control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/workdesk/request-tracker/internal/api"
	"github.com/workdesk/request-tracker/internal/api/handler"
	"github.com/workdesk/request-tracker/internal/core/ports"
	"github.com/workdesk/request-tracker/internal/core/service"
	"github.com/workdesk/request-tracker/internal/infrastructure/config"
	"github.com/workdesk/request-tracker/internal/infrastructure/db/mongo"
	"github.com/workdesk/request-tracker/internal/infrastructure/db/postgres"
	"github.com/workdesk/request-tracker/internal/infrastructure/db/redis"
	"github.com/workdesk/request-tracker/pkg/logger"
)

const serviceName = "request-tracker"

type stores struct {
	users  ports.UserRepository
	orders ports.WorkOrderRepository
	ping   handler.Pinger
	close  func(context.Context)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(logger.Options{Service: serviceName})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Options{
		Service: serviceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
	})

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer st.close(context.Background())

	health := map[string]handler.Pinger{cfg.StoreDriver: st.ping}

	tokens := service.NewJWTTokenService(cfg.JWTSecret, cfg.TokenTTL)
	hasher := service.NewBcryptHasher(bcrypt.DefaultCost)

	var (
		authOpts  []service.AuthOption
		orderOpts []service.WorkOrderOption
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without idempotency keys and login lockout")
		} else {
			defer rdb.Close()
			authOpts = append(authOpts, service.WithLoginLimiter(
				redis.NewLoginLimiter(rdb, cfg.Login.MaxFailures, cfg.Login.Lockout)))
			orderOpts = append(orderOpts, service.WithIdempotencyStore(
				redis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)))
			health["redis"] = redisPinger(rdb)
		}
	}

	authSvc := service.NewAuthService(st.users, hasher, tokens, log, authOpts...)
	userSvc := service.NewUserService(st.users, st.orders, log)
	orderSvc := service.NewWorkOrderService(st.orders, st.users, log, orderOpts...)

	if cfg.Bootstrap.Enabled() {
		if err := authSvc.EnsureAdmin(ctx, ports.RegisterInput{
			Username: cfg.Bootstrap.Username,
			Email:    cfg.Bootstrap.Email,
			Password: cfg.Bootstrap.Password,
		}); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin account")
		}
	}

	e := api.NewRouter(api.Deps{
		Auth:      authSvc,
		Users:     userSvc,
		WorkOrder: orderSvc,
		Tokens:    tokens,
		Health:    health,
		Logger:    log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, log)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, db, log); err != nil {
			return nil, err
		}
		return &stores{
			users:  postgres.NewUserRepository(db),
			orders: postgres.NewWorkOrderRepository(db),
			ping:   func(ctx context.Context) error { return postgres.Ping(ctx, db) },
			close: func(context.Context) {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			},
		}, nil

	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")
		return &stores{
			users:  mongo.NewUserRepository(db),
			orders: mongo.NewWorkOrderRepository(db),
			ping:   func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:  func(ctx context.Context) { _ = client.Disconnect(ctx) },
		}, nil
	}
}

func redisPinger(rdb *goredis.Client) handler.Pinger {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
