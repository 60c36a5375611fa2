package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"floorsync-system/config"
	"floorsync-system/internal/database"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/events"
	"floorsync-system/internal/events/mirror"
	"floorsync-system/internal/gateway"
	"floorsync-system/internal/health"
	"floorsync-system/internal/logger"
	"floorsync-system/internal/payments"
	"floorsync-system/internal/realtime"
	"floorsync-system/internal/services/coordinator"
	"floorsync-system/internal/store"
	"floorsync-system/internal/store/gormstore"
	"floorsync-system/internal/store/memstore"
	"floorsync-system/internal/utils"
)

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("floorsync stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, lg *slog.Logger) error {
	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	st, err := openStore(cfg, rdb)
	if err != nil {
		return err
	}

	checks := []health.Check{{Name: "store", Ping: st.Ping}}
	if rdb != nil {
		checks = append(checks, health.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	var m events.Mirror
	switch cfg.Events.Mirror {
	case config.MirrorRedis:
		m = mirror.NewRedis(rdb)
	case config.MirrorAMQP:
		a, err := mirror.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		checks = append(checks, health.Check{Name: "rabbitmq", Ping: func(context.Context) error {
			return a.Ping()
		}})
		m = a
	}

	bus := events.NewBus(events.Options{MailboxSize: cfg.Events.MailboxSize, Mirror: m, Logger: lg})
	bus.Start()
	defer bus.Close()

	tokens := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	floor := coordinator.New(st, bus, payments.NewSandbox("usd"), coordinator.Options{
		Pricing: domain.Pricing{TaxRate: cfg.Pricing.TaxRate, SplitTolerance: cfg.Pricing.SplitTolerance},
		Logger:  lg,
	})
	if err := seedAdmin(ctx, floor, cfg.Auth, lg); err != nil {
		return err
	}

	monitor := health.NewMonitor(lg, checks...)
	go monitor.Run(ctx, healthInterval)

	router, err := gateway.NewRouter(gateway.Deps{
		Floor:       floor,
		Tokens:      tokens,
		Registry:    realtime.NewRegistry(bus, tokens, lg),
		Health:      monitor,
		Logger:      lg,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		RateLimit:   cfg.HTTP.RateLimit,
	})
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", ":"+cfg.HTTP.GRPCPort)
	if err != nil {
		return err
	}
	grpcErr := make(chan error, 1)
	go func() { grpcErr <- health.Serve(ctx, monitor.NewGRPCServer(), lis) }()
	lg.Info("health service listening", "port", cfg.HTTP.GRPCPort)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		lg.Info("floorsync listening", "port", cfg.HTTP.Port, "store", cfg.Store.Driver, "mirror", cfg.Events.Mirror)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		return err
	case err := <-grpcErr:
		if err != nil {
			return err
		}
		grpcErr = nil
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if grpcErr == nil {
		return nil
	}
	return <-grpcErr
}

func openStore(cfg config.Config, rdb *redis.Client) (store.Store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		return memstore.New(), nil
	}
	db, err := database.NewConnection(cfg.Store.DSN, database.PoolConfig{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := database.MigrateFloorDB(db); err != nil {
		return nil, err
	}
	return gormstore.New(db, rdb), nil
}

// seedAdmin creates the configured admin account unless it exists.
func seedAdmin(ctx context.Context, floor *coordinator.Coordinator, auth config.AuthConfig, lg *slog.Logger) error {
	if auth.AdminEmail == "" {
		return nil
	}
	_, err := floor.CreateEmployee(ctx, coordinator.EmployeeInput{
		RestaurantID: auth.AdminRestaurant,
		Email:        auth.AdminEmail,
		Password:     auth.AdminPassword,
		FirstName:    "Floor",
		LastName:     "Admin",
		Role:         domain.RoleAdmin,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		lg.Debug("admin account already exists", "email", auth.AdminEmail)
		return nil
	}
	return err
}
