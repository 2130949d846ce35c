package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "vitalstats/internal/adapter/http"
	"vitalstats/internal/adapter/memory"
	"vitalstats/internal/adapter/mongodb"
	"vitalstats/internal/adapter/postgres"
	"vitalstats/internal/adapter/rabbitmq"
	"vitalstats/internal/adapter/rediscache"
	"vitalstats/internal/adapter/sqlite"
	"vitalstats/internal/app"
	"vitalstats/internal/config"
	"vitalstats/internal/domain"
	"vitalstats/internal/jobs"
)

// stores groups the repositories of one backing store.
type stores struct {
	stats   domain.StatsRepository
	users   domain.UserRepository
	revoked domain.RevokedTokenRepository
	close   func() error
}

func openStores(cfg config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &stores{stats: db, users: db, revoked: postgres.NewRevokedTokenRepo(db), close: db.Close}, nil
	case config.DriverMongo:
		db, err := mongodb.Open(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &stores{stats: db, users: db, revoked: mongodb.NewRevokedTokenRepo(db), close: db.Close}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{stats: db, users: db, revoked: sqlite.NewRevokedTokenRepo(db), close: db.Close}, nil
	default:
		log.Printf("using in-memory store; data is lost on restart")
		db := memory.New()
		return &stores{stats: db, users: db, revoked: db.NewRevokedTokenRepo(), close: func() error { return nil }}, nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires the application and serves until interrupted.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() { _ = st.close() }()

	statsRepo := st.stats
	if cfg.RedisAddr != "" {
		rdb, err := rediscache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("redis unavailable, serving without cache: %v", err)
		} else {
			defer func() { _ = rdb.Close() }()
			statsRepo = rediscache.New(statsRepo, rdb, cfg.CacheTTL)
		}
	}

	var events app.EventPublisher
	if cfg.AMQPURL != "" {
		pub, err := rabbitmq.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			log.Printf("rabbitmq unavailable, events disabled: %v", err)
		} else {
			defer func() { _ = pub.Close() }()
			events = pub
		}
	}

	tokens := app.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	authSvc := app.NewAuthService(st.users, st.revoked, tokens, cfg.BcryptCost)
	statsSvc := app.NewStatsService(statsRepo, events, cfg.StoreTimeout)
	chartsSvc := app.NewChartsService(statsRepo, cfg.StoreTimeout)

	sweeper := &jobs.TokenSweeper{Revoked: st.revoked, Timeout: cfg.StoreTimeout}
	sched, err := sweeper.Start(cfg.TokenSweepSchedule)
	if err != nil {
		return fmt.Errorf("token sweeper: %w", err)
	}
	defer sched.Stop()

	srv := adapthttp.New(statsSvc, chartsSvc, authSvc, adapthttp.Options{
		AdminCode:        cfg.AdminCode,
		CORSOrigin:       cfg.CORSOrigin,
		CookieSecure:     cfg.CookieSecure,
		TrustForwardAuth: cfg.TrustForwardAuth,
	})
	if cfg.AdminCode == "" {
		log.Printf("ADMIN_CODE is empty; admin routes are disabled")
	}
	if cfg.OIDCEnabled() {
		oc, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		if err != nil {
			log.Printf("sso disabled: %v", err)
		} else {
			srv.WithOIDC(oc)
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s (store=%s)", cfg.Addr, cfg.StoreDriver)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
