package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appagent "limbopet-arena/internal/app/agent"
	apppublic "limbopet-arena/internal/app/public"
	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/auth"
	"limbopet-arena/internal/config"
	"limbopet-arena/internal/logging"
	"limbopet-arena/internal/outbox"
	"limbopet-arena/internal/push"
	"limbopet-arena/internal/recap"
	"limbopet-arena/internal/store"
	httptransport "limbopet-arena/internal/transport/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("arena server stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadApp()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	if cfg.Server.MigrateOnStart {
		if err := store.Migrate(cfg.Server.PostgresDSN, cfg.Server.MigrationsPath); err != nil {
			return err
		}
	}
	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	arenaSvc := arena.NewService(st, cfg.Arena, arena.WithRecap(recap.NewService(nil)))
	jwtm := auth.NewJWTManager(cfg.Auth)
	if jwtm == nil {
		log.Warn().Msg("JWT_SECRET not set; bearer tokens disabled, API keys only")
	}

	pushCfg, err := push.ConfigFrom(cfg.Push)
	if err != nil {
		return fmt.Errorf("push config: %w", err)
	}
	pusher := push.NewManager(pushCfg)
	sinks := []outbox.Sink{}
	if cfg.Push.Enabled {
		sinks = append(sinks, pusher)
	}
	if len(cfg.Outbox.KafkaBrokers) > 0 {
		kafka := outbox.NewKafkaSink(cfg.Outbox.KafkaBrokers, cfg.Outbox.TopicPrefix)
		defer kafka.Close()
		sinks = append(sinks, kafka)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Agents:   st,
		DB:       st,
		Arena:    arenaSvc,
		Public:   apppublic.NewService(st, arenaSvc),
		AgentSvc: appagent.NewService(st, cfg.Server, jwtm),
		JWT:      jwtm,
	}, cfg.Server)
	httptransport.LogRoutes(router)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Arena.PollerEnabled {
		g.Go(func() error { return arenaSvc.RunPoller(gctx, cfg.Arena.TickInterval) })
	}
	if cfg.Push.Enabled {
		g.Go(func() error { return pusher.Start(gctx) })
	}
	if cfg.Outbox.Enabled {
		relay := outbox.NewRelay(st, cfg.Outbox, sinks...)
		g.Go(func() error { return relay.Run(gctx) })
	}

	err = g.Wait()
	log.Info().Msg("arena server shut down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
