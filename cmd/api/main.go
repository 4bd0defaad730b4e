package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/anthdm/hollywood/actor"
	"github.com/valyala/fasthttp"
	_ "go.uber.org/automaxprocs"

	"payment-proxy/internal/actors"
	"payment-proxy/internal/config"
	"payment-proxy/internal/health"
	"payment-proxy/internal/replication"
	"payment-proxy/internal/server"
	"payment-proxy/internal/store"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	slog.SetDefault(slog.New(handler))

	st, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Could not set up the ledger store: %v", err)
	}
	defer st.Close()

	engine, err := actor.NewEngine(actor.NewEngineConfig())
	if err != nil {
		log.Fatalf("Could not start the actor engine: %v", err)
	}

	client := &fasthttp.Client{
		TLSConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
		MaxConnsPerHost:               200,
		MaxIdleConnDuration:           90 * time.Second,
		MaxConnWaitTimeout:            200 * time.Millisecond,
		DisableHeaderNamesNormalizing: true,
		DisablePathNormalizing:        true,

		Dial: fasthttp.Dial,
	}

	submitter := actors.NewHTTPSubmitter(client,
		cfg.DefaultProcessorURL, cfg.FallbackProcessorURL, cfg.SubmitTimeout)

	corePID := engine.Spawn(actors.NewCore(st, submitter, cfg.BatchSize, cfg.BatchInterval), "core")

	var link *replication.Link
	if cfg.Role == config.RoleLeader {
		link = replication.New(client, cfg.PeerURL, cfg.HealthPushTimeout, cfg.SummaryPullTimeout)
	}

	// Followers never poll; they get health snapshots pushed by the
	// leader and keep the last-known value across push failures.
	var monitor *health.Monitor
	if cfg.Role != config.RoleFollower {
		var pusher health.Pusher
		if link != nil {
			pusher = link
		}
		monitor = health.NewMonitor(client,
			cfg.DefaultProcessorURL, cfg.FallbackProcessorURL,
			cfg.HealthCheckInterval, cfg.HealthCheckTimeout,
			engine, corePID, pusher)
		monitor.Start()
	}

	s := server.New(engine, corePID, cfg.Role, link, 5*time.Second)
	s.Start(cfg.Port)

	slog.Info("payment proxy started",
		slog.Int("port", cfg.Port),
		slog.String("role", string(cfg.Role)),
		slog.String("store", string(cfg.Store)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)

	slog.Info(fmt.Sprintf("signal %v received", <-quit))

	if monitor != nil {
		monitor.Stop()
	}
	if err := s.Shutdown(); err != nil {
		slog.Error("Error shutting down server", slog.String("error", err.Error()))
	}
}

func newStore(cfg config.Config) (store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cfg.Store {
	case config.StoreRedis:
		return store.NewRedis(ctx, cfg.RedisAddress)
	case config.StorePostgres:
		return store.NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return store.NewMemory(35000), nil
	}
}
