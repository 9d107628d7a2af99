package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"classboard/internal/app"
	"classboard/internal/auth"
	"classboard/internal/config"
	"classboard/internal/infra/memory"
	"classboard/internal/infra/postgres"
	rediscache "classboard/internal/infra/redis"
	transport "classboard/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the classboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret not configured")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	}

	keyTTL := config.TTLDuration(cfg.AnswerKeys.TTL, 10*time.Minute)
	loader := memory.NewStoreAnswerKeyLoader(store)
	var keys app.AnswerKeyRepository = memory.NewAnswerKeyCache(loader, keyTTL)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		keys = rediscache.NewAnswerKeyCache(client, loader, keyTTL)
	}

	hub := app.NewMonitorHub()
	enrollments := app.NewEnrollmentService(store)
	scoring := app.NewScoringService(store, keys, enrollments, hub)
	sessionDuration := config.TTLDuration(cfg.Session.Duration, 30*time.Minute)
	sessions := app.NewSessionService(store, scoring, enrollments, hub, sessionDuration)

	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
	server := transport.NewServer(transport.Services{
		Auth:         auth.NewService(store, cfg.Auth.Secret, tokenTTL),
		Catalog:      app.NewCatalogService(store),
		Enrollments:  enrollments,
		Sessions:     sessions,
		Scoring:      scoring,
		Leaderboards: app.NewLeaderboardService(store),
		Dashboards:   app.NewDashboardService(store),
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepInterval := config.TTLDuration(cfg.Session.SweepInterval, time.Minute)
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		log.Printf("starting classboard on :%s", finalPort)
		return server.Start(":" + finalPort)
	})
	group.Go(func() error {
		if err := sessions.Run(groupCtx, sweepInterval); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	})
	return group.Wait()
}
