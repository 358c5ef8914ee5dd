package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fe-quiz-runner/internal/app"
	"fe-quiz-runner/internal/config"
	transport "fe-quiz-runner/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	store := newStorage(cfg, redisClient)

	loader, err := newBankLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer loader.close()
	banks := newBankRepository(cfg, redisClient, loader)

	leaseTTL := config.TTLDuration(cfg.Lease.TTL, app.DefaultLeaseTTL)
	wsHandler := transport.NewWSHandler(banks, store, transport.RunnerOptions{
		TotalTime:         cfg.Quiz.TotalTime,
		LeaseTTL:          leaseTTL,
		HeartbeatInterval: config.TTLDuration(cfg.Lease.Heartbeat, app.DefaultHeartbeatInterval),
		Version:           bankVersion(cfg),
	})
	presetsHandler := transport.NewPresetsHandler(store, leaseTTL)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(wsHandler, presetsHandler),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz runner on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
