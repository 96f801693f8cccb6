package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rpupo63/round/api"
	"github.com/rpupo63/round/auth"
	"github.com/rpupo63/round/cache"
	"github.com/rpupo63/round/config"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const sessionSweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := getCfg(cmd)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	currentDB := database.New(db)
	if config.GetBool(cfg, "AUTO_MIGRATE", false) {
		if err := currentDB.Migrate(ctx); err != nil {
			return err
		}
	}

	store, closeStore, err := newCacheStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	readModel := cache.NewReadModel(
		cache.NewDBSource(currentDB),
		store,
		config.GetDuration(cfg, "CACHE_TTL_SECONDS", time.Second, cache.DefaultTTL),
	)

	secret := config.GetString(cfg, "SESSION_SECRET", "")
	if secret == "" {
		return errs.NewEnvironmentVariableError("SESSION_SECRET")
	}
	sessions := auth.NewSessionManager(
		secret,
		config.GetDuration(cfg, "SESSION_TTL_HOURS", time.Hour, 30*24*time.Hour),
		currentDB.SessionRepo(),
	)

	port := config.GetString(cfg, "PORT", "8080")
	github := auth.NewGitHub(
		config.GetString(cfg, "GITHUB_CLIENT_ID", ""),
		config.GetString(cfg, "GITHUB_CLIENT_SECRET", ""),
		config.GetString(cfg, "GITHUB_REDIRECT_URL", fmt.Sprintf("http://localhost:%s/auth/github/callback", port)),
		secret,
	)
	if !github.Enabled() {
		log.Warn().Msg("GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET not set, GitHub login disabled")
	}

	// A nil *ResendMailer must not end up inside the interface.
	var mailer services.Mailer
	if resend := services.NewResendMailer(cfg); resend != nil {
		mailer = resend
	} else {
		log.Warn().Msg("Resend is not configured, invitation emails will not be sent")
	}

	server, err := api.NewServer(cfg, api.Deps{
		DB:            currentDB,
		ReadModel:     readModel,
		Sessions:      sessions,
		GitHub:        github,
		Mailer:        mailer,
		SessionSecret: secret,
		AppURL:        config.GetString(cfg, "APP_URL", "http://localhost:3000"),
	})
	if err != nil {
		return err
	}

	go sweepSessions(ctx, currentDB.SessionRepo(), sessionSweepInterval)

	errChannel := make(chan error, 2)
	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
	return nil
}

// newCacheStore builds the read-model store named by CACHE_DRIVER.
func newCacheStore(ctx context.Context, cfg map[string]string) (cache.Store, func(), error) {
	switch driver := config.GetString(cfg, "CACHE_DRIVER", "memory"); driver {
	case "memory":
		return cache.NewMemoryStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     config.GetString(cfg, "REDIS_ADDR", "localhost:6379"),
			Password: config.GetString(cfg, "REDIS_PASSWORD", ""),
			DB:       config.GetInt(cfg, "REDIS_DB", 0),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errs.NewConfigError("REDIS_ADDR", err)
		}
		log.Info().Msg("Using Redis cache store")
		return cache.NewRedisStore(client, config.GetString(cfg, "REDIS_KEY_PREFIX", "")), func() { _ = client.Close() }, nil
	default:
		return nil, nil, errs.NewConfigError("CACHE_DRIVER", fmt.Errorf("unsupported CACHE_DRIVER %q", driver))
	}
}

// sweepSessions deletes expired session rows until ctx ends.
func sweepSessions(ctx context.Context, repo *database.SessionRepo, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Warn().Err(err).Msg("Failed to delete expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("Deleted expired sessions")
			}
		}
	}
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
