package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/room-booking/internal/web"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServerCmd() *cobra.Command {
	var (
		migrateUp bool
		inMemory  bool
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking web UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, appOptions{migrate: migrateUp, inMemory: inMemory})
			if err != nil {
				return err
			}
			defer a.Close()

			var rdb *redis.Client
			if a.cfg.RedisURL != "" {
				if rdb, err = web.OpenRedis(ctx, a.cfg.RedisURL); err != nil {
					return err
				}
				defer rdb.Close()
			}
			lim, err := web.NewLimiter(a.cfg.RateLimit, rdb)
			if err != nil {
				return err
			}

			a.log.Info("starting",
				zap.String("version", Version),
				zap.String("availability_url", a.checker.URL()),
				zap.Duration("availability_timeout", a.cfg.AvailabilityTimeout),
				zap.Bool("in_memory", inMemory),
				zap.Bool("redis_rate_limit", rdb != nil),
			)

			ws := &web.Server{
				Bookings:       a.bookings,
				Flashes:        web.NewFlashes(a.cfg.FlashHashKey, a.cfg.FlashBlockKey),
				Limiter:        lim,
				Log:            a.log,
				Version:        Version,
				AllowedOrigins: a.cfg.CORSAllowedOrigins,
			}
			return web.Start(ctx, a.cfg.ListenAddr, ws.Routes(), a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep bookings in memory instead of Postgres")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
