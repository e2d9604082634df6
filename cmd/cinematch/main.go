// Command cinematch runs the group movie-matching server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cinematch/internal/app"
	"cinematch/internal/config"
)

const (
	releaseVersion  = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	cfg := config.Default()

	v := viper.New()
	v.SetEnvPrefix("CINEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cinematch",
		Short:         "Real-time group movie matching over websockets.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.HTTP.Host, "host", "H", cfg.HTTP.Host, "address to bind to (env: CINEMATCH_HOST)")
	fs.IntVarP(&cfg.HTTP.Port, "port", "p", cfg.HTTP.Port, "port to listen on (env: CINEMATCH_PORT)")
	fs.DurationVar(&cfg.HTTP.ReadTimeout, "read-timeout", cfg.HTTP.ReadTimeout, "HTTP read timeout (env: CINEMATCH_READ_TIMEOUT)")
	fs.DurationVar(&cfg.HTTP.WriteTimeout, "write-timeout", cfg.HTTP.WriteTimeout, "HTTP write timeout (env: CINEMATCH_WRITE_TIMEOUT)")
	fs.StringSliceVar(&cfg.WebSocket.AllowedOrigins, "allowed-origins", cfg.WebSocket.AllowedOrigins, "websocket origin allow list, empty allows all (env: CINEMATCH_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.Catalog.APIKey, "tmdb-api-key", cfg.Catalog.APIKey, "TMDB API key, empty uses the built-in movie list (env: CINEMATCH_TMDB_API_KEY)")
	fs.StringVar(&cfg.Catalog.BaseURL, "tmdb-base-url", cfg.Catalog.BaseURL, "TMDB API base URL (env: CINEMATCH_TMDB_BASE_URL)")
	fs.StringVar(&cfg.Catalog.Language, "tmdb-language", cfg.Catalog.Language, "TMDB result language (env: CINEMATCH_TMDB_LANGUAGE)")
	fs.IntVar(&cfg.Catalog.BatchSize, "movie-batch-size", cfg.Catalog.BatchSize, "number of candidate movies per session (env: CINEMATCH_MOVIE_BATCH_SIZE)")
	fs.DurationVar(&cfg.Catalog.CacheTTL, "catalog-cache-ttl", cfg.Catalog.CacheTTL, "TMDB response cache lifetime (env: CINEMATCH_CATALOG_CACHE_TTL)")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "externally reachable base URL for join links (env: CINEMATCH_PUBLIC_URL)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error (env: CINEMATCH_LOG_LEVEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cinematch v{{.Version}}\n")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return application.Stop(shutdownCtx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
