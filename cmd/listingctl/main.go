// listingctl runs aggregation passes and queries the listing store from the command line.
//
// It reads the same environment configuration as the API server, so it can
// share a SQLite or Postgres store with a running instance.
//
// Usage:
//
//	listingctl refresh
//	listingctl search --city austin --max-price 600000
//	listingctl get <id>
//	listingctl health
//	listingctl stats -o yaml
//	listingctl purge zillow_com1
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"listings-aggregator-api/cmd/internal/bootstrap"
	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/infrastructure/logger/structured"
	"listings-aggregator-api/pkg/config"
	"listings-aggregator-api/pkg/featureflags"
)

var (
	version   = "dev"
	outputFmt string
)

// service is the slice of the listing service the CLI drives
type service interface {
	Sources() []domain.Source
	FetchAndReconcileAll(ctx context.Context) domain.RefreshSummary
	Search(ctx context.Context, criteria map[string]string) ([]*domain.Listing, error)
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	HealthCheckAll(ctx context.Context) map[string]domain.HealthReport
	HealthCheck(ctx context.Context, source string) (domain.HealthReport, error)
	Stats(ctx context.Context) (domain.Stats, error)
	LastRefresh(ctx context.Context) (time.Time, bool)
	PurgeSource(ctx context.Context, source string) (int, error)
}

// openService builds the service from environment configuration; replaced in tests
var openService = func(ctx context.Context) (service, func() error, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Progress goes to stderr so stdout stays machine-readable
	logCfg := cfg.Log
	logCfg.File = ""
	logger, err := structured.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	logger.SetOutput(os.Stderr)

	app, err := bootstrap.Build(ctx, cfg, logger, featureflags.NewEnvManager(""))
	if err != nil {
		return nil, nil, err
	}
	return app.Service, app.Close, nil
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "listingctl",
		Short: "Refresh and query aggregated listings",
		Long: `listingctl drives the listing aggregation pipeline directly.

It uses the same STORE_TYPE, CACHE_TYPE and SOURCES_FILE settings as the API
server and prints JSON (or YAML) to stdout.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&outputFmt, "output", "o", "json", "Output format: json, yaml")

	root.AddCommand(refreshCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(getCmd())
	root.AddCommand(healthCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(purgeCmd())
	root.AddCommand(sourcesCmd())
	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
