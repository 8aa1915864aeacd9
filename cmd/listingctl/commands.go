// ABOUTME: Subcommands of listingctl, one per service operation
// ABOUTME: Each command opens the service, runs once and renders the result

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"listings-aggregator-api/api/dto/mappers"
	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/core/query"
)

// withService opens the service for one command and closes it afterwards
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, closeFn, err := openService(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(ctx, svc)
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch every source and reconcile into the store",
		Long: `Run one aggregation pass. Each source is reported separately, so a
failing provider never hides the results of the others.

The command exits non-zero only when every source failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc service) error {
				summary := svc.FetchAndReconcileAll(ctx)
				if err := render(cmd.OutOrStdout(), mappers.ToRefreshEnvelope(summary).Data); err != nil {
					return err
				}
				if len(summary.Sources) > 0 && !summary.AnySucceeded() {
					return fmt.Errorf("all sources failed: %v", summary.Failed())
				}
				return nil
			})
		},
	}
}

func searchCmd() *cobra.Command {
	values := make(map[string]*string, len(query.AllowedKeys))

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored listings",
		Long: `Filter stored listings. Every flag maps to the matching query parameter
of GET /listings/search and all filters are combined with AND.

Examples:
  listingctl search --city austin --max-price 600000
  listingctl search --min-bedrooms 3 --include-inactive true`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria := make(map[string]string)
			for key, v := range values {
				if *v != "" {
					criteria[key] = *v
				}
			}

			return withService(cmd, func(ctx context.Context, svc service) error {
				listings, err := svc.Search(ctx, criteria)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), mappers.ToListingsEnvelope(listings).Data)
			})
		},
	}

	for _, key := range query.AllowedKeys {
		values[key] = cmd.Flags().String(flagName(key), "", "Filter by "+key)
	}
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one listing, including soft-deleted ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc service) error {
				l, err := svc.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), mappers.ToListingResponse(l))
			})
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health [source]",
		Short: "Probe every source, or a single one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc service) error {
				if len(args) == 0 {
					return render(cmd.OutOrStdout(), mappers.ToHealthEnvelope(svc.HealthCheckAll(ctx)).Data)
				}
				report, err := svc.HealthCheck(ctx, args[0])
				if err != nil {
					return err
				}
				reports := map[string]domain.HealthReport{report.Source: report}
				return render(cmd.OutOrStdout(), mappers.ToHealthEnvelope(reports).Data)
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc service) error {
				stats, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				at, fresh := svc.LastRefresh(ctx)
				return render(cmd.OutOrStdout(), mappers.ToStatsEnvelope(stats, at, fresh).Data)
			})
		},
	}
}

func purgeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge <source>",
		Short: "Physically delete every listing from one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("purge deletes data permanently; pass --yes to confirm")
			}
			return withService(cmd, func(ctx context.Context, svc service) error {
				deleted, err := svc.PurgeSource(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), map[string]interface{}{
					"source":  args[0],
					"deleted": deleted,
				})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List registered sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc service) error {
				type row struct {
					Name string `json:"name" yaml:"name"`
					URL  string `json:"url" yaml:"url"`
				}
				var rows []row
				for _, s := range svc.Sources() {
					rows = append(rows, row{Name: s.Name, URL: s.URL})
				}
				return render(cmd.OutOrStdout(), rows)
			})
		},
	}
}
