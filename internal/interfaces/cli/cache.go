package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/client"
)

// NewCacheCmd builds the cache administration command tree.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Administer the query cache",
	}
	cmd.AddCommand(newCacheStatsCmd(), newCacheInvalidateCmd(), newCacheSweepCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and the most-accessed queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			stats, err := cliCtx.Client.CacheStats(cmd.Context())
			if err != nil {
				return err
			}

			return printResult(cmd, cliCtx, stats, func() string {
				return formatCacheStats(stats)
			})
		},
	}
}

func newCacheInvalidateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "invalidate [question]",
		Short: "Drop one cached answer, or every entry with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" && !all {
				return fmt.Errorf("provide a question to invalidate, or --all")
			}
			if all {
				query = ""
			}

			removed, err := cliCtx.Client.CacheInvalidate(cmd.Context(), query)
			if err != nil {
				return err
			}

			return printResult(cmd, cliCtx, map[string]int{"removed": removed}, func() string {
				return fmt.Sprintf("removed %d entries", removed)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "drop every cached entry")
	return cmd
}

func newCacheSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			removed, err := cliCtx.Client.CacheSweep(cmd.Context())
			if err != nil {
				return err
			}

			return printResult(cmd, cliCtx, map[string]int{"removed": removed}, func() string {
				return fmt.Sprintf("swept %d expired entries", removed)
			})
		},
	}
}

func formatCacheStats(stats *client.CacheStatsResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "entries: %d total, %d valid, %d expired",
		stats.TotalEntries, stats.ValidEntries, stats.ExpiredEntries)
	if len(stats.MostAccessed) > 0 {
		b.WriteString("\nmost accessed:")
		for _, a := range stats.MostAccessed {
			fmt.Fprintf(&b, "\n  %4d  %s", a.AccessCount, a.Query)
		}
	}
	return b.String()
}
