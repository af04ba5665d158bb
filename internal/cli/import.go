package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/solodex/internal/client"
	"github.com/okian/solodex/internal/importer"
)

type importFlags struct {
	server      string
	appID       string
	concurrency int
	timeout     time.Duration
}

func newImportCmd() *cobra.Command {
	f := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import JSON files through a running server",
	}
	cmd.PersistentFlags().StringVar(&f.server, "server", "http://localhost:3001", "server base URL")
	cmd.PersistentFlags().StringVar(&f.appID, "app-id", "", "route requests under /api/apps/{id}")
	cmd.PersistentFlags().IntVar(&f.concurrency, "concurrency", 4, "rows in flight")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "overall import deadline")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "moves-used FILE",
			Short: "Set RunStatistics.moves_used from [{pokemon_id, moves_used}]",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImport(cmd, f, args[0], (*importer.Importer).MovesUsed)
			},
		},
		&cobra.Command{
			Use:   "learnsets FILE",
			Short: "Set Pokemon learnsets from [{name, level_up_moves, tm_moves}]",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImport(cmd, f, args[0], (*importer.Importer).Learnsets)
			},
		},
	)
	return cmd
}

type importFunc func(*importer.Importer, context.Context, []map[string]any) []importer.Result

func runImport(cmd *cobra.Command, f *importFlags, path string, flow importFunc) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rows, err := importer.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var opts []client.Option
	if f.appID != "" {
		opts = append(opts, client.WithAppID(f.appID))
	}
	c, err := client.New(f.server, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()
	results := flow(importer.FromClient(c, importer.WithConcurrency(f.concurrency)), ctx, rows)

	out := cmd.OutOrStdout()
	for _, r := range results {
		printf(out, "%-8s %s: %s\n", r.Status, r.Key, r.Message)
	}
	sum := importer.Summarize(results)
	printf(out, "%d rows: %d success, %d warning, %d error\n",
		len(results), sum[importer.StatusSuccess], sum[importer.StatusWarning], sum[importer.StatusError])
	if sum[importer.StatusError] > 0 {
		return fmt.Errorf("%w: %d rows failed", ErrImport, sum[importer.StatusError])
	}
	return nil
}
