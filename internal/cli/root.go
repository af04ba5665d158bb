// Package cli implements the solodexctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/solodex/internal/adapters/repository"
	"github.com/okian/solodex/internal/config"
	"github.com/okian/solodex/pkg/logger"
)

// env carries what every command needs. Tests swap openStore.
type env struct {
	openStore func(ctx context.Context) (repository.Store, error)
}

func defaultEnv() *env {
	return &env{
		openStore: func(ctx context.Context) (repository.Store, error) {
			cfg, err := config.Load(ctx)
			if err != nil {
				return nil, err
			}
			return repository.Open(ctx, cfg, repository.WithLogger(logger.NamedOrNop("repository")))
		},
	}
}

// NewRootCmd builds the solodexctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultEnv())
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "solodexctl",
		Short: "Solo Run Stats Hub operator CLI",
		Long: `
solodexctl maintains the data behind a Solo Run Stats Hub server.

Commands that touch storage use the same configuration as the server
(SOLODEX_* environment variables, .env, or the YAML file in SOLODEX_CONFIG).

DATA:
  migrate          Copy JSON data files into the configured backend
  normalize-times  Rewrite completion_time values as H:MM
  fix-evolution    Set evolution_stage and is_evolved from the Gen 1 table

BULK IMPORT (through a running server):
  import moves-used FILE   Set RunStatistics.moves_used per pokemon_id
  import learnsets FILE    Set Pokemon learnsets matched by name

EXAMPLES:
  SOLODEX_BACKEND=sqlite solodexctl migrate --from-dir ./data
  solodexctl normalize-times --dry-run
  solodexctl import moves-used moves.json --server http://localhost:3001
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newMigrateCmd(e),
		newNormalizeTimesCmd(e),
		newFixEvolutionCmd(e),
		newImportCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	_ = logger.SetLevelString("warn")
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withStore opens the configured store for one command run.
func (e *env) withStore(ctx context.Context, fn func(repository.Store) error) error {
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)
	return fn(store)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
