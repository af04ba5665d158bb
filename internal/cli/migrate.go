package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/solodex/internal/adapters/repository"
	"github.com/okian/solodex/internal/domain/entity"
)

func newMigrateCmd(e *env) *cobra.Command {
	var fromDir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy <Kind>.json files into the configured backend",
		Long: `Reads one <Kind>.json array per entity kind from --from-dir and upserts
every record by id into the configured backend. Kinds are copied in
parallel; a missing file is skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd.Context(), func(store repository.Store) error {
				up, ok := store.(repository.Upserter)
				if !ok {
					return fmt.Errorf("%w: %s backend", ErrNoUpsert, store.Backend())
				}
				return migrate(cmd, up, fromDir)
			})
		},
	}
	cmd.Flags().StringVar(&fromDir, "from-dir", "./data", "directory holding <Kind>.json files")
	return cmd
}

func migrate(cmd *cobra.Command, up repository.Upserter, dir string) error {
	var (
		mu    sync.Mutex
		total int
	)
	out := cmd.OutOrStdout()
	g, ctx := errgroup.WithContext(cmd.Context())
	for _, kind := range entity.Kinds() {
		g.Go(func() error {
			path := filepath.Join(dir, kind.Describe().File)
			raw, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				mu.Lock()
				printf(out, "skip %s: %s not found\n", kind, path)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			recs, err := repository.DecodeRecords(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			n, err := up.Upsert(ctx, kind, recs)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", kind, err)
			}
			mu.Lock()
			total += n
			printf(out, "migrated %s: %d records\n", kind, n)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	printf(out, "migration complete: %d records\n", total)
	return nil
}
