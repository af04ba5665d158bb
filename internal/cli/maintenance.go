package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/okian/solodex/internal/adapters/repository"
	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/runstats"
)

func newNormalizeTimesCmd(e *env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "normalize-times",
		Short: "Rewrite completion_time values as H:MM without a leading zero",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd.Context(), func(store repository.Store) error {
				for _, kind := range []entity.Kind{entity.Pokemon, entity.RunStatistics} {
					n, err := normalizeTimes(cmd.Context(), store, kind, dryRun)
					if err != nil {
						return err
					}
					report(cmd, kind, n, dryRun, "entries")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing them")
	return cmd
}

func normalizeTimes(ctx context.Context, store repository.Store, kind entity.Kind, dryRun bool) (int, error) {
	recs, err := store.List(ctx, kind)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		raw, ok := r[runstats.FieldCompletionTime].(string)
		if !ok {
			continue
		}
		next, changed := runstats.NormalizeCompletionTime(raw)
		if !changed {
			continue
		}
		n++
		if dryRun {
			continue
		}
		if _, err := store.Replace(ctx, kind, r.ID(), entity.Record{runstats.FieldCompletionTime: next}); err != nil {
			return n, err
		}
	}
	return n, nil
}

func newFixEvolutionCmd(e *env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "fix-evolution",
		Short: "Set evolution_stage and is_evolved from pokedex_number",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd.Context(), func(store repository.Store) error {
				n, err := fixEvolution(cmd.Context(), store, dryRun)
				if err != nil {
					return err
				}
				report(cmd, entity.Pokemon, n, dryRun, "pokemon entries")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing them")
	return cmd
}

func fixEvolution(ctx context.Context, store repository.Store, dryRun bool) (int, error) {
	recs, err := store.List(ctx, entity.Pokemon)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		dex, ok := r.IntField(runstats.FieldPokedexNumber)
		if !ok {
			continue
		}
		stage := runstats.StageOf(dex)
		evolved, set := r[runstats.FieldIsEvolved].(bool)
		if set && evolved == stage.IsEvolved() && r.StringField(runstats.FieldEvolutionStage) == string(stage) {
			continue
		}
		n++
		if dryRun {
			continue
		}
		patch := entity.Record{
			runstats.FieldEvolutionStage: string(stage),
			runstats.FieldIsEvolved:      stage.IsEvolved(),
		}
		if _, err := store.Replace(ctx, entity.Pokemon, r.ID(), patch); err != nil {
			return n, err
		}
	}
	return n, nil
}

func report(cmd *cobra.Command, kind entity.Kind, n int, dryRun bool, noun string) {
	out := cmd.OutOrStdout()
	switch {
	case n == 0:
		printf(out, "%s: no changes needed\n", kind)
	case dryRun:
		printf(out, "%s: would update %d %s\n", kind, n, noun)
	default:
		printf(out, "%s: updated %d %s\n", kind, n, noun)
	}
}
