package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/intellicase/backend/internal/db"
	"github.com/intellicase/backend/internal/util"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/dossier"
	"github.com/intellicase/backend/pkg/graph"
	"github.com/intellicase/backend/pkg/ranking"
	"github.com/intellicase/backend/pkg/store"
	"github.com/intellicase/backend/pkg/store/memory"
	pgxstore "github.com/intellicase/backend/pkg/store/pgx"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	databaseURL string
	files       []string
	linkCaseID  string
	linkPolicy  string
	parallel    int
}

// session is an opened graph with its engines. Files given with --file are
// merged before the command runs.
type session struct {
	store   store.GraphStorage
	engine  *graph.MergeEngine
	ranker  *ranking.Ranker
	dossier *dossier.Service
	loaded  []common.MergeResult
	close   func()
}

func openSession(ctx context.Context, flags *globalFlags) (*session, error) {
	var (
		graphStore store.GraphStorage
		closeFn    = func() {}
	)
	if flags.databaseURL != "" {
		pool, err := db.Connect(ctx, flags.databaseURL)
		if err != nil {
			return nil, err
		}
		graphStore = pgxstore.NewGraphDBStorageWithConnection(pool)
		closeFn = pool.Close
	} else {
		graphStore = memory.NewGraphMemoryStorage()
	}

	policy, err := graph.ParseLinkPolicy(flags.linkPolicy)
	if err != nil {
		closeFn()
		return nil, err
	}
	engine, err := graph.NewMergeEngine(graph.NewMergeEngineParams{
		Store:      graphStore,
		LinkPolicy: policy,
		Parallel:   flags.parallel,
	})
	if err != nil {
		closeFn()
		return nil, err
	}
	ranker, err := ranking.NewRanker(ranking.NewRankerParams{Store: graphStore})
	if err != nil {
		closeFn()
		return nil, err
	}

	s := &session{
		store:   graphStore,
		engine:  engine,
		ranker:  ranker,
		dossier: dossier.NewService(graphStore),
		close: func() {
			graphStore.Close()
			closeFn()
		},
	}

	for _, file := range flags.files {
		data, err := os.ReadFile(file)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		batch, err := common.DecodeRecordBatch(data, file)
		if err != nil {
			s.close()
			return nil, err
		}
		if flags.linkCaseID != "" {
			batch.LinkCaseID = flags.linkCaseID
		}
		results, err := engine.MergeBatch(ctx, batch)
		if err != nil {
			s.close()
			return nil, err
		}
		s.loaded = append(s.loaded, results...)
	}
	return s, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withSession opens a session for the duration of run.
func withSession(flags *globalFlags, run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), flags)
		if err != nil {
			return err
		}
		defer s.close()
		return run(cmd, args, s)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "casectl",
		Short:         "Merge investigative records and query the case graph",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.databaseURL, "db", util.GetEnv("DATABASE_URL"), "PostgreSQL URL, empty for an in-memory graph")
	rootCmd.PersistentFlags().StringArrayVarP(&flags.files, "file", "f", nil, "JSON or YAML record batch to merge first (repeatable)")
	rootCmd.PersistentFlags().StringVar(&flags.linkCaseID, "link-case", "", "anchor every merged record to this case")
	rootCmd.PersistentFlags().StringVar(&flags.linkPolicy, "link-policy", util.GetEnv("LINK_POLICY"), "call endpoint policy: smart or strict")
	rootCmd.PersistentFlags().IntVar(&flags.parallel, "parallel", util.GetEnvInt("INGEST_PARALLEL", 4), "records merged at once")

	rootCmd.AddCommand(newMigrateCmd(flags))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ingest",
		Short: "Merge the batch files and print the per-record results",
		RunE: withSession(flags, func(cmd *cobra.Command, args []string, s *session) error {
			if len(flags.files) == 0 {
				return errors.New("ingest needs at least one --file")
			}
			counts := graph.CountStatuses(s.loaded)
			return printJSON(cmd, map[string]any{
				"records": len(s.loaded),
				"merged":  counts[common.StatusMerged],
				"noop":    counts[common.StatusNoop],
				"skipped": counts[common.StatusSkipped],
				"results": s.loaded,
			})
		}),
	})

	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the top suspects",
	}
	caseID := rankCmd.Flags().String("case", "", "restrict the ranking to the cluster around this case")
	rankCmd.RunE = withSession(flags, func(cmd *cobra.Command, args []string, s *session) error {
		ranks, err := s.ranker.Rank(cmd.Context(), *caseID)
		if err != nil {
			return err
		}
		if ranks == nil {
			ranks = []common.SuspectRank{}
		}
		return printJSON(cmd, ranks)
	})
	rootCmd.AddCommand(rankCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "dossier [type] [id]",
		Short: "Print the profile of a person, vehicle, phone or case",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(flags, func(cmd *cobra.Command, args []string, s *session) error {
			d, err := s.dossier.Get(cmd.Context(), args[0], args[1])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%s %q not found", args[0], args[1])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, d)
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print node and edge counts",
		RunE: withSession(flags, func(cmd *cobra.Command, args []string, s *session) error {
			stats, err := s.engine.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "calls",
		Short: "Print every merged call",
		RunE: withSession(flags, func(cmd *cobra.Command, args []string, s *session) error {
			calls, err := s.engine.CallLog(cmd.Context())
			if err != nil {
				return err
			}
			if calls == nil {
				calls = []common.CallLogEntry{}
			}
			return printJSON(cmd, calls)
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "archive [case-id]",
		Short: "Mark a case as archived",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(flags, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.engine.ArchiveCase(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "case %s archived\n", args[0])
			return nil
		}),
	})

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every node and edge",
	}
	confirmed := resetCmd.Flags().Bool("yes", false, "confirm the reset")
	resetCmd.RunE = withSession(flags, func(cmd *cobra.Command, args []string, s *session) error {
		if !*confirmed {
			return errors.New("refusing to reset without --yes")
		}
		if err := s.engine.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "graph reset")
		return nil
	})
	rootCmd.AddCommand(resetCmd)

	return rootCmd
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.databaseURL == "" {
				return errors.New("migrate needs --db or DATABASE_URL")
			}
			return nil
		},
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.Up(flags.databaseURL)
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
	}
	steps := downCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	downCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return db.Down(flags.databaseURL, *steps)
	}
	migrateCmd.AddCommand(downCmd)

	return migrateCmd
}
