package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"metapanel/adapters/excel"
	"metapanel/adapters/filesink"
	"metapanel/adapters/postgres"
	"metapanel/app"
	"metapanel/domain/patch"
	"metapanel/internal"
	"metapanel/internal/config"
	"metapanel/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("no .env file found, using system environment")
	}

	rootCmd := &cobra.Command{
		Use:   "metapanel",
		Short: "Batch aggregation and governance pipeline for match statistics",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newMigrateCmd(),
		newRowsCmd(),
		newCompareCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var input string
	var outputDir string
	var noStore bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full batch pipeline over a match-record export",
		Long: `Aggregate every patch in the input file, govern and stamp the rows,
compare consecutive patches, and write the panel files.

Rows are also persisted to the panel store when DATABASE_URL is set,
unless --no-store is given.

Example: metapanel run --input matches.xlsx --output-dir ./panels`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), input, outputDir, noStore)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Match-record export file (.xlsx or .csv)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Panel output directory (default from OUTPUT_DIR)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip the panel store even when DATABASE_URL is set")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runPipeline(ctx context.Context, input, outputDir string, noStore bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if outputDir == "" {
		outputDir = cfg.Export.OutputDir
	}

	sink, err := filesink.New(outputDir)
	if err != nil {
		return err
	}

	var repo ports.PanelRepository
	var pgRepo *postgres.PanelRepository
	if cfg.Database.URL != "" && !noStore {
		db, err := postgres.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		pgRepo = postgres.NewPanelRepository(db)
		repo = pgRepo
	}

	service := app.NewPipelineService(cfg, excel.NewSource(input), sink, repo, internal.DefaultLogger)
	manifest, err := service.Run(ctx)
	if err != nil {
		return err
	}

	if pgRepo != nil {
		if err := pgRepo.SaveBatchManifest(ctx, string(manifest.BatchID), manifest); err != nil {
			return err
		}
	}
	return printJSON(manifest)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the panel-store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := postgres.Connect(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Println("panel-store schema up to date")
			return nil
		},
	}
}

func newRowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rows [patch]",
		Short: "Print the stored panel rows for one patch, priority ordered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := patch.Parse(args[0])
			if err != nil {
				return err
			}

			repo, closeDB, err := openRepository()
			if err != nil {
				return err
			}
			defer closeDB()

			records, err := repo.RowsForPatch(cmd.Context(), target)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no stored rows for patch %s", target)
			}
			return printJSON(records)
		},
	}
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [patch-from] [patch-to]",
		Short: "Print the stored comparison between two patches",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := patch.Parse(args[0])
			if err != nil {
				return err
			}
			to, err := patch.Parse(args[1])
			if err != nil {
				return err
			}

			repo, closeDB, err := openRepository()
			if err != nil {
				return err
			}
			defer closeDB()

			result, err := repo.Comparison(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if result == nil {
				return fmt.Errorf("no stored comparison for %s -> %s", from, to)
			}
			return printJSON(result)
		},
	}
}

func openRepository() (*postgres.PanelRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewPanelRepository(db), func() { _ = db.Close() }, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
