package cli

import (
	"fmt"
	"log"
	"os"

	"fe-quiz-runner/internal/config"
	"fe-quiz-runner/internal/domain"
	pgloader "fe-quiz-runner/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewBankCmd groups question bank maintenance commands.
func NewBankCmd(configPath *string) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect or seed the question bank",
	}
	cmd.PersistentFlags().StringVar(&version, "version", "", "bank version token (defaults to config or today)")

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load the bank once and report how many questions it holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			loader, err := newBankLoader(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer loader.close()

			v := version
			if v == "" {
				v = bankVersion(cfg)()
			}
			questions, err := loader.LoadBank(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bank %s: %d questions\n", v, len(questions))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Store a JSON question bank in Postgres under --version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if version == "" {
				return fmt.Errorf("--version is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			questions, err := domain.ParseBank(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := pgloader.NewBankLoader(pool).SaveBank(cmd.Context(), version, questions); err != nil {
				return err
			}
			log.Printf("stored %d questions as bank %s", len(questions), version)
			return nil
		},
	})
	return cmd
}
