package cli

import (
	"fmt"
	"os"

	"fe-quiz-runner/internal/app"
	"fe-quiz-runner/internal/config"
	"github.com/spf13/cobra"
)

// NewPresetsCmd groups user preset export/import against the shared Redis store.
func NewPresetsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Export or import user presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print user presets as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, cleanup, err := sharedPresets(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			text, err := presets.Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Merge presets from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			presets, cleanup, err := sharedPresets(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			n, err := presets.Import(cmd.Context(), string(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d presets\n", n)
			return nil
		},
	})
	return cmd
}

// sharedPresets requires Redis: an in-process store would vanish with the command.
func sharedPresets(configPath string) (*app.PresetService, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	client := newRedisClient(cfg)
	if client == nil {
		return nil, nil, fmt.Errorf("redis addr not configured")
	}
	return app.NewPresetService(newStorage(cfg, client)), func() { client.Close() }, nil
}
