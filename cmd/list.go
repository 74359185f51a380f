package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"xcheck.dev/pkg/xcheck/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List what would be instrumented",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := workflow.Run(cmd.Context(), domain.InstrumentArgs{
				Roots:          parseRoots(args),
				Patterns:       viper.GetStringSlice(patternsConfigKey),
				ConfigFiles:    viper.GetStringSlice(checksConfigKey),
				DryRun:         true,
				CHashFunctions: viper.GetBool(cHashConfigKey),
				RuntimeImport:  viper.GetString(runtimeImportConfigKey),
			})
			if err != nil {
				return err
			}

			if err := ui.DisplayItems(cmd.Context(), report); err != nil {
				return err
			}

			return ui.DisplayReport(cmd.Context(), report)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
