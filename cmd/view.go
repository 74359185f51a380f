package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View a previously generated instrumentation report",
		Long:  "View a previously generated instrumentation report from its report file.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := reportStore.Load(viper.GetString(reportFlagName))
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
	rootCmd.AddCommand(viewCmd)
}
