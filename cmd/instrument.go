package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"xcheck.dev/pkg/xcheck/internal/domain"
)

var instrumentDryRunFlag bool
var instrumentDiffFlag bool
var instrumentCHashFlag bool
var instrumentRuntimeImportFlag string

// instrumentCmd represents the instrument command.
var instrumentCmd = newInstrumentCmd()

func newInstrumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instrument [paths...]",
		Short: "Rewrite Go sources with cross-check instrumentation",
		Long:  instrumentLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := workflow.Run(cmd.Context(), domain.InstrumentArgs{
				Roots:          parseRoots(args),
				Patterns:       viper.GetStringSlice(patternsConfigKey),
				ConfigFiles:    viper.GetStringSlice(checksConfigKey),
				DryRun:         instrumentDryRunFlag,
				Diff:           instrumentDiffFlag || instrumentDryRunFlag,
				CHashFunctions: viper.GetBool(cHashConfigKey),
				RuntimeImport:  viper.GetString(runtimeImportConfigKey),
				ReportPath:     viper.GetString(reportFlagName),
			})
			if err != nil {
				return err
			}

			if err := ui.DisplayReport(cmd.Context(), report); err != nil {
				return err
			}

			if instrumentDiffFlag || instrumentDryRunFlag {
				return ui.DisplayDiffs(cmd.Context(), report)
			}

			return nil
		},
	}

	configureInstrumentFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(instrumentCmd)
}

func configureInstrumentFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&instrumentDryRunFlag, dryRunFlagName, "n", false, "report and diff without writing any file")
	cmd.Flags().BoolVar(&instrumentDiffFlag, diffFlagName, false, "print a unified diff per rewritten file")

	cmd.Flags().BoolVar(&instrumentCHashFlag, cHashFlagName, viper.GetBool(cHashConfigKey), "also emit C-ABI hash forwarders for instrumented types")
	bindFlagToConfig(cmd.Flags().Lookup(cHashFlagName), cHashConfigKey)

	cmd.Flags().StringVar(&instrumentRuntimeImportFlag, runtimeImportFlagName, viper.GetString(runtimeImportConfigKey), "import path of the check runtime package")
	bindFlagToConfig(cmd.Flags().Lookup(runtimeImportFlagName), runtimeImportConfigKey)
}
