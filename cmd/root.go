// Package cmd provides the root command and CLI setup for xcheck.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"xcheck.dev/pkg/xcheck/internal/adapter"
	"xcheck.dev/pkg/xcheck/internal/controller"
	"xcheck.dev/pkg/xcheck/internal/domain"
)

var goFileAdapter adapter.GoFileAdapter
var sourceFSAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var workflow *domain.InstrumentWorkflow
var ui controller.UI

// checkConfigFiles lists the external check configuration files, applied in
// order with later files overriding earlier ones.
var checkConfigFiles []string

// reportPathFlag is a root-level flag shared by commands that read/write the
// instrumentation report.
var reportPathFlag string

// filePatterns filters which files are instrumented.
var filePatterns []string

// verboseFlag switches logging to debug level.
var verboseFlag bool

// logFileFlag overrides the log file location.
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	sourceFSAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewLocalReportStore()
	workflow = domain.NewInstrumentWorkflow(
		sourceFSAdapter,
		goFileAdapter,
		reportStore,
	)
}

const pathsHelp = `Paths name the directories to scan recursively:
  - .              scan the current directory
  - ./pkg ./cmd    scan multiple directories`

const rootLongDescription = `Xcheck rewrites Go sources with cross-check instrumentation: every
instrumented function reports entry, argument, exit and return-value hashes
at run time, so two variants of the same program can be executed side by
side and diverge loudly at the first differing check.

` + pathsHelp

const instrumentLongDescription = `Instrument the Go files under the given paths (default: current directory),
rewriting them in place unless --dry-run is set.

` + pathsHelp

const listLongDescription = `List what would be instrumented under the given paths without changing any
file.

` + pathsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "xcheck",
		Short: "Go cross-check instrumentation tool",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag || viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringArrayVarP(
			&checkConfigFiles, checksFlagName, "c",
			viper.GetStringSlice(checksConfigKey),
			"external check configuration file, YAML or TOML (can be repeated)",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(checksFlagName), checksConfigKey)

	cmd.PersistentFlags().StringVarP(&reportPathFlag, reportFlagName, "o", viper.GetString(reportFlagName), "path of the instrumentation report")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(reportFlagName), reportFlagName)

	cmd.PersistentFlags().StringArrayVar(&filePatterns, patternsFlagName, viper.GetStringSlice(patternsConfigKey), "instrument files matching pattern (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(patternsFlagName), patternsConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "log file location")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parseRoots(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}

	return args
}
