// Package main is the havel daemon's command-line entry point: a
// cobra root command plus run/devices/profiles/version subcommands,
// generalized from palaver's plain-flag CLI the way waymon structures
// its own cobra root+subcommand tree.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time via -ldflags.
	Version = "0.1.0-dev"

	flagVerbose     bool
	flagNoGrab      bool
	flagInterpreter bool
	flagBytecode    bool
	flagDryRun      bool
	flagDevices     []string
	flagConfigPath  string
)

var rootCmd = &cobra.Command{
	Use:   "havel",
	Short: "Havel — a Linux desktop input-automation daemon",
	Long: `Havel grabs keyboard/mouse input via evdev, matches it against a
hotkey algebra, and runs user scripts written in the Havel language against
a small bytecode VM to remap, suppress, or react to input.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "path to the daemon config file (default ~/.config/havel/config.toml)")

	runCmd.Flags().BoolVar(&flagNoGrab, "no-grab", false, "open devices without exclusive grab")
	runCmd.Flags().BoolVar(&flagInterpreter, "interpreter", false, "execute via the tree-walking path (unimplemented, see --bytecode)")
	runCmd.Flags().BoolVar(&flagBytecode, "bytecode", true, "execute via the compiled bytecode VM (default)")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "parse (and compile) the script and report diagnostics without running it")
	runCmd.Flags().StringArrayVar(&flagDevices, "device", nil, "device node to read from (repeatable; overrides config's device allow-list)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if flagVerbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
