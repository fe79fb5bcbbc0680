// Command pacwrap is the front-end CLI: it resolves containers from the
// registry, builds a transaction plan from the requested operand and
// flags, and drives the transaction engine and sandbox to carry it out.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacwrap/pacwrap/pkg/log"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/pwconfig"
	"github.com/pacwrap/pacwrap/pkg/termctl"
)

func main() {
	guard := termctl.New(int(os.Stdin.Fd()))
	defer guard.ResetTerminal()

	if err := rootCmd.Execute(); err != nil {
		guard.ResetTerminal()
		reportAndExit(err)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pacwrap [container] [packages...]",
	Short:   "pacwrap - unprivileged Linux container and package manager",
	Version: pwconfig.Build,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"pacwrap %s\nbuild: %s (%s)\n", pwconfig.Build, pwconfig.BuildStamp, pwconfig.BuildTime))

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(utilsCmd)
	rootCmd.AddCommand(compatCmd)
}

// syncCmd implements the -S operand: install, upgrade, and refresh sync
// databases for the requested containers.
var syncCmd = &cobra.Command{
	Use:     "sync [containers...] [packages...]",
	Aliases: []string{"-S", "S"},
	Short:   "synchronize and install packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		refreshCount, _ := cmd.Flags().GetCount("refresh")
		upgrade, _ := cmd.Flags().GetBool("upgrade")
		forceForeign, _ := cmd.Flags().GetBool("force-foreign")
		dbOnly, _ := cmd.Flags().GetBool("dbonly")
		noConfirm, _ := cmd.Flags().GetBool("no-confirm")
		targets, _ := cmd.Flags().GetStringSlice("target")

		return runSync(cmd.Context(), targets, args, syncOptions{
			Refresh:      refreshCount > 0,
			RefreshAll:   refreshCount > 1,
			Upgrade:      upgrade,
			ForceForeign: forceForeign,
			DatabaseOnly: dbOnly,
			NoConfirm:    noConfirm,
		})
	},
}

// removeCmd implements the -R operand.
var removeCmd = &cobra.Command{
	Use:     "remove [containers...] [packages...]",
	Aliases: []string{"-R", "R"},
	Short:   "remove packages from containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cascade, _ := cmd.Flags().GetBool("cascade")
		recursive, _ := cmd.Flags().GetBool("recursive")
		keepConfig, _ := cmd.Flags().GetBool("keep-config")
		targets, _ := cmd.Flags().GetStringSlice("target")

		return runRemove(cmd.Context(), targets, args, removeOptions{
			Cascade:    cascade,
			Recursive:  recursive,
			KeepConfig: keepConfig,
		})
	},
}

// queryCmd implements the -Q operand: lists a container's foreign
// packages (the default) or, with --orphans, its orphaned packages.
var queryCmd = &cobra.Command{
	Use:     "query [container]",
	Aliases: []string{"-Q", "Q"},
	Short:   "query a container's installed packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		foreign, _ := cmd.Flags().GetBool("foreign")
		orphans, _ := cmd.Flags().GetBool("orphans")
		return runQuery(cmd.Context(), args, queryOptions{Foreign: foreign, Orphans: orphans})
	},
}

// execCmd implements the -E operand: execute an arbitrary command
// inside a container's sandbox without a transaction.
var execCmd = &cobra.Command{
	Use:     "exec [container] -- [command...]",
	Aliases: []string{"-E", "E"},
	Short:   "execute a command within a container",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExec(cmd.Context(), args)
	},
}

// utilsCmd implements the -U operand family, including the supplemented
// "utils open" command.
var utilsCmd = &cobra.Command{
	Use:     "utils",
	Aliases: []string{"-U", "U"},
	Short:   "maintenance utilities",
}

var utilsOpenCmd = &cobra.Command{
	Use:   "open [container]",
	Short: "open an interactive shell within a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUtilsOpen(cmd.Context(), args[0])
	},
}

var utilsMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "serve Prometheus metrics for this install",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		return runUtilsMetrics(cmd.Context(), addr)
	},
}

func init() {
	utilsCmd.AddCommand(utilsOpenCmd)
	utilsCmd.AddCommand(utilsMetricsCmd)
	utilsMetricsCmd.Flags().String("listen", "127.0.0.1:9090", "address to serve /metrics on")
}

// compatCmd implements the supplemented pacman-compatibility shim that
// translates familiar pacman invocations onto the container model.
var compatCmd = &cobra.Command{
	Use:    "compat [pacman-args...]",
	Short:  "translate a pacman-style invocation onto a container",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompat(cmd.Context(), args)
	},
}

func init() {
	syncCmd.Flags().CountP("refresh", "y", "refresh sync databases (repeat for -yy force refresh)")
	syncCmd.Flags().BoolP("upgrade", "u", false, "upgrade installed packages")
	syncCmd.Flags().Bool("force-foreign", false, "force reinstallation of foreign packages")
	syncCmd.Flags().Bool("dbonly", false, "only modify the package database, not the filesystem")
	syncCmd.Flags().Bool("no-confirm", false, "do not ask for confirmation")
	syncCmd.Flags().StringSliceP("target", "t", nil, "container(s) to operate on")

	removeCmd.Flags().BoolP("cascade", "c", false, "remove dependents of target packages")
	removeCmd.Flags().BoolP("recursive", "s", false, "remove unneeded dependencies")
	removeCmd.Flags().Bool("keep-config", false, "keep configuration files")
	removeCmd.Flags().StringSliceP("target", "t", nil, "container(s) to operate on")

	queryCmd.Flags().Bool("foreign", false, "list installed packages not in any sync database")
	queryCmd.Flags().Bool("orphans", false, "list installed packages no longer required")
}

func reportAndExit(err error) {
	if perr, ok := perror.As(err); ok {
		fmt.Fprintln(os.Stderr, perr.Error())
		os.Exit(perr.Code())
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// syncOptions, removeOptions and queryOptions decouple cobra's flag
// parsing from the plan-building logic in ops.go.
type syncOptions struct {
	Refresh      bool
	RefreshAll   bool
	Upgrade      bool
	ForceForeign bool
	DatabaseOnly bool
	NoConfirm    bool
}

type removeOptions struct {
	Cascade    bool
	Recursive  bool
	KeepConfig bool
}

type queryOptions struct {
	Foreign bool
	Orphans bool
}
