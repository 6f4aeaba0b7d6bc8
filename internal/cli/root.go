// Package cli implements the xtheme command line: the preview server, the
// scenario simulator and version reporting.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trickstertwo/xlog"
	"github.com/trickstertwo/xlog/adapter/zerolog"

	"github.com/trickstertwo/xtheme/config"
)

// app carries state shared by the subcommands.
type app struct {
	version string
	cfgFile string
	v       *viper.Viper
	cfg     config.Config
	logger  *xlog.Logger
	out     io.Writer
}

// NewRootCommand builds the command tree. version is reported by
// "xtheme version" and --version.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version, v: viper.New()}

	root := &cobra.Command{
		Use:     "xtheme",
		Short:   "Develop and preview storefront themes locally",
		Long:    `xtheme serves a storefront theme with mock store data, runs its page modules against platform events and replays scripted visits headlessly.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.init()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ./xtheme.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newServeCommand(a),
		newSimulateCommand(a),
		newVersionCommand(a),
	)
	return root
}

// Execute runs the command line.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = zerolog.Use(zerolog.Config{
		MinLevel:          parseLevel(cfg.Log.Level),
		Console:           cfg.Log.Console,
		ConsoleTimeFormat: time.RFC3339,
		Caller:            cfg.Log.Level == "debug",
		CallerSkip:        5,
	}).With(xlog.Str("app", "xtheme"))
	return nil
}

func parseLevel(s string) xlog.Level {
	switch s {
	case "debug":
		return xlog.LevelDebug
	case "warn":
		return xlog.LevelWarn
	case "error":
		return xlog.LevelError
	default:
		return xlog.LevelInfo
	}
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the xtheme version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "xtheme %s\n", a.version)
			return err
		},
	}
}
