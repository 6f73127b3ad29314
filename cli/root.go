// Package cli wires the command line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hannajonsd/sqli-reachability/config"
	"github.com/hannajonsd/sqli-reachability/observability"
)

// Version is set at build time with
// -ldflags "-X github.com/hannajonsd/sqli-reachability/cli.Version=1.2.3".
var Version = "0.1.0"

// Process exit codes.
const (
	ExitOK         = 0
	ExitVulnerable = 1
	ExitError      = 2
)

// ErrVulnerable is returned by analyze when an endpoint reaches a sink.
var ErrVulnerable = errors.New("reachable SQL injection found")

const (
	configName = ".sqli-reachability"
	envPrefix  = "SQLI_REACH"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	verbose bool

	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds a fresh command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:           "sqli-reachability",
		Short:         "Finds API endpoints whose parameters reach SQL execution in Python projects.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./"+configName+".yaml or ~/"+configName+".yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output and debug logging")

	root.AddCommand(newAnalyzeCmd(a), newDepGraphCmd(a), newVersionCmd())
	return root
}

// initialize reads the config file and environment, then builds the logger.
func (a *app) initialize(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if a.verbose {
		a.v.Set("logger.level", "debug")
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(cfg.Logger, zapcore.AddSync(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("Starting", zap.String("version", Version), zap.String("config", a.v.ConfigFileUsed()))
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrVulnerable):
		return ExitVulnerable
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitError
	}
}
