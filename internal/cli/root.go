package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-call-cache/cache"
)

const version = "0.1.0"

const (
	ExitSuccess      = 0
	ExitRuntimeError = 1
)

// NewRootCommand builds the command tree. Every flag can also be set through
// a CALLCACHE_ prefixed environment variable, dashes replaced by underscores.
func NewRootCommand() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:           "callcache",
		Short:         "Exercise a hierarchical memoization cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Duration("sweep-interval", cache.DefaultSweepInterval, "expiry sweep interval, 0 disables it")
	flags.Bool("dedupe", false, "share one producer call between concurrent misses")
	_ = v.BindPFlags(flags)

	root.AddCommand(newRunCommand(v), newVersionCommand())
	return root
}

// Run executes the root command and returns an exit code.
func Run() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return ExitRuntimeError
	}
	return ExitSuccess
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print callcache version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "callcache version %s\n", version)
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("callcache")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
