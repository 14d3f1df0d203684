package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// UsageLine is written to stderr when the arguments are wrong
const UsageLine = "usage: format_jsonl.py <session.jsonl>"

// ErrUsage reports a wrong argument count or an unknown flag
var ErrUsage = errors.New("usage error")

// rootCmd is the command run by Execute
var rootCmd = NewRootCmd()

// options holds the flags of a single command instance
type options struct {
	cfgFile  string
	logLevel string
	verbose  bool
	watch    bool
}

// NewRootCmd builds the format-jsonl command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "format-jsonl <session.jsonl>",
		Short: "Render a JSONL session log as a plain-text transcript",
		Long: `format-jsonl reads a line-delimited JSON session log and writes the
user and assistant messages it contains to a .txt file next to it.
Each message becomes a turn labeled USER: or ASSISTANT:, and turns are
separated by a line containing "---". Other events, malformed lines and
messages without text are skipped.`,
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return ErrUsage
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.cfgFile, "config", "", "config file (json, yaml or toml)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every skipped line with its reason")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-render the transcript whenever the session file changes")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	cmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	return cmd
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
