// Package cli implements the conduit command line interface: small
// subcommands that exercise a configured backend through the request
// pipeline and print raw JSON results.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinemde/conduit/config"
	"github.com/martinemde/conduit/restpipe"
)

type rootOptions struct {
	cfgPath string
	backend string
	verbose bool
}

func Run(args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{cfgPath: "conduit.yaml"}
	cmd := &cobra.Command{
		Use:           "conduit",
		Short:         "Call AI provider HTTP APIs through one request pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	fs := cmd.PersistentFlags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "conduit.yaml", "config yaml path")
	fs.StringVarP(&opts.backend, "backend", "b", "", "backend profile name (default from config)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newModelsCmd(opts),
		newChatCmd(opts),
		newDownloadCmd(opts),
	)
	return cmd
}

// newPipelineClient loads the config file and builds a client for the
// selected backend profile.
func (o *rootOptions) newPipelineClient() (*restpipe.Client, error) {
	file, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, err
	}
	backend, name, err := file.Backend(o.backend)
	if err != nil {
		return nil, err
	}
	return restpipe.New(backend.Settings(name), restpipe.WithLogger(slog.Default()))
}
