package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinemde/conduit/restpipe"
)

type downloadOptions struct {
	root   *rootOptions
	output string
}

func newDownloadCmd(root *rootOptions) *cobra.Command {
	opts := &downloadOptions{root: root}
	cmd := &cobra.Command{
		Use:   "download <endpoint>",
		Short: "Fetch a binary resource and persist it to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path (required)")
	cmd.MarkFlagRequired("output")
	return cmd
}

func runDownload(cmd *cobra.Command, opts *downloadOptions, endpoint string) error {
	client, err := opts.root.newPipelineClient()
	if err != nil {
		return err
	}
	svc := client.Service("download")
	path, err := restpipe.Download(cmd.Context(), svc, endpoint, opts.output)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, path)
	return nil
}
