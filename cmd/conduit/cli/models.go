package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinemde/conduit/restpipe"
)

type modelsOptions struct {
	root     *rootOptions
	endpoint string
	all      bool
	limit    int
}

func newModelsCmd(root *rootOptions) *cobra.Command {
	opts := &modelsOptions{root: root, endpoint: "{ver}/models"}
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the backend's available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.endpoint, "endpoint", "{ver}/models", "endpoint template for the model listing")
	fs.BoolVar(&opts.all, "all", false, "follow pagination cursors until exhausted")
	fs.IntVar(&opts.limit, "limit", 0, "page size hint passed as a query parameter")
	return cmd
}

func runModels(cmd *cobra.Command, opts *modelsOptions) error {
	client, err := opts.root.newPipelineClient()
	if err != nil {
		return err
	}
	svc := client.Service("models")

	var params []restpipe.Param
	if opts.limit > 0 {
		params = append(params, restpipe.Query("limit", fmt.Sprintf("%d", opts.limit)))
	}

	var items []json.RawMessage
	if opts.all {
		items, err = restpipe.ListAll[json.RawMessage](cmd.Context(), svc, opts.endpoint, params...)
	} else {
		var page restpipe.QueryResponse[json.RawMessage]
		page, err = restpipe.List[json.RawMessage](cmd.Context(), svc, opts.endpoint, params...)
		items = page.Data
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}
