package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/conduit/services"
)

type chatOptions struct {
	root   *rootOptions
	model  string
	stream bool
}

func newChatCmd(root *rootOptions) *cobra.Command {
	opts := &chatOptions{root: root}
	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Send a chat completion request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, strings.Join(args, " "))
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.model, "model", "m", "", "model id (required)")
	fs.BoolVar(&opts.stream, "stream", false, "stream deltas instead of waiting for the full response")
	cmd.MarkFlagRequired("model")
	return cmd
}

func runChat(cmd *cobra.Command, opts *chatOptions, prompt string) error {
	client, err := opts.root.newPipelineClient()
	if err != nil {
		return err
	}
	svc := services.NewOpenAI(client)
	req := services.ChatRequest{
		Model:    opts.model,
		Messages: []services.ChatMessage{{Role: "user", Content: prompt}},
	}

	if !opts.stream {
		resp, err := svc.Complete(cmd.Context(), req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	events, err := svc.StreamComplete(cmd.Context(), req)
	if err != nil {
		return err
	}
	for ev := range events {
		switch {
		case ev.IsError:
			return errors.New(ev.ErrorMessage)
		case ev.Done:
			if ev.Usage != nil {
				fmt.Fprintf(os.Stderr, "tokens: %d in, %d out\n", ev.Usage.InputTokens, ev.Usage.OutputTokens)
			}
		case len(ev.Payload) > 0:
			fmt.Fprintln(os.Stdout, string(ev.Payload))
		}
	}
	return nil
}
