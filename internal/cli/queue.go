// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"fmt"

	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/ava-labs/rollupanchor/server"
)

type valueOutput struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// NewGetValueCommand creates the get-value command.
func NewGetValueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-value <hex-key>",
		Short: "Read a value of the anchor's store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := server.DecodeBytes(args[0])
			if err != nil {
				return fmt.Errorf("invalid key: %w", err)
			}
			value, err := rootOpts.client().GetValue(cmd.Context(), key)
			if err != nil {
				return err
			}
			out := valueOutput{Key: args[0]}
			if value.HasValue() {
				encoded := server.EncodeBytes(value.Value())
				out.Value = &encoded
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <hex-payload>",
		Short: "Push a message to the anchor's queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := server.DecodeBytes(args[0])
			if err != nil {
				return fmt.Errorf("invalid payload: %w", err)
			}
			index, err := rootOpts.client().PushMessage(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), server.IndexReply{Index: json.Uint32(index)})
		},
	}
}

type messageOutput struct {
	Index json.Uint32 `json:"index"`
	Data  string      `json:"data"`
}

// NewPollCommand creates the poll command.
func NewPollCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "List the unprocessed messages of the anchor's queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cli := rootOpts.client()
			head, err := cli.QueueHead(ctx)
			if err != nil {
				return err
			}
			tail, err := cli.QueueTail(ctx)
			if err != nil {
				return err
			}
			messages := make([]messageOutput, 0, tail-head)
			for index := head; index < tail; index++ {
				message, err := cli.GetMessage(ctx, index)
				if err != nil {
					return err
				}
				if message.IsNothing() {
					continue
				}
				messages = append(messages, messageOutput{
					Index: json.Uint32(index),
					Data:  server.EncodeBytes(message.Value()),
				})
			}
			return printJSON(cmd.OutOrStdout(), messages)
		},
	}
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		after string
		limit uint32
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Page through the anchor's event journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var afterID ulid.ULID
			if after != "" {
				var err error
				afterID, err = ulid.ParseStrict(after)
				if err != nil {
					return fmt.Errorf("invalid --after: %w", err)
				}
			}
			events, err := rootOpts.client().GetEvents(cmd.Context(), afterID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().StringVar(&after, "after", "", "ID of the last event already seen")
	cmd.Flags().Uint32Var(&limit, "limit", 100, "maximum number of events")

	return cmd
}
