// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ava-labs/rollupanchor/anchor"
	"github.com/ava-labs/rollupanchor/client"
	"github.com/ava-labs/rollupanchor/server"
	"github.com/ava-labs/rollupanchor/signer"
)

// readTransition reads a JSON transition from [path], or from [stdin] when
// [path] is "-".
func readTransition(path string, stdin io.Reader) (*anchor.Transition, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read transition: %w", err)
	}
	var transition server.Transition
	if err := json.Unmarshal(b, &transition); err != nil {
		return nil, fmt.Errorf("couldn't parse transition: %w", err)
	}
	return transition.Parse()
}

func loadOrGenerateKey(encoded string) (*ecdsa.PrivateKey, error) {
	if encoded == "" {
		return signer.GenerateKey()
	}
	return signer.ParsePrivateKey(encoded)
}

// NewRollupCommand creates the rollup command.
func NewRollupCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Submit a transition as the token's caller",
		Long: `Submit a transition as the token's caller, which must hold the attestor
role. The transition is read as JSON from --file, e.g.

  {
    "conditions": [{"key": "0x6b", "value": null}],
    "updates": [{"key": "0x6b", "value": "0x01"}],
    "actions": [{"type": "SetQueueHead", "index": "1"}]
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			transition, err := readTransition(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			submitter := client.DirectSubmitter{Client: rootOpts.client()}
			events, err := submitter.Submit(cmd.Context(), transition)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "transition file, - for stdin")

	return cmd
}

// NewRelayCommand creates the relay command.
func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		file       string
		privateKey string
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Sign a transition and submit it as a meta transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scheme, err := rootOpts.scheme()
			if err != nil {
				return err
			}
			key, err := signer.ParsePrivateKey(privateKey)
			if err != nil {
				return fmt.Errorf("invalid --key: %w", err)
			}
			transition, err := readTransition(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			logger := rootOpts.logger(cmd)
			logger.Debug("relaying transition", "from", signer.Address(scheme, key))
			submitter := client.MetaTxSubmitter{
				Client: rootOpts.client(),
				Scheme: scheme,
				Key:    key,
			}
			events, err := submitter.Submit(cmd.Context(), transition)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "transition file, - for stdin")
	cmd.Flags().StringVar(&privateKey, "key", "", "hex encoded private key of the signer")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

type encodeOutput struct {
	Data string `json:"data"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(*RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the canonical encoding of a transition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			transition, err := readTransition(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			data, err := anchor.MarshalTransition(transition)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), encodeOutput{Data: server.EncodeBytes(data)})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "transition file, - for stdin")

	return cmd
}
