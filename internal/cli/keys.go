// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/spf13/cobra"

	"github.com/ava-labs/rollupanchor/server"
	"github.com/ava-labs/rollupanchor/signer"
)

var errMissingSecret = errors.New("--secret is required")

type keygenOutput struct {
	PrivateKey string      `json:"privateKey"`
	Address    ids.ShortID `json:"address"`
	Scheme     string      `json:"scheme"`
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	var privateKey string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key and print its account",
		Long: `Generate a secp256k1 signing key and print the account it signs meta
transactions as under --scheme. With --key, derive the account of an existing
key instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scheme, err := rootOpts.scheme()
			if err != nil {
				return err
			}
			key, err := loadOrGenerateKey(privateKey)
			if err != nil {
				return err
			}
			encoded, err := signer.EncodePrivateKey(key)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), keygenOutput{
				PrivateKey: encoded,
				Address:    signer.Address(scheme, key),
				Scheme:     scheme.Name(),
			})
		},
	}

	cmd.Flags().StringVar(&privateKey, "key", "", "existing hex encoded private key")

	return cmd
}

type tokenOptions struct {
	secret  string
	issuer  string
	account string
	ttl     time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(*RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.secret == "" {
				return errMissingSecret
			}
			account, err := ids.ShortFromString(opts.account)
			if err != nil {
				return err
			}
			token, err := server.IssueToken([]byte(opts.secret), opts.issuer, account, opts.ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.secret, "secret", "", "HS256 secret configured on anchord")
	cmd.Flags().StringVar(&opts.issuer, "issuer", "anchord", "token issuer")
	cmd.Flags().StringVar(&opts.account, "account", "", "cb58 account the token authenticates")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
