// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cli implements anchorctl, the command line client of anchord.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/client"
	"github.com/ava-labs/rollupanchor/signer"
)

const (
	defaultURI = "http://127.0.0.1:9650"
	tokenEnv   = "ANCHORCTL_TOKEN"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	URI     string
	Token   string
	Scheme  string
	Verbose bool
}

func (o *RootOptions) client() client.Client {
	return client.New(o.URI, o.Token)
}

func (o *RootOptions) scheme() (signer.Scheme, error) {
	return signer.SchemeByName(o.Scheme)
}

func (o *RootOptions) logger(cmd *cobra.Command) log.Logger {
	logger := log.New("app", "anchorctl")
	level := log.LvlInfo
	if o.Verbose {
		level = log.LvlDebug
	}
	logger.SetHandler(log.LvlFilterHandler(level, log.StreamHandler(cmd.ErrOrStderr(), log.TerminalFormat())))
	return logger
}

// NewRootCommand creates the root command of anchorctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "anchorctl",
		Short: "Command line client of anchord",
		Long: `Command line client of anchord.

Mutating calls are authenticated with a bearer token, taken from --token or
the ANCHORCTL_TOKEN environment variable. Meta transactions are authorized
by their signature and need no token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if opts.Token == "" {
				opts.Token = os.Getenv(tokenEnv)
			}
			_, err := opts.scheme()
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&opts.URI, "uri", defaultURI, "base URI of anchord")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token of the caller")
	cmd.PersistentFlags().StringVar(&opts.Scheme, "scheme", signer.AvalancheScheme, "signature scheme of the anchor")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewGetValueCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewPollCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewRollupCommand(opts))
	cmd.AddCommand(NewRelayCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))

	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("couldn't write output: %w", err)
	}
	return nil
}
