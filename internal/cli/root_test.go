// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/anchor"
	"github.com/ava-labs/rollupanchor/server"
	"github.com/ava-labs/rollupanchor/signer"
)

const (
	testSecret = "cli-secret"
	testIssuer = "anchord"
)

var deployer = ids.ShortID{1}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newTestAnchord(t *testing.T, scheme signer.Scheme) (string, *anchor.Anchor) {
	require := require.New(t)

	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	registry := prometheus.NewRegistry()
	a, err := anchor.New(memdb.New(), anchor.Config{
		ID:         ids.ShortID{0xaa},
		Scheme:     scheme,
		Log:        logger,
		Registerer: registry,
	})
	require.NoError(err)
	_, err = a.Initialize(context.Background(), &anchor.Genesis{Deployer: deployer})
	require.NoError(err)

	handler, err := server.NewHandler(a, server.Config{
		Auth:               server.NewAuthenticator([]byte(testSecret), testIssuer, logger),
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
		Gatherer:           registry,
		Log:                logger,
	})
	require.NoError(err)
	s := httptest.NewServer(handler)
	t.Cleanup(func() {
		s.Close()
		_ = a.Close()
	})
	return s.URL, a
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"keygen", "token", "get-value", "push", "poll", "events", "rollup", "relay", "encode"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestUnknownScheme(t *testing.T) {
	_, err := execute(t, "", "keygen", "--scheme", "rsa")
	require.Error(t, err)
}

func TestKeygenDerivesAddress(t *testing.T) {
	require := require.New(t)

	out, err := execute(t, "", "keygen", "--scheme", signer.EthereumScheme,
		"--key", "0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(err)

	var keygen keygenOutput
	require.NoError(json.Unmarshal([]byte(out), &keygen))
	require.Equal(signer.EthereumScheme, keygen.Scheme)
	require.Equal("7e5f4552091a69125d5dfcb7b8c2659029395bdf", keygen.Address.Hex())
}

func TestTokenRequiresSecret(t *testing.T) {
	_, err := execute(t, "", "token", "--account", deployer.String())
	require.ErrorIs(t, err, errMissingSecret)
}

func TestPushAndPoll(t *testing.T) {
	require := require.New(t)
	scheme, err := signer.SchemeByName(signer.AvalancheScheme)
	require.NoError(err)
	uri, _ := newTestAnchord(t, scheme)

	token, err := execute(t, "", "token", "--secret", testSecret, "--account", deployer.String())
	require.NoError(err)
	token = strings.TrimSpace(token)

	_, err = execute(t, "", "push", "0x01", "--uri", uri)
	require.Error(err)

	for _, payload := range []string{"0x01", "0x02"} {
		_, err = execute(t, "", "push", payload, "--uri", uri, "--token", token)
		require.NoError(err)
	}

	out, err := execute(t, "", "poll", "--uri", uri)
	require.NoError(err)
	var messages []messageOutput
	require.NoError(json.Unmarshal([]byte(out), &messages))
	require.Len(messages, 2)
	require.Equal("0x02", messages[1].Data)

	out, err = execute(t, "", "events", "--uri", uri, "--limit", "1")
	require.NoError(err)
	var events []server.Event
	require.NoError(json.Unmarshal([]byte(out), &events))
	require.Len(events, 1)
}

func TestRollupFromStdin(t *testing.T) {
	require := require.New(t)
	scheme, err := signer.SchemeByName(signer.AvalancheScheme)
	require.NoError(err)
	uri, a := newTestAnchord(t, scheme)

	token, err := server.IssueToken([]byte(testSecret), testIssuer, deployer, time.Hour)
	require.NoError(err)

	transition := `{"conditions":[{"key":"0x6b","value":null}],"updates":[{"key":"0x6b","value":"0x01"}],"actions":[]}`
	_, err = execute(t, transition, "rollup", "--uri", uri, "--token", token)
	require.NoError(err)

	value, err := a.GetValue([]byte("k"))
	require.NoError(err)
	require.Equal([]byte{1}, value.Value())

	out, err := execute(t, "", "get-value", "0x6b", "--uri", uri)
	require.NoError(err)
	var got valueOutput
	require.NoError(json.Unmarshal([]byte(out), &got))
	require.NotNil(got.Value)
	require.Equal("0x01", *got.Value)
}

func TestRelay(t *testing.T) {
	require := require.New(t)
	scheme, err := signer.SchemeByName(signer.EthereumScheme)
	require.NoError(err)
	uri, a := newTestAnchord(t, scheme)

	key, err := signer.GenerateKey()
	require.NoError(err)
	encoded, err := signer.EncodePrivateKey(key)
	require.NoError(err)
	_, err = a.GrantRole(context.Background(), deployer, anchor.AttestorRole, signer.Address(scheme, key))
	require.NoError(err)

	transition := `{"conditions":[],"updates":[{"key":"0x6b","value":"0x02"}],"actions":[]}`
	_, err = execute(t, transition, "relay", "--uri", uri, "--scheme", signer.EthereumScheme, "--key", encoded)
	require.NoError(err)

	value, err := a.GetValue([]byte("k"))
	require.NoError(err)
	require.Equal([]byte{2}, value.Value())
}

func TestEncode(t *testing.T) {
	require := require.New(t)

	transition := `{"conditions":[],"updates":[],"actions":[{"type":"SetQueueHead","index":"5"}]}`
	out, err := execute(t, transition, "encode")
	require.NoError(err)

	var encoded encodeOutput
	require.NoError(json.Unmarshal([]byte(out), &encoded))
	data, err := server.DecodeBytes(encoded.Data)
	require.NoError(err)
	decoded, err := anchor.ParseTransition(data)
	require.NoError(err)
	require.Equal([]anchor.Action{anchor.SetQueueHead(5)}, decoded.Actions)
}
