// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/signer"
)

func getTestConfig(t *testing.T, args ...string) (Config, error) {
	v, err := BuildViper(BuildFlagSet(), args)
	require.NoError(t, err)
	return GetConfig(v)
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)

	config, err := getTestConfig(t, "--auth-secret=secret")
	assert.NoError(err)
	assert.Equal("127.0.0.1", config.HTTPHost)
	assert.Equal(uint16(9650), config.HTTPPort)
	assert.Equal(LevelDB, config.DBType)
	assert.Equal(signer.AvalancheScheme, config.SignatureScheme.Name())
	assert.Equal(AnchorID("rollupanchor"), config.AnchorID)
	assert.Equal(log.LvlInfo, config.LogLevel)
	assert.Equal(10*time.Second, config.ShutdownTimeout)
	assert.False(config.RestrictPush)
	assert.Equal([]byte("secret"), config.AuthSecret)
}

func TestFlagsOverride(t *testing.T) {
	require := require.New(t)

	config, err := getTestConfig(t,
		"--auth-secret=secret",
		"--http-port=1234",
		"--db-type=memdb",
		"--signature-scheme=ethereum",
		"--restrict-push",
		"--log-level=debug",
		"--log-format=json",
		"--anchor-name=game",
	)
	require.NoError(err)
	require.Equal(uint16(1234), config.HTTPPort)
	require.Equal(MemDB, config.DBType)
	require.Equal(signer.EthereumScheme, config.SignatureScheme.Name())
	require.True(config.RestrictPush)
	require.Equal(log.LvlDebug, config.LogLevel)
	require.Equal(JSONFormat, config.LogFormat)
	require.Equal(AnchorID("game"), config.AnchorID)
	require.NotEqual(AnchorID("rollupanchor"), config.AnchorID)
	require.NotNil(config.LogHandler())
}

func TestEnvAndConfigFile(t *testing.T) {
	require := require.New(t)

	configFile := filepath.Join(t.TempDir(), "anchord.json")
	require.NoError(os.WriteFile(configFile, []byte(`{"http-port": 7000, "db-type": "memdb", "auth-secret": "from-file"}`), 0o600))
	t.Setenv("ANCHORD_HTTP_PORT", "8000")

	config, err := getTestConfig(t, "--config-file="+configFile)
	require.NoError(err)
	require.Equal(uint16(8000), config.HTTPPort)
	require.Equal(MemDB, config.DBType)
	require.Equal([]byte("from-file"), config.AuthSecret)

	config, err = getTestConfig(t, "--config-file="+configFile, "--http-port=9000")
	require.NoError(err)
	require.Equal(uint16(9000), config.HTTPPort)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{"missing secret", nil, errMissingAuth},
		{"db type", []string{"--auth-secret=s", "--db-type=rocksdb"}, errUnknownDBType},
		{"port", []string{"--auth-secret=s", "--http-port=70000"}, errInvalidPort},
		{"log format", []string{"--auth-secret=s", "--log-format=xml"}, errUnknownLogFormat},
		{"rate limit", []string{"--auth-secret=s", "--rate-limit-per-second=0"}, errInvalidRateLimit},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := getTestConfig(t, test.args...)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}

	_, err := getTestConfig(t, "--auth-secret=s", "--signature-scheme=bitcoin")
	require.Error(t, err)
	_, err = getTestConfig(t, "--auth-secret=s", "--log-level=loud")
	require.Error(t, err)
}

func TestParseGenesis(t *testing.T) {
	require := require.New(t)
	deployer := ids.ShortID{1}
	attestor := ids.ShortID{2}

	genesis, err := ParseGenesis([]byte(fmt.Sprintf(`
deployer: %s
attestors:
  - %s
values:
  - key: "0x76657273696f6e"
    value: "0x00"
`, deployer, attestor)))
	require.NoError(err)
	require.Equal(deployer, genesis.Deployer)
	require.Empty(genesis.Admins)
	require.Equal([]ids.ShortID{attestor}, genesis.Attestors)
	require.Len(genesis.Values, 1)
	require.Equal([]byte("version"), genesis.Values[0].Key)
	require.Equal([]byte{0x00}, genesis.Values[0].Value)

	_, err = ParseGenesis([]byte("attestors: []"))
	require.ErrorIs(err, errMissingDeployer)

	_, err = ParseGenesis([]byte("deployer: nope"))
	require.Error(err)

	_, err = ParseGenesis([]byte(fmt.Sprintf("deployer: %s\nvalues:\n  - key: zz\n    value: \"0x00\"\n", deployer)))
	require.Error(err)
}

func TestLoadGenesis(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(os.WriteFile(path, []byte("deployer: "+ids.ShortID{7}.String()+"\n"), 0o600))
	genesis, err := LoadGenesis(path)
	require.NoError(err)
	require.Equal(ids.ShortID{7}, genesis.Deployer)

	_, err = LoadGenesis(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(err)
}
