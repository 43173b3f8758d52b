// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"gopkg.in/yaml.v3"

	"github.com/ava-labs/rollupanchor/anchor"
)

var errMissingDeployer = errors.New("genesis is missing a deployer")

// Genesis is the YAML form of anchor.Genesis. Accounts are cb58 encoded and
// keys and values are 0x prefixed hex.
//
//	deployer: <cb58 account>
//	attestors:
//	  - <cb58 account>
//	values:
//	  - key: 0x76657273696f6e
//	    value: 0x00
type Genesis struct {
	Deployer  string         `yaml:"deployer"`
	Admins    []string       `yaml:"admins"`
	Attestors []string       `yaml:"attestors"`
	Values    []GenesisValue `yaml:"values"`
}

type GenesisValue struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// LoadGenesis reads and parses the genesis file at [path].
func LoadGenesis(path string) (*anchor.Genesis, error) {
	genesisBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis: %w", err)
	}
	return ParseGenesis(genesisBytes)
}

func ParseGenesis(b []byte) (*anchor.Genesis, error) {
	raw := Genesis{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse genesis: %w", err)
	}
	if raw.Deployer == "" {
		return nil, errMissingDeployer
	}

	genesis := &anchor.Genesis{}
	var err error
	if genesis.Deployer, err = ids.ShortFromString(raw.Deployer); err != nil {
		return nil, fmt.Errorf("invalid deployer: %w", err)
	}
	if genesis.Admins, err = parseAccounts(raw.Admins); err != nil {
		return nil, fmt.Errorf("invalid admin: %w", err)
	}
	if genesis.Attestors, err = parseAccounts(raw.Attestors); err != nil {
		return nil, fmt.Errorf("invalid attestor: %w", err)
	}
	for _, value := range raw.Values {
		key, err := formatting.Decode(formatting.HexNC, value.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis key %q: %w", value.Key, err)
		}
		val, err := formatting.Decode(formatting.HexNC, value.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis value for %q: %w", value.Key, err)
		}
		genesis.Values = append(genesis.Values, anchor.KeyValue{Key: key, Value: val})
	}
	return genesis, nil
}

func parseAccounts(accounts []string) ([]ids.ShortID, error) {
	parsed := make([]ids.ShortID, 0, len(accounts))
	for _, account := range accounts {
		id, err := ids.ShortFromString(account)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", account, err)
		}
		parsed = append(parsed, id)
	}
	return parsed, nil
}
