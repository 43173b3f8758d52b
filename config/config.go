// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config parses the anchord configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/spf13/viper"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/signer"
)

const (
	MemDB   = "memdb"
	LevelDB = "leveldb"

	TerminalFormat = "terminal"
	JSONFormat     = "json"
)

var (
	errUnknownDBType    = errors.New("unknown database type")
	errUnknownLogFormat = errors.New("unknown log format")
	errInvalidPort      = errors.New("invalid http port")
	errInvalidRateLimit = errors.New("invalid rate limit")
	errMissingAuth      = errors.New("missing auth secret")
)

type Config struct {
	HTTPHost string
	HTTPPort uint16

	DBType string
	DBDir  string

	AnchorID        ids.ShortID
	SignatureScheme signer.Scheme
	RestrictPush    bool

	AuthSecret []byte
	AuthIssuer string

	RateLimitPerSecond int
	RateLimitBurst     int

	LogLevel  log.Lvl
	LogFormat string

	GenesisFile     string
	ShutdownTimeout time.Duration
}

// AnchorID derives the anchor's identity from its configured name.
func AnchorID(name string) ids.ShortID {
	return ids.ShortID(hashing.ComputeHash160Array([]byte(name)))
}

// GetConfig validates the values held by [v].
func GetConfig(v *viper.Viper) (Config, error) {
	config := Config{
		HTTPHost:           v.GetString(HTTPHostKey),
		DBType:             v.GetString(DBTypeKey),
		DBDir:              v.GetString(DBDirKey),
		AnchorID:           AnchorID(v.GetString(AnchorNameKey)),
		RestrictPush:       v.GetBool(RestrictPushKey),
		AuthSecret:         []byte(v.GetString(AuthSecretKey)),
		AuthIssuer:         v.GetString(AuthIssuerKey),
		RateLimitPerSecond: v.GetInt(RateLimitPerSecondKey),
		RateLimitBurst:     v.GetInt(RateLimitBurstKey),
		LogFormat:          v.GetString(LogFormatKey),
		GenesisFile:        v.GetString(GenesisFileKey),
		ShutdownTimeout:    v.GetDuration(ShutdownTimeoutKey),
	}

	port := v.GetUint(HTTPPortKey)
	if port == 0 || port > 65535 {
		return Config{}, fmt.Errorf("%w: %d", errInvalidPort, port)
	}
	config.HTTPPort = uint16(port)

	switch config.DBType {
	case MemDB, LevelDB:
	default:
		return Config{}, fmt.Errorf("%w %q", errUnknownDBType, config.DBType)
	}

	scheme, err := signer.SchemeByName(v.GetString(SignatureSchemeKey))
	if err != nil {
		return Config{}, err
	}
	config.SignatureScheme = scheme

	if len(config.AuthSecret) == 0 {
		return Config{}, errMissingAuth
	}

	if config.RateLimitPerSecond <= 0 || config.RateLimitBurst < 0 {
		return Config{}, fmt.Errorf("%w: %d/s burst %d", errInvalidRateLimit, config.RateLimitPerSecond, config.RateLimitBurst)
	}

	config.LogLevel, err = log.LvlFromString(v.GetString(LogLevelKey))
	if err != nil {
		return Config{}, err
	}
	switch config.LogFormat {
	case TerminalFormat, JSONFormat:
	default:
		return Config{}, fmt.Errorf("%w %q", errUnknownLogFormat, config.LogFormat)
	}
	return config, nil
}

// LogHandler returns the log15 handler described by [c].
func (c Config) LogHandler() log.Handler {
	format := log.TerminalFormat()
	if c.LogFormat == JSONFormat {
		format = log.JsonFormat()
	}
	return log.LvlFilterHandler(c.LogLevel, log.StreamHandler(os.Stderr, format))
}
