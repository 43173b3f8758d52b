// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"flag"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/rollupanchor/signer"
)

const (
	EnvPrefix = "anchord"

	VersionKey            = "version"
	ConfigFileKey         = "config-file"
	HTTPHostKey           = "http-host"
	HTTPPortKey           = "http-port"
	DBTypeKey             = "db-type"
	DBDirKey              = "db-dir"
	AnchorNameKey         = "anchor-name"
	SignatureSchemeKey    = "signature-scheme"
	RestrictPushKey       = "restrict-push"
	AuthSecretKey         = "auth-secret"
	AuthIssuerKey         = "auth-issuer"
	RateLimitPerSecondKey = "rate-limit-per-second"
	RateLimitBurstKey     = "rate-limit-burst"
	LogLevelKey           = "log-level"
	LogFormatKey          = "log-format"
	GenesisFileKey        = "genesis-file"
	ShutdownTimeoutKey    = "shutdown-timeout"
)

// BuildFlagSet returns the daemon's flags with their defaults.
func BuildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("anchord", flag.ContinueOnError)

	fs.Bool(VersionKey, false, "If true, print version and quit")
	fs.String(ConfigFileKey, "", "Path to a config file. Keys are the flag names")

	fs.String(HTTPHostKey, "127.0.0.1", "Address of the HTTP server")
	fs.Uint(HTTPPortKey, 9650, "Port of the HTTP server")

	fs.String(DBTypeKey, LevelDB, "Database type, one of [memdb, leveldb]")
	fs.String(DBDirKey, "anchor-db", "Directory of the leveldb database")

	fs.String(AnchorNameKey, "rollupanchor", "Name the anchor identity is derived from")
	fs.String(SignatureSchemeKey, signer.AvalancheScheme, "Meta transaction signature scheme, one of "+strings.Join(signer.SchemeNames(), ", "))
	fs.Bool(RestrictPushKey, false, "If true, only admins may push messages")

	fs.String(AuthSecretKey, "", "HS256 secret used to verify caller tokens")
	fs.String(AuthIssuerKey, "anchord", "Expected issuer of caller tokens")

	fs.Int(RateLimitPerSecondKey, 50, "Requests per second allowed per remote address")
	fs.Int(RateLimitBurstKey, 100, "Burst of requests allowed per remote address")

	fs.String(LogLevelKey, "info", "Log level, one of [debug, info, warn, error, crit]")
	fs.String(LogFormatKey, TerminalFormat, "Log format, one of [terminal, json]")

	fs.String(GenesisFileKey, "", "Path to the YAML genesis file")
	fs.Duration(ShutdownTimeoutKey, 10*time.Second, "Time allowed for in-flight requests on shutdown")

	return fs
}

// BuildViper parses [args] and returns the resulting viper environment.
// Flags take precedence over ANCHORD_ prefixed environment variables, which
// take precedence over the config file.
func BuildViper(fs *flag.FlagSet, args []string) (*viper.Viper, error) {
	pfs := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	pfs.AddGoFlagSet(fs)
	if err := pfs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(pfs); err != nil {
		return nil, err
	}

	if configFile := v.GetString(ConfigFileKey); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}
