// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// anchord serves a rollup anchor over JSON-RPC.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/leveldb"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/anchor"
	"github.com/ava-labs/rollupanchor/config"
	"github.com/ava-labs/rollupanchor/server"
)

const leveldbNamespace = "leveldb"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "anchord: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	v, err := config.BuildViper(config.BuildFlagSet(), args)
	if err != nil {
		return fmt.Errorf("couldn't parse flags: %w", err)
	}
	// Print version and exit
	if v.GetBool(config.VersionKey) {
		fmt.Printf("%s@%s\n", anchor.Name, anchor.Version)
		return nil
	}
	cfg, err := config.GetConfig(v)
	if err != nil {
		return fmt.Errorf("couldn't get config: %w", err)
	}

	logger := log.New("app", "anchord")
	logger.SetHandler(cfg.LogHandler())

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	db, err := openDatabase(cfg, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "err", err)
		}
	}()

	a, err := anchor.New(db, anchor.Config{
		ID:           cfg.AnchorID,
		Scheme:       cfg.SignatureScheme,
		RestrictPush: cfg.RestrictPush,
		Log:          logger,
		Registerer:   registry,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap(ctx, a, cfg.GenesisFile, logger); err != nil {
		return err
	}

	handler, err := server.NewHandler(a, server.Config{
		Auth:               server.NewAuthenticator(cfg.AuthSecret, cfg.AuthIssuer, logger),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		Gatherer:           registry,
		Log:                logger,
	})
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(int(cfg.HTTPPort)))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("couldn't listen on %s: %w", addr, err)
	}
	logger.Info("starting anchord",
		"id", cfg.AnchorID,
		"scheme", cfg.SignatureScheme.Name(),
		"db", cfg.DBType,
	)
	return server.New(handler, cfg.ShutdownTimeout, logger).Serve(ctx, listener)
}

// bootstrap applies [genesisFile], if any, and warns when the anchor is left
// uninitialized. An uninitialized anchor rejects every mutating call.
func bootstrap(ctx context.Context, a *anchor.Anchor, genesisFile string, logger log.Logger) error {
	if genesisFile != "" {
		genesis, err := config.LoadGenesis(genesisFile)
		if err != nil {
			return err
		}
		events, err := a.Initialize(ctx, genesis)
		if err != nil {
			return fmt.Errorf("couldn't initialize anchor: %w", err)
		}
		logger.Info("applied genesis", "file", genesisFile, "events", len(events))
	}

	initialized, err := a.IsInitialized()
	if err != nil {
		return err
	}
	if !initialized {
		logger.Warn("anchor is not initialized, mutating calls will fail until a genesis file is applied",
			"flag", config.GenesisFileKey,
		)
	}
	return nil
}

func openDatabase(cfg config.Config, registerer prometheus.Registerer) (database.Database, error) {
	switch cfg.DBType {
	case config.MemDB:
		return memdb.New(), nil
	case config.LevelDB:
		db, err := leveldb.New(cfg.DBDir, nil, logging.NoLog{}, leveldbNamespace, registerer)
		if err != nil {
			return nil, fmt.Errorf("couldn't open leveldb at %s: %w", cfg.DBDir, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.DBType)
	}
}
