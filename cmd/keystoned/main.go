// Command keystoned runs the cache engine as a standalone TCP server.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/agilira/keystone"
	"github.com/agilira/keystone/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "keystoned:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := keystone.DefaultConfig()
	cfg.Logger = keystone.NewSlogLogger(nil)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	mgr, err := keystone.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr.Start(ctx)
	defer mgr.Stop()

	addr := net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	cfg.Logger.Info("keystoned listening", "addr", addr, "shards", cfg.NumShards)

	connCfg := wire.ConnConfig{
		MaxFrameBytes: cfg.MaxFrameBytes,
		IdleTimeout:   time.Duration(cfg.Connection.TimeoutSeconds) * time.Second,
		Logger:        cfg.Logger,
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				cfg.Logger.Error("accept failed", "error", err)
				continue
			}
		}
		go func() {
			defer conn.Close()
			wire.ServeConn(ctx, conn, mgr, connCfg)
		}()
	}
}

// applyEnvOverrides reads a handful of KEYSTONE_* environment variables so
// the binary is runnable without a companion config-file loader, which is
// out of scope for the core engine.
func applyEnvOverrides(cfg *keystone.Config) {
	if v := os.Getenv("KEYSTONE_BIND_ADDR"); v != "" {
		cfg.BindAddr = v
	}
	if v := os.Getenv("KEYSTONE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("KEYSTONE_NUM_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NumShards = n
		}
	}
	if v := os.Getenv("KEYSTONE_WAL_DIR"); v != "" {
		cfg.WAL.Enabled = true
		cfg.WAL.Dir = v
	}
}
