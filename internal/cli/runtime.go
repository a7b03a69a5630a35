// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/jeranaias/sessionguard/internal/broadcast"
	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/coordinator"
	"github.com/jeranaias/sessionguard/internal/eventlog"
	"github.com/jeranaias/sessionguard/internal/oracle"
)

// openStore opens the signal store selected by the config.
func openStore(c *config.Config, l *eventlog.Logger) (broadcast.Store, error) {
	switch c.Store.Kind {
	case config.StoreMemory:
		return broadcast.NewHub().Tab(), nil
	case config.StoreFile:
		dir, err := c.StorePath()
		if err != nil {
			return nil, err
		}
		fs, err := broadcast.NewFileStore(dir, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return fs, nil
	case config.StoreSQLite:
		path, err := c.StorePath()
		if err != nil {
			return nil, err
		}
		s, err := broadcast.NewSQLStore(path, c.PollInterval(), l)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
}

// newOracle returns the configured oracle, or nil for pure client mode.
// The return type is the interface so a disabled oracle is a true nil.
func newOracle(c *config.Config) coordinator.Oracle {
	if !c.Oracle.Enabled {
		return nil
	}
	return oracle.NewClientWithConfig(c.OracleClientConfig())
}

// session is a coordinator with the store it owns.
type session struct {
	coord *coordinator.Coordinator
	store broadcast.Store
}

// newSession opens the store and builds a coordinator over it. extra
// options are applied after the wiring, so hosts can add their callbacks.
func newSession(c *config.Config, l *eventlog.Logger, extra ...coordinator.Option) (*session, error) {
	store, err := openStore(c, l)
	if err != nil {
		return nil, err
	}

	opts := []coordinator.Option{
		coordinator.WithStore(store),
		coordinator.WithLogger(l),
	}
	if o := newOracle(c); o != nil {
		opts = append(opts, coordinator.WithOracle(o))
	}
	opts = append(opts, extra...)

	coord, err := coordinator.New(c.CoordinatorConfig(), opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{coord: coord, store: store}, nil
}

// Close stops the coordinator, then closes the store.
func (s *session) Close() error {
	_ = s.coord.Close()
	return s.store.Close()
}
