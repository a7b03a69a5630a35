// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/sessionguard/internal/eventlog"
	"github.com/jeranaias/sessionguard/internal/util"
)

const (
	signalFilePerm = 0o600
	signalDirPerm  = 0o700
)

// FileStore keeps one file per key in a directory shared by every instance
// on the host. Changes made by other processes arrive through fsnotify.
type FileStore struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  *eventlog.Logger
	subs    subscribers

	mu      sync.Mutex
	written map[string]string // this instance's last write per key
	seen    map[string]string // last value delivered per key
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFileStore opens (creating if needed) the signal directory and starts
// watching it.
func NewFileStore(dir string, logger *eventlog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("signal directory is required")
	}
	if err := os.MkdirAll(dir, signalDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create signal directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	fs := &FileStore{
		dir:     dir,
		watcher: watcher,
		logger:  logger,
		written: make(map[string]string),
		seen:    make(map[string]string),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go fs.processEvents()
	return fs, nil
}

// Dir returns the watched directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Get implements Store.
func (fs *FileStore) Get(key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}
	if fs.isClosed() {
		return "", false, ErrClosed
	}

	// #nosec G304 -- key is validated against keyPattern
	data, err := os.ReadFile(filepath.Join(fs.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

// Set implements Store. The value is written atomically so readers never
// observe a partial file.
func (fs *FileStore) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return ErrClosed
	}
	fs.written[key] = value
	fs.mu.Unlock()

	if err := util.AtomicWriteFile(filepath.Join(fs.dir, key), []byte(value), signalFilePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Subscribe implements Store.
func (fs *FileStore) Subscribe(fn func(key, value string)) (func(), error) {
	if fs.isClosed() {
		return nil, ErrClosed
	}
	return fs.subs.add(fn), nil
}

// Close stops the watcher and waits for the event loop to exit.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	fs.mu.Unlock()

	fs.cancel()
	err := fs.watcher.Close()
	<-fs.done
	fs.subs.clear()
	return err
}

func (fs *FileStore) isClosed() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.closed
}

// =============================================================================
// EVENT LOOP
// =============================================================================

func (fs *FileStore) processEvents() {
	defer close(fs.done)
	defer func() {
		if r := recover(); r != nil {
			fs.logger.Error("STORE_WATCH_PANIC", "-", fmt.Errorf("%v", r))
		}
	}()

	for {
		select {
		case <-fs.ctx.Done():
			return

		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				fs.handleChange(event.Name)
			}

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			fs.logger.Error("STORE_WATCH_ERROR", "-", err)
		}
	}
}

func (fs *FileStore) handleChange(path string) {
	key := filepath.Base(path)
	// Temp files from atomic writes start with a dot.
	if strings.HasPrefix(key, ".") || ValidateKey(key) != nil {
		return
	}

	// #nosec G304 -- key is validated against keyPattern
	data, err := os.ReadFile(filepath.Join(fs.dir, key))
	if err != nil {
		// The file can be replaced between the event and the read.
		return
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return
	}

	fs.mu.Lock()
	if fs.closed || fs.written[key] == value || fs.seen[key] == value {
		fs.mu.Unlock()
		return
	}
	fs.seen[key] = value
	fs.mu.Unlock()

	fs.subs.notify(key, value)
}
