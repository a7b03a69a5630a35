// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type safeRecorder struct {
	mu  sync.Mutex
	got []recorded
}

func (r *safeRecorder) record(key, value string) {
	r.mu.Lock()
	r.got = append(r.got, recorded{key, value})
	r.mu.Unlock()
}

func (r *safeRecorder) snapshot() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.got...)
}

func (r *safeRecorder) has(want recorded) func() bool {
	return func() bool {
		for _, g := range r.snapshot() {
			if g == want {
				return true
			}
		}
		return false
	}
}

func newFileStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	fs, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestFileStore_GetMissingKey(t *testing.T) {
	fs := newFileStore(t, t.TempDir())

	v, ok, err := fs.Get(KeyKeepAlive)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestFileStore_SetThenGet(t *testing.T) {
	dir := t.TempDir()
	fs := newFileStore(t, dir)

	require.NoError(t, fs.Set(KeyLogout, "1700000000000"))

	v, ok, err := fs.Get(KeyLogout)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1700000000000", v)

	raw, err := os.ReadFile(filepath.Join(dir, KeyLogout))
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", string(raw))
}

func TestFileStore_DeliversToOtherInstance(t *testing.T) {
	dir := t.TempDir()
	a := newFileStore(t, dir)
	b := newFileStore(t, dir)

	var gotA, gotB safeRecorder
	_, err := a.Subscribe(gotA.record)
	require.NoError(t, err)
	_, err = b.Subscribe(gotB.record)
	require.NoError(t, err)

	require.NoError(t, a.Set(KeyKeepAlive, "100"))

	require.Eventually(t, gotB.has(recorded{KeyKeepAlive, "100"}), 2*time.Second, 10*time.Millisecond)

	// Give the writer's watcher time to see its own write.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, gotA.snapshot(), "writer must not hear its own write")
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	fs := newFileStore(t, dir)

	var got safeRecorder
	_, err := fs.Subscribe(got.record)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad name"), []byte("1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyWarning), []byte("77"), 0o600))

	require.Eventually(t, got.has(recorded{KeyWarning, "77"}), 2*time.Second, 10*time.Millisecond)
	for _, r := range got.snapshot() {
		assert.Equal(t, KeyWarning, r.key)
	}
}

func TestFileStore_Close(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, fs.Close())
	require.NoError(t, fs.Close())

	assert.ErrorIs(t, fs.Set(KeyKeepAlive, "1"), ErrClosed)
	_, _, err = fs.Get(KeyKeepAlive)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = fs.Subscribe(func(string, string) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore("", nil)
	assert.Error(t, err)
}

func TestFileStore_WithBroadcaster(t *testing.T) {
	dir := t.TempDir()
	sender := NewBroadcaster(newFileStore(t, dir), "a", nil)
	receiver := NewBroadcaster(newFileStore(t, dir), "b", nil)

	var mu sync.Mutex
	var got []signalEvent
	receiver.Listen(func(ch Channel, v int64) {
		mu.Lock()
		got = append(got, signalEvent{ch, v})
		mu.Unlock()
	})

	require.True(t, sender.Announce(ChannelLogout, 4242))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == signalEvent{ChannelLogout, 4242}
	}, 2*time.Second, 10*time.Millisecond)
}
