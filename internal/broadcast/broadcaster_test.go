// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sessionguard/internal/eventlog"
)

type signalEvent struct {
	ch    Channel
	value int64
}

func collect(dst *[]signalEvent) Handler {
	return func(ch Channel, value int64) {
		*dst = append(*dst, signalEvent{ch, value})
	}
}

// failingStore rejects every operation.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(string) (string, bool, error) { return "", false, errStoreDown }
func (failingStore) Set(string, string) error { return errStoreDown }
func (failingStore) Close() error { return nil }

func (failingStore) Subscribe(func(string, string)) (func(), error) {
	return nil, errStoreDown
}

func TestReconciler_Accept(t *testing.T) {
	r := NewReconciler()

	assert.True(t, r.Accept(ChannelKeepAlive, 100))
	assert.False(t, r.Accept(ChannelKeepAlive, 100), "duplicate")
	assert.False(t, r.Accept(ChannelKeepAlive, 50), "stale")
	assert.True(t, r.Accept(ChannelKeepAlive, 101))

	// Channels are independent.
	assert.True(t, r.Accept(ChannelLogout, 1))

	last, ok := r.Last(ChannelKeepAlive)
	require.True(t, ok)
	assert.Equal(t, int64(101), last)

	_, ok = r.Last(ChannelWarning)
	assert.False(t, ok)
}

func TestReconciler_ObserveNeverLowers(t *testing.T) {
	r := NewReconciler()
	r.Observe(ChannelWarning, 200)
	r.Observe(ChannelWarning, 100)

	last, _ := r.Last(ChannelWarning)
	assert.Equal(t, int64(200), last)
	assert.False(t, r.Accept(ChannelWarning, 150))
	assert.True(t, r.Accept(ChannelWarning, 201))
}

func TestBroadcaster_DeliversFreshSignals(t *testing.T) {
	hub := NewHub()
	sender := NewBroadcaster(hub.Tab(), "a", nil)
	receiver := NewBroadcaster(hub.Tab(), "b", nil)

	var got []signalEvent
	receiver.Listen(collect(&got))
	require.True(t, receiver.Listening())

	assert.True(t, sender.Announce(ChannelKeepAlive, 1000))
	assert.True(t, sender.Announce(ChannelLogout, 2000))

	assert.Equal(t, []signalEvent{
		{ChannelKeepAlive, 1000},
		{ChannelLogout, 2000},
	}, got)
}

func TestBroadcaster_OutOfOrderIsDropped(t *testing.T) {
	hub := NewHub()
	sender := hub.Tab()
	receiver := NewBroadcaster(hub.Tab(), "b", nil)

	var got []signalEvent
	receiver.Listen(collect(&got))

	require.NoError(t, sender.Set(KeyKeepAlive, "2000"))
	require.NoError(t, sender.Set(KeyKeepAlive, "1000"))
	require.NoError(t, sender.Set(KeyKeepAlive, "2000"))

	assert.Equal(t, []signalEvent{{ChannelKeepAlive, 2000}}, got)
}

func TestBroadcaster_OwnAnnouncementEchoIgnored(t *testing.T) {
	hub := NewHub()
	tab := hub.Tab()
	b := NewBroadcaster(tab, "a", nil)

	var got []signalEvent
	b.Listen(collect(&got))
	b.Announce(ChannelWarning, 500)

	// Simulate a medium that echoes the write back to the writer.
	b.receive(KeyWarning, "500", collect(&got))
	assert.Empty(t, got)
}

func TestBroadcaster_ListenSeedsFromStore(t *testing.T) {
	hub := NewHub()
	sender := hub.Tab()
	require.NoError(t, sender.Set(KeyLogout, "300"))

	receiver := NewBroadcaster(hub.Tab(), "b", nil)
	var got []signalEvent
	receiver.Listen(collect(&got))

	// A replay of the value that predates Listen is not fresh.
	require.NoError(t, sender.Set(KeyLogout, "300"))
	assert.Empty(t, got)

	require.NoError(t, sender.Set(KeyLogout, "301"))
	assert.Equal(t, []signalEvent{{ChannelLogout, 301}}, got)
}

func TestBroadcaster_MalformedAndForeignKeysIgnored(t *testing.T) {
	hub := NewHub()
	sender := hub.Tab()
	receiver := NewBroadcaster(hub.Tab(), "b", nil)

	var got []signalEvent
	receiver.Listen(collect(&got))

	require.NoError(t, sender.Set(KeyKeepAlive, "not-a-number"))
	require.NoError(t, sender.Set("unrelated.key", "10"))
	assert.Empty(t, got)
}

func TestBroadcaster_StopReleasesSubscription(t *testing.T) {
	hub := NewHub()
	sender := hub.Tab()
	receiver := NewBroadcaster(hub.Tab(), "b", nil)

	var got []signalEvent
	receiver.Listen(collect(&got))
	receiver.Stop()
	receiver.Stop()
	assert.False(t, receiver.Listening())

	require.NoError(t, sender.Set(KeyKeepAlive, "10"))
	assert.Empty(t, got)
}

func TestBroadcaster_StoreFailuresAreSwallowed(t *testing.T) {
	var buf bytes.Buffer
	logger := eventlog.New(&buf, eventlog.LevelError)
	b := NewBroadcaster(failingStore{}, "tab-1", logger)

	assert.NotPanics(t, func() {
		assert.False(t, b.Announce(ChannelLogout, 1))
		b.Listen(func(Channel, int64) {})
	})
	assert.False(t, b.Listening())
	assert.Contains(t, buf.String(), "STORE_WRITE_FAILED")
	assert.Contains(t, buf.String(), "STORE_SUBSCRIBE_FAILED")
	assert.Contains(t, buf.String(), "session=tab-1")
}

func TestBroadcaster_NilStore(t *testing.T) {
	b := NewBroadcaster(nil, "solo", nil)
	assert.False(t, b.Announce(ChannelKeepAlive, 1))
	b.Listen(func(Channel, int64) {})
	assert.False(t, b.Listening())

	// Announce still records the value locally.
	last, ok := b.Reconciler().Last(ChannelKeepAlive)
	require.True(t, ok)
	assert.Equal(t, int64(1), last)
}
