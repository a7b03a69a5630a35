// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	key   string
	value string
}

func recordInto(dst *[]recorded) func(key, value string) {
	return func(key, value string) {
		*dst = append(*dst, recorded{key, value})
	}
}

func TestHub_SetNotifiesOtherViewsOnly(t *testing.T) {
	hub := NewHub()
	a, b, c := hub.Tab(), hub.Tab(), hub.Tab()

	var gotA, gotB, gotC []recorded
	_, err := a.Subscribe(recordInto(&gotA))
	require.NoError(t, err)
	_, err = b.Subscribe(recordInto(&gotB))
	require.NoError(t, err)
	_, err = c.Subscribe(recordInto(&gotC))
	require.NoError(t, err)

	require.NoError(t, a.Set(KeyKeepAlive, "100"))

	assert.Empty(t, gotA, "writer must not hear its own write")
	assert.Equal(t, []recorded{{KeyKeepAlive, "100"}}, gotB)
	assert.Equal(t, []recorded{{KeyKeepAlive, "100"}}, gotC)
}

func TestHub_GetSharesValues(t *testing.T) {
	hub := NewHub()
	a, b := hub.Tab(), hub.Tab()

	_, ok, err := b.Get(KeyLogout)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Set(KeyLogout, "42"))
	v, ok, err := b.Get(KeyLogout)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	a, b := hub.Tab(), hub.Tab()

	var got []recorded
	cancel, err := b.Subscribe(recordInto(&got))
	require.NoError(t, err)

	cancel()
	cancel()
	require.NoError(t, a.Set(KeyWarning, "1"))
	assert.Empty(t, got)
}

func TestHub_CloseDetachesView(t *testing.T) {
	hub := NewHub()
	a, b := hub.Tab(), hub.Tab()

	var got []recorded
	_, err := b.Subscribe(recordInto(&got))
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	require.NoError(t, a.Set(KeyKeepAlive, "5"))
	assert.Empty(t, got)

	assert.ErrorIs(t, b.Set(KeyKeepAlive, "6"), ErrClosed)
	_, _, err = b.Get(KeyKeepAlive)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = b.Subscribe(func(string, string) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHub_RejectsInvalidKeys(t *testing.T) {
	v := NewHub().Tab()
	for _, key := range []string{"", "../etc/passwd", "a b", "slash/key"} {
		assert.ErrorIs(t, v.Set(key, "1"), ErrInvalidKey, "key=%q", key)
	}
}

func TestSignal_KeysAndParsing(t *testing.T) {
	for _, ch := range Channels {
		got, ok := ChannelForKey(ch.Key())
		require.True(t, ok)
		assert.Equal(t, ch, got)
		require.NoError(t, ValidateKey(ch.Key()))
	}

	_, ok := ChannelForKey("other")
	assert.False(t, ok)

	ch, err := ParseChannel(" Keep-Alive ")
	require.NoError(t, err)
	assert.Equal(t, ChannelKeepAlive, ch)

	_, err = ParseChannel("nope")
	assert.ErrorIs(t, err, ErrUnknownChannel)

	assert.Equal(t, "", Channel("nope").Key())
}

func TestSignal_EncodeDecode(t *testing.T) {
	assert.Equal(t, "1700000000123", Encode(1700000000123))

	v, err := Decode(" 1700000000123\n")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), v)

	_, err = Decode("soon")
	assert.Error(t, err)
}
