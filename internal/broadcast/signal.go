// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Channel names one of the cross-view facts.
type Channel string

const (
	ChannelKeepAlive Channel = "keepalive"
	ChannelLogout    Channel = "logout"
	ChannelWarning   Channel = "warning"
)

// Store keys. These are shared by every instance and must not change.
const (
	KeyKeepAlive = "sessionguard.keepalive_at"
	KeyLogout    = "sessionguard.logout_at"
	KeyWarning   = "sessionguard.warning_expires_at"
)

// Channels lists every channel in a stable order.
var Channels = []Channel{ChannelKeepAlive, ChannelLogout, ChannelWarning}

// ErrUnknownChannel is returned when parsing an unrecognised channel name.
var ErrUnknownChannel = errors.New("unknown channel")

// Key returns the store key for the channel.
func (c Channel) Key() string {
	switch c {
	case ChannelKeepAlive:
		return KeyKeepAlive
	case ChannelLogout:
		return KeyLogout
	case ChannelWarning:
		return KeyWarning
	default:
		return ""
	}
}

// ChannelForKey maps a store key back to its channel.
func ChannelForKey(key string) (Channel, bool) {
	for _, c := range Channels {
		if c.Key() == key {
			return c, true
		}
	}
	return "", false
}

// ParseChannel accepts a channel name such as "keepalive" or "logout".
func ParseChannel(s string) (Channel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "")
	for _, c := range Channels {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// Encode renders epoch milliseconds in the wire format.
func Encode(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

// Decode parses a wire value into epoch milliseconds.
func Decode(value string) (int64, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed signal value %q: %w", value, err)
	}
	return ms, nil
}
