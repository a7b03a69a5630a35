// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"fmt"
	"sync"

	"github.com/jeranaias/sessionguard/internal/eventlog"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler remembers the newest value processed on each channel.
type Reconciler struct {
	mu   sync.Mutex
	last map[Channel]int64
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{last: make(map[Channel]int64)}
}

// Accept records value and reports true if it is newer than anything seen
// on ch. Stale and duplicate values return false and change nothing.
func (r *Reconciler) Accept(ch Channel, value int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.last[ch]; ok && value <= last {
		return false
	}
	r.last[ch] = value
	return true
}

// Observe raises the high-water mark for ch without reporting freshness.
func (r *Reconciler) Observe(ch Channel, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.last[ch]; !ok || value > last {
		r.last[ch] = value
	}
}

// Last returns the newest value processed on ch.
func (r *Reconciler) Last(ch Channel) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.last[ch]
	return v, ok
}

// =============================================================================
// BROADCASTER
// =============================================================================

// Handler receives fresh signals from other instances.
type Handler func(ch Channel, value int64)

// Broadcaster announces and receives signals over a Store. Every store
// failure is logged and swallowed: a broken store degrades to no sync.
type Broadcaster struct {
	store  Store
	rec    *Reconciler
	logger *eventlog.Logger
	owner  string

	mu     sync.Mutex
	cancel func()
}

// NewBroadcaster wraps store. A nil store yields a broadcaster that does
// nothing, for single-view hosts.
func NewBroadcaster(store Store, owner string, logger *eventlog.Logger) *Broadcaster {
	return &Broadcaster{
		store:  store,
		rec:    NewReconciler(),
		logger: logger,
		owner:  owner,
	}
}

// Reconciler exposes the de-duplication state.
func (b *Broadcaster) Reconciler() *Reconciler {
	return b.rec
}

// Announce publishes value on ch and marks it processed locally so an echo
// is ignored. It reports whether the store accepted the write.
func (b *Broadcaster) Announce(ch Channel, value int64) bool {
	b.rec.Observe(ch, value)
	if b.store == nil {
		return false
	}

	if err := b.store.Set(ch.Key(), Encode(value)); err != nil {
		b.logger.Error("STORE_WRITE_FAILED", b.owner, fmt.Errorf("channel=%s: %w", ch, err))
		return false
	}
	b.logger.Debug("SIGNAL_SENT", b.owner, fmt.Sprintf("channel=%s value=%d", ch, value))
	return true
}

// Listen subscribes to the store and forwards fresh signals to handler.
// Values already present in the store are treated as processed. Calling
// Listen while already listening replaces the previous subscription.
func (b *Broadcaster) Listen(handler Handler) {
	b.Stop()
	if b.store == nil {
		return
	}

	for _, ch := range Channels {
		raw, ok, err := b.store.Get(ch.Key())
		if err != nil {
			b.logger.Error("STORE_READ_FAILED", b.owner, fmt.Errorf("channel=%s: %w", ch, err))
			continue
		}
		if !ok {
			continue
		}
		if v, err := Decode(raw); err == nil {
			b.rec.Observe(ch, v)
		}
	}

	cancel, err := b.store.Subscribe(func(key, value string) {
		b.receive(key, value, handler)
	})
	if err != nil {
		b.logger.Error("STORE_SUBSCRIBE_FAILED", b.owner, err)
		return
	}

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// Stop releases the subscription. Safe to call repeatedly.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Listening reports whether a subscription is held.
func (b *Broadcaster) Listening() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

func (b *Broadcaster) receive(key, value string, handler Handler) {
	ch, ok := ChannelForKey(key)
	if !ok {
		return
	}
	v, err := Decode(value)
	if err != nil {
		b.logger.Debug("SIGNAL_MALFORMED", b.owner, fmt.Sprintf("channel=%s value=%q", ch, value))
		return
	}
	if !b.rec.Accept(ch, v) {
		b.logger.Debug("SIGNAL_IGNORED", b.owner, fmt.Sprintf("channel=%s value=%d reason=stale", ch, v))
		return
	}
	b.logger.Debug("SIGNAL_RECEIVED", b.owner, fmt.Sprintf("channel=%s value=%d", ch, v))
	if handler != nil {
		handler(ch, v)
	}
}
