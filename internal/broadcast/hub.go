// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import "sync"

// Hub is an in-process medium shared by any number of HubStore views.
// Delivery is synchronous on the writer's goroutine.
type Hub struct {
	mu     sync.Mutex
	values map[string]string
	views  map[*HubStore]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		values: make(map[string]string),
		views:  make(map[*HubStore]struct{}),
	}
}

// Tab attaches a new view to the hub.
func (h *Hub) Tab() *HubStore {
	v := &HubStore{hub: h}
	h.mu.Lock()
	h.views[v] = struct{}{}
	h.mu.Unlock()
	return v
}

// HubStore is one view of a Hub.
type HubStore struct {
	hub  *Hub
	subs subscribers

	mu     sync.Mutex
	closed bool
}

// Get implements Store.
func (v *HubStore) Get(key string) (string, bool, error) {
	if v.isClosed() {
		return "", false, ErrClosed
	}
	v.hub.mu.Lock()
	defer v.hub.mu.Unlock()
	value, ok := v.hub.values[key]
	return value, ok, nil
}

// Set implements Store.
func (v *HubStore) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if v.isClosed() {
		return ErrClosed
	}

	v.hub.mu.Lock()
	v.hub.values[key] = value
	others := make([]*HubStore, 0, len(v.hub.views))
	for view := range v.hub.views {
		if view != v {
			others = append(others, view)
		}
	}
	v.hub.mu.Unlock()

	for _, view := range others {
		view.subs.notify(key, value)
	}
	return nil
}

// Subscribe implements Store.
func (v *HubStore) Subscribe(fn func(key, value string)) (func(), error) {
	if v.isClosed() {
		return nil, ErrClosed
	}
	return v.subs.add(fn), nil
}

// Close detaches the view from the hub.
func (v *HubStore) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.mu.Unlock()

	v.hub.mu.Lock()
	delete(v.hub.views, v)
	v.hub.mu.Unlock()
	v.subs.clear()
	return nil
}

func (v *HubStore) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
