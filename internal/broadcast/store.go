// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"errors"
	"regexp"
	"sort"
	"sync"
)

// Store is a shared key/value medium with change notification.
//
// Set must notify the subscribers of every other Store attached to the same
// medium and must not notify the writer's own subscribers.
type Store interface {
	// Get returns the current value of key and whether it exists.
	Get(key string) (string, bool, error)

	// Set writes value under key.
	Set(key, value string) error

	// Subscribe registers fn for changes written by other instances.
	// The returned cancel func is safe to call more than once.
	Subscribe(fn func(key, value string)) (cancel func(), err error)

	// Close releases the store's resources.
	Close() error
}

// Store errors.
var (
	ErrClosed     = errors.New("store closed")
	ErrInvalidKey = errors.New("invalid store key")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ValidateKey rejects keys that are unsafe as file names or table keys.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// subscribers is the fan-out list shared by the store implementations.
type subscribers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(key, value string)
}

func (s *subscribers) add(fn func(key, value string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func(key, value string))
	}
	s.nextID++
	id := s.nextID
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

// notify calls every subscriber with no lock held, in registration order.
func (s *subscribers) notify(key, value string) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(key, value string), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.fns[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(key, value)
	}
}

func (s *subscribers) clear() {
	s.mu.Lock()
	s.fns = nil
	s.mu.Unlock()
}
