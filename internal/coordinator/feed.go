// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import "context"

// ActivityFeed forwards input event kinds from events to c.Activity until
// ctx is done or events is closed. It returns the number of events read.
func ActivityFeed(ctx context.Context, c *Coordinator, events <-chan string) int {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n
		case kind, ok := <-events:
			if !ok {
				return n
			}
			n++
			c.Activity(ctx, kind)
		}
	}
}
