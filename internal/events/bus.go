// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import "sync"

// Subscriber receives every published Event. Implementations must not
// block for long — the bus calls subscribers synchronously on the
// publisher's goroutine, mirroring the teacher's synchronous
// ProgressCallback convention rather than introducing buffered channels
// the workspace indexer would need to size and drain.
type Subscriber func(Event)

// Bus is a minimal in-process pub-sub dispatcher. Safe for concurrent
// Publish from multiple indexing workers; Subscribe/Unsubscribe may be
// called at any time.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]Subscriber
	next int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]Subscriber)}
}

// Subscribe registers fn and returns a token for Unsubscribe.
func (b *Bus) Subscribe(fn Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return id
}

// Unsubscribe removes a previously registered subscriber.
func (b *Bus) Unsubscribe(token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, token)
}

// Publish delivers e to every current subscriber. Subscribers are
// snapshotted under the read lock so a subscriber that unsubscribes
// itself mid-callback cannot deadlock.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]Subscriber, 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}
