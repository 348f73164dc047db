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

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	var seen []Kind

	b.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Kind)
	})
	b.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Kind)
	})

	b.Publish(Event{Kind: KindIndexingStarted, Payload: IndexingStarted{FileCount: 3}})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Kind{KindIndexingStarted, KindIndexingStarted}, seen)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	count := 0
	token := b.Subscribe(func(e Event) { count++ })

	b.Publish(Event{Kind: KindShowInfo})
	b.Unsubscribe(token)
	b.Publish(Event{Kind: KindShowInfo})

	assert.Equal(t, 1, count)
}

func TestBusConcurrentPublish(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	total := 0
	b.Subscribe(func(e Event) {
		mu.Lock()
		total++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(Event{Kind: KindIndexingProgress})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, total)
}
