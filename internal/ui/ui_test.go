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

package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codeintel/internal/events"
)

func TestReporterRendersIndexingLifecycle(t *testing.T) {
	bus := events.NewBus()
	var buf bytes.Buffer
	r := NewReporter(bus, &buf, false)
	defer r.Close(bus)

	bus.Publish(events.Event{Kind: events.KindIndexingStarted, Payload: events.IndexingStarted{FileCount: 12}})
	bus.Publish(events.Event{Kind: events.KindIndexingProgress, Payload: events.IndexingProgress{Current: 6, Total: 12}})
	bus.Publish(events.Event{Kind: events.KindIndexingComplete, Payload: events.IndexingComplete{DurationMS: 450}})

	out := buf.String()
	assert.Contains(t, out, "Indexing 12 file(s)")
	assert.Contains(t, out, "Indexing complete in 450ms")
	assert.Nil(t, r.bar, "bar should be cleared after completion")
}

func TestReporterRendersIndexingFailure(t *testing.T) {
	bus := events.NewBus()
	var buf bytes.Buffer
	r := NewReporter(bus, &buf, false)
	defer r.Close(bus)

	bus.Publish(events.Event{Kind: events.KindIndexingStarted, Payload: events.IndexingStarted{FileCount: 3}})
	bus.Publish(events.Event{Kind: events.KindIndexingFailed, Payload: events.IndexingFailed{Err: errors.New("disk full")}})

	assert.Contains(t, buf.String(), "Indexing failed: disk full")
	assert.Nil(t, r.bar)
}

func TestReporterRendersStatusMessages(t *testing.T) {
	bus := events.NewBus()
	var buf bytes.Buffer
	NewReporter(bus, &buf, false)

	bus.Publish(events.Event{Kind: events.KindShowInfo, Payload: events.ShowMessage{Message: "scanning workspace"}})
	bus.Publish(events.Event{Kind: events.KindShowSuccess, Payload: events.ShowMessage{Message: "done"}})
	bus.Publish(events.Event{Kind: events.KindShowWarning, Payload: events.ShowMessage{Message: "skipped 2 files"}})
	bus.Publish(events.Event{Kind: events.KindShowError, Payload: events.ShowMessage{Message: "boom"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "scanning workspace", lines[0])
	assert.Equal(t, "done", lines[1])
	assert.Equal(t, "skipped 2 files", lines[2])
	assert.Equal(t, "boom", lines[3])
}

func TestReporterCloseUnsubscribes(t *testing.T) {
	bus := events.NewBus()
	var buf bytes.Buffer
	r := NewReporter(bus, &buf, false)
	r.Close(bus)

	bus.Publish(events.Event{Kind: events.KindShowInfo, Payload: events.ShowMessage{Message: "should not appear"}})
	assert.Empty(t, buf.String())
}

func TestNewReporterWithNilBusNeverPanics(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(nil, &buf, false)
	r.Close(nil)
}
