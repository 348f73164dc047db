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

// Package ui renders the event bus's indexing-progress and status events
// to a terminal: a progress bar while a run is in flight, and
// color-coded info/success/warning/error lines for ShowInfo/ShowSuccess/
// ShowWarning/ShowError. When stdout is not a terminal (piped output, CI
// logs), the progress bar is suppressed and color codes are stripped,
// matching the teacher's --metrics-addr-style "degrade gracefully
// outside a TTY" posture.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/codeintel/internal/events"
)

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Reporter subscribes to an event bus and renders IndexingStarted/
// Progress/Complete/Failed and ShowInfo/Success/Warning/Error events.
type Reporter struct {
	out         io.Writer
	interactive bool
	token       int

	bar                     *progressbar.ProgressBar
	infoC, okC, warnC, errC *color.Color
}

// NewReporter attaches a Reporter to bus, writing to out. interactive
// controls whether a progress bar is drawn and output is colorized; pass
// ui.IsTerminal(os.Stdout) from the caller.
func NewReporter(bus *events.Bus, out io.Writer, interactive bool) *Reporter {
	r := &Reporter{
		out:         out,
		interactive: interactive,
		infoC:       color.New(color.FgCyan),
		okC:         color.New(color.FgGreen, color.Bold),
		warnC:       color.New(color.FgYellow),
		errC:        color.New(color.FgRed, color.Bold),
	}
	color.NoColor = !interactive
	if bus != nil {
		r.token = bus.Subscribe(r.handle)
	}
	return r
}

// Close unsubscribes the Reporter and finishes any open progress bar.
func (r *Reporter) Close(bus *events.Bus) {
	if bus != nil {
		bus.Unsubscribe(r.token)
	}
	r.finishBar()
}

func (r *Reporter) handle(e events.Event) {
	switch e.Kind {
	case events.KindIndexingStarted:
		p := e.Payload.(events.IndexingStarted)
		r.infoC.Fprintf(r.out, "Indexing %d file(s)...\n", p.FileCount)
		r.bar = r.newBar(int64(p.FileCount), "indexing")
	case events.KindIndexingProgress:
		p := e.Payload.(events.IndexingProgress)
		if r.bar != nil {
			_ = r.bar.Set64(int64(p.Current))
		}
	case events.KindIndexingComplete:
		p := e.Payload.(events.IndexingComplete)
		r.finishBar()
		r.okC.Fprintf(r.out, "Indexing complete in %dms\n", p.DurationMS)
	case events.KindIndexingFailed:
		p := e.Payload.(events.IndexingFailed)
		r.finishBar()
		r.errC.Fprintf(r.out, "Indexing failed: %v\n", p.Err)
	case events.KindShowInfo:
		r.infoC.Fprintln(r.out, messageText(e.Payload))
	case events.KindShowSuccess:
		r.okC.Fprintln(r.out, messageText(e.Payload))
	case events.KindShowWarning:
		r.warnC.Fprintln(r.out, messageText(e.Payload))
	case events.KindShowError:
		r.errC.Fprintln(r.out, messageText(e.Payload))
	}
}

func messageText(payload any) string {
	if m, ok := payload.(events.ShowMessage); ok {
		return m.Message
	}
	return fmt.Sprintf("%v", payload)
}

// newBar builds a progress bar sized to total, writing to r.out when
// interactive or discarding output entirely otherwise -- a non-tty run
// (piped logs, CI) gets the same Progress events without bar animation
// noise cluttering the log.
func (r *Reporter) newBar(total int64, description string) *progressbar.ProgressBar {
	writer := r.out
	if !r.interactive {
		writer = io.Discard
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100),
	)
}

func (r *Reporter) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
}
