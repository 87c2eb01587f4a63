// Copyright 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Spinner shows progress on a terminal while a fetch or audit is in flight.
type Spinner struct {
	out       io.Writer
	frames    []string
	current   int
	done      chan struct{}
	stopped   chan struct{}
	mu        sync.Mutex
	isRunning bool
	animate   bool
}

func NewSpinner() *Spinner {
	return NewSpinnerTo(os.Stderr)
}

// NewSpinnerTo draws frames on w.
func NewSpinnerTo(w io.Writer) *Spinner {
	return &Spinner{
		out:     w,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		animate: interactive(w),
	}
}

// interactive reports whether frames should be redrawn on w. Files that are
// not terminals (pipes, redirects) only get the start and stop lines.
func interactive(w io.Writer) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	done, stopped := s.done, s.stopped
	s.mu.Unlock()

	if !s.animate {
		fmt.Fprintf(s.out, "%s...\n", message)
		close(stopped)
		return
	}

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s %s", s.frames[s.current], message)
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			}
		}
	}()
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	done, stopped := s.done, s.stopped
	s.mu.Unlock()

	close(done)
	<-stopped
}

func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "\r%s %s\n", color.GreenString("✓"), message)
}

func (s *Spinner) StopWithError(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "\r%s %s\n", color.RedString("✗"), message)
}
