package streamclient

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Spinner is a terminal progress indicator shown between sending a question
// and the first rendered output. Stop is idempotent: the first call clears
// the indicator, later calls are no-ops.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: 120 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// Start begins animating until Stop is called.
func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		frame := 0
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], s.message)
				frame++
			}
		}
	}()
}

// Stop halts the animation and clears the line. Safe to call any number of
// times from any goroutine.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		fmt.Fprintf(s.w, "\r%s\r", spaces(len(s.message)+2))
	})
}

// UpdateMessage replaces the progress note, as carried by status envelopes.
func (s *Spinner) UpdateMessage(message string) {
	s.message = message
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
