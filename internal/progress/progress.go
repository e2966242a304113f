// Package progress renders a spinner line for long-running commands.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type ProgressTracker struct {
	w         io.Writer
	total     int
	current   int
	message   string
	unit      string
	mu        sync.Mutex
	startTime time.Time
	done      chan struct{}
	stopped   chan struct{}
}

// NewProgress starts rendering to w. A total of zero shows a running count
// instead of a percentage. unit names what is counted, e.g. "files".
func NewProgress(w io.Writer, total int, message, unit string) *ProgressTracker {
	p := &ProgressTracker{
		w:         w,
		total:     total,
		message:   message,
		unit:      unit,
		startTime: time.Now(),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go p.render()
	return p
}

func (p *ProgressTracker) render() {
	defer close(p.stopped)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	spinner := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frame := 0

	for {
		select {
		case <-p.done:
			p.mu.Lock()
			elapsed := time.Since(p.startTime)
			fmt.Fprintf(p.w, "\r✓ %s (%d %s, %s)          \n",
				p.message, p.current, p.unit, elapsed.Round(time.Millisecond))
			p.mu.Unlock()
			return

		case <-ticker.C:
			p.mu.Lock()
			if p.total > 0 {
				percent := float64(p.current) / float64(p.total) * 100
				fmt.Fprintf(p.w, "\r%s %s [%d/%d] %.0f%%  ",
					spinner[frame%len(spinner)],
					p.message,
					p.current,
					p.total,
					percent)
			} else {
				fmt.Fprintf(p.w, "\r%s %s [%d %s]  ",
					spinner[frame%len(spinner)],
					p.message,
					p.current,
					p.unit)
			}
			p.mu.Unlock()
			frame++
		}
	}
}

func (p *ProgressTracker) Increment() {
	p.mu.Lock()
	p.current++
	p.mu.Unlock()
}

func (p *ProgressTracker) SetCurrent(n int) {
	p.mu.Lock()
	p.current = n
	p.mu.Unlock()
}

// Finish prints the final line and returns once rendering has stopped.
func (p *ProgressTracker) Finish() {
	close(p.done)
	<-p.stopped
}
