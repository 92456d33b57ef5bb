package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
)

// progressPrinter draws a one-line bar for a redirect fetch. Updates are
// throttled; Done ends the line once.
type progressPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	bar   progress.Model
	last  time.Time
	drawn bool
	done  bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{
		w:   w,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

func (p *progressPrinter) Update(have, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	now := time.Now()
	if p.drawn && now.Sub(p.last) < 200*time.Millisecond && (total <= 0 || have < total) {
		return
	}
	p.last = now
	p.drawn = true
	if total <= 0 {
		fmt.Fprintf(p.w, "\r%s", humanize.Bytes(uint64(have)))
		return
	}
	ratio := float64(have) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	fmt.Fprintf(p.w, "\r%s %s/%s", p.bar.ViewAs(ratio), humanize.Bytes(uint64(have)), humanize.Bytes(uint64(total)))
}

func (p *progressPrinter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn && !p.done {
		fmt.Fprintln(p.w)
	}
	p.done = true
}
