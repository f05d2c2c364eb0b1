package sinks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/logrusorgru/aurora/v4"

	"github.com/JakeFAU/sitecrawler/internal/progress"
)

const barWidth = 30

// BarSink redraws a single-line progress bar for the fetch phase. The total
// is unknown until discovery finishes, so it is set with SetTotal.
type BarSink struct {
	mu       sync.Mutex
	out      io.Writer
	au       *aurora.Aurora
	total    int
	done     int
	failed   int
	rendered bool
}

// NewBarSink draws on out. A nil au disables colours.
func NewBarSink(out io.Writer, au *aurora.Aurora) *BarSink {
	if au == nil {
		au = aurora.New(aurora.WithColors(false))
	}
	return &BarSink{out: out, au: au}
}

// SetTotal sets the number of URLs the fetch phase will process.
func (b *BarSink) SetTotal(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total = total
}

// Consume advances the bar once per fetched URL.
func (b *BarSink) Consume(_ context.Context, batch []progress.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	advanced := false
	for _, evt := range batch {
		if evt.Stage != progress.StageFetchDone {
			continue
		}
		b.done++
		if evt.Failed() {
			b.failed++
		}
		advanced = true
	}
	if !advanced || b.total <= 0 {
		return nil
	}
	return b.render()
}

// Close finishes the line so later output starts on a fresh one.
func (b *BarSink) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rendered {
		return nil
	}
	if _, err := io.WriteString(b.out, "\n"); err != nil {
		return fmt.Errorf("finish progress bar: %w", err)
	}
	return nil
}

func (b *BarSink) render() error {
	done := min(b.done, b.total)
	filled := done * barWidth / b.total
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	line := fmt.Sprintf("\r [%s] %d/%d", b.au.Green(bar), done, b.total)
	if b.failed > 0 {
		line += fmt.Sprintf(" %s", b.au.Red(fmt.Sprintf("(%d failed)", b.failed)))
	}
	if _, err := io.WriteString(b.out, line); err != nil {
		return fmt.Errorf("render progress bar: %w", err)
	}
	b.rendered = true
	return nil
}
