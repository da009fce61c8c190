package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"manifestboard/internal/board"
)

const clearScreen = "\x1b[H\x1b[2J"

// consolePresenter draws the board on a terminal, redrawing in place, or
// prints a one-line summary whenever the board changes when the output is
// not a terminal.
type consolePresenter struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	now         func() time.Time

	view    board.View
	hasView bool
	ticker  string
	last    string
}

func newConsolePresenter(out io.Writer) *consolePresenter {
	interactive := false
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return &consolePresenter{out: out, interactive: interactive, now: time.Now}
}

// Present implements scheduler.Presenter.
func (p *consolePresenter) Present(view board.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = view
	p.hasView = true
	p.drawLocked()
}

// SetTicker implements announce.Ticker.
func (p *consolePresenter) SetTicker(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.ticker {
		return
	}
	p.ticker = text
	if p.hasView {
		p.drawLocked()
	}
}

func (p *consolePresenter) drawLocked() {
	if !p.interactive {
		line := summaryLine(p.view, p.ticker)
		if line == p.last {
			return
		}
		p.last = line
		fmt.Fprintf(p.out, "%s %s\n", p.now().Format("15:04:05"), line)
		return
	}

	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(renderBoard(p.view, p.now(), true))
	if p.ticker != "" {
		fmt.Fprintf(&b, "\n>>> %s\n", p.ticker)
	}
	_, _ = io.WriteString(p.out, b.String())
}

// summaryLine condenses a view for non-interactive output.
func summaryLine(view board.View, ticker string) string {
	parts := []string{
		"severity=" + view.Severity.String(),
		fmt.Sprintf("unacknowledged=%d", view.Unacknowledged()),
	}
	if view.Mute.IsMuted {
		parts = append(parts, "muted=yes")
	}
	for _, e := range view.Entries {
		if e.NeedsAttention() {
			parts = append(parts, fmt.Sprintf("%s/%s=%s", e.Time, e.Carrier, e.Status))
		}
	}
	if ticker != "" {
		parts = append(parts, fmt.Sprintf("ticker=%q", ticker))
	}
	return strings.Join(parts, " ")
}
