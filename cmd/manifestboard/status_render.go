package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"manifestboard/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusKinds = map[statusKind]struct {
	label string
	color text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

const statusLabelWidth = 24

// statusPrinter writes the aligned "  Label:  [KIND] detail" lines used by
// doctor and status.
type statusPrinter struct {
	out      io.Writer
	colorize bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *statusPrinter) section(title string) {
	line := "== " + strings.TrimSpace(title) + " =="
	if p.colorize {
		line = text.Colors{text.FgBlue, text.Bold}.Sprint(line)
	}
	fmt.Fprintln(p.out, line)
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	fmt.Fprintln(p.out, renderStatusLine(label, kind, message, p.colorize))
}

func (p *statusPrinter) check(r preflight.Result) {
	kind := statusOK
	if !r.Passed {
		kind = statusError
	}
	p.line(r.Name, kind, r.Detail)
}

// tool reports a binary lookup. A missing optional tool is only a warning.
func (p *statusPrinter) tool(b preflight.BinaryStatus) {
	kind := statusOK
	switch {
	case b.Available:
	case b.Optional:
		kind = statusWarn
	default:
		kind = statusError
	}
	p.line(b.Name, kind, b.Detail)
}

// severity colours the board severity the way the board table does: quiet is
// fine, anything else needs someone on the floor.
func (p *statusPrinter) severity(severity string) {
	kind := statusWarn
	if strings.EqualFold(severity, "quiet") {
		kind = statusOK
	}
	p.line("Severity", kind, severity)
}

func (p *statusPrinter) blank() {
	fmt.Fprintln(p.out)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	meta := statusKinds[kind]
	tag := "[" + meta.label + "]"
	if message != "" {
		tag += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", tag)
	if colorize {
		return meta.color.Sprint(line)
	}
	return line
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
