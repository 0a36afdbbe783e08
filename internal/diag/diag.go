// Package diag implements the diagnostic sink shared by every compiler pass.
//
// Every pass that can fail takes a *Sink rather than returning an error
// directly: lexical, syntax, and semantic problems are all reported the same
// way (spec §7), and later passes refuse to run once the sink has recorded
// an error.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Severity classifies a diagnostic. Only Error affects the pipeline's
// continue/halt decision; Note and Warning are purely observational.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Span locates a diagnostic in the source text, matching the lexer's token
// span representation.
type Span struct {
	Offset int
	Line   int
	Column int
}

// Diagnostic is a single severity-tagged message with an optional span.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     Span
}

// Sink collects diagnostics and counts errors. The zero value is usable; use
// New to attach an output stream for Legacy-style text reporting.
type Sink struct {
	diagnostics []Diagnostic
	errorCount  int

	out   io.Writer
	color bool
}

// New returns a Sink that also writes each diagnostic to out as it is
// recorded (the "Legacy" behaviour described in spec §4.1). color enables
// ANSI highlighting of the severity tag.
func New(out io.Writer) *Sink {
	return &Sink{out: out, color: shouldColor(out)}
}

// shouldColor reports whether out looks like an interactive terminal file
// descriptor. Non-*os.File writers (buffers, multi-writers) never colorize.
func shouldColor(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Report records a diagnostic and, if the sink has an attached writer, emits
// its textual form immediately.
func (s *Sink) Report(sev Severity, span Span, format string, args ...interface{}) {
	d := Diagnostic{Severity: sev, Message: fmt.Sprintf(format, args...), Span: span}
	s.diagnostics = append(s.diagnostics, d)
	if sev == Error {
		s.errorCount++
	}
	if s.out != nil {
		fmt.Fprintln(s.out, s.render(d))
	}
}

func (s *Sink) render(d Diagnostic) string {
	tag := d.Severity.String()
	if s.color {
		switch d.Severity {
		case Error:
			tag = "\x1b[31m" + tag + "\x1b[0m"
		case Warning:
			tag = "\x1b[33m" + tag + "\x1b[0m"
		case Note:
			tag = "\x1b[36m" + tag + "\x1b[0m"
		}
	}
	return fmt.Sprintf("%s: (line %d) %s", tag, d.Span.Line, d.Message)
}

// Note records an observational message.
func (s *Sink) Note(span Span, format string, args ...interface{}) {
	s.Report(Note, span, format, args...)
}

// Warn records a warning.
func (s *Sink) Warn(span Span, format string, args ...interface{}) {
	s.Report(Warning, span, format, args...)
}

// Err records an error.
func (s *Sink) Err(span Span, format string, args ...interface{}) {
	s.Report(Error, span, format, args...)
}

// ErrorCount returns the number of Error-severity diagnostics recorded so
// far. Downstream passes consult this to decide whether to run at all.
func (s *Sink) ErrorCount() int {
	return s.errorCount
}

// HasErrors is a convenience wrapper around ErrorCount.
func (s *Sink) HasErrors() bool {
	return s.errorCount > 0
}

// Diagnostics returns every diagnostic recorded so far, in recording order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// Strings renders every diagnostic to its textual form without relying on an
// attached writer; useful for tests and for dumping all diagnostics at once
// at the end of a pipeline stage.
func (s *Sink) Strings() []string {
	out := make([]string, len(s.diagnostics))
	for i, d := range s.diagnostics {
		out[i] = s.render(d)
	}
	return out
}
