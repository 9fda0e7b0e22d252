// Package presenter owns what the user sees: results on stdout, diagnostics on
// stderr, with colour support that honours NO_COLOR and SKILLCTL_COLOR.
package presenter

import (
	"bytes"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/jingkaihe/skillctl/pkg/payload"
)

// Presenter defines the interface for CLI output.
type Presenter interface {
	Result(v payload.Value, format string) error
	Error(err error, context string)
	Hint(message string)
	Warning(message string)
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto lets fatih/color decide from the terminal.
	ColorAuto ColorMode = iota
	// ColorAlways forces coloured output.
	ColorAlways
	// ColorNever disables coloured output.
	ColorNever
)

// TerminalPresenter implements Presenter for terminal output.
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
}

var _ Presenter = (*TerminalPresenter)(nil)

// NewWithOptions creates a TerminalPresenter with custom writers.
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	case ColorAuto:
	}

	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}
}

// DetectColorMode reads the colour preference from NO_COLOR and SKILLCTL_COLOR.
func DetectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("SKILLCTL_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Result renders a remote result on stdout. The value is rendered in full
// before anything is written, so a rendering failure leaves stdout untouched.
func (p *TerminalPresenter) Result(v payload.Value, format string) error {
	var buf bytes.Buffer
	if err := payload.Render(&buf, v, format); err != nil {
		return err
	}
	_, err := p.output.Write(buf.Bytes())
	return err
}

// Error displays an error message on stderr.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Hint displays a follow-up suggestion on stderr, e.g. after a usage error.
func (p *TerminalPresenter) Hint(message string) {
	color.New(color.Faint).Fprintf(p.errorOutput, "%s\n", message)
}

// Warning displays a warning on stderr.
func (p *TerminalPresenter) Warning(message string) {
	color.New(color.FgYellow, color.Bold).Fprintf(p.errorOutput, "⚠ %s\n", message)
}
