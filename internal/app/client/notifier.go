package client

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"childhealth/internal/app/client/syncer"
)

// ConsoleNotifier prints sync notifications in the terminal, colored by severity.
type ConsoleNotifier struct {
	w io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (n *ConsoleNotifier) Notify(sev syncer.Severity, msg string) {
	var c *color.Color

	switch sev {
	case syncer.SeveritySuccess:
		c = color.New(color.FgGreen)
	case syncer.SeverityWarning:
		c = color.New(color.FgYellow)
	case syncer.SeverityError:
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.FgCyan)
	}

	_, _ = c.Fprintf(n.w, "[%s] ", sev)
	_, _ = fmt.Fprintln(n.w, msg)
}
