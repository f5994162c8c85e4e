package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"gameserver-backup/internal/backup"
)

// Printer renders run status lines to the terminal, with color when the
// output is an interactive terminal that supports it
type Printer struct {
	out     io.Writer
	colored bool
}

// NewPrinter creates a printer for w. Color is enabled only when w is a
// TTY with a color-capable profile and noColor is false.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	colored := false
	if !noColor {
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			colored = termenv.EnvColorProfile() != termenv.Ascii
		}
	}
	return &Printer{
		out:     w,
		colored: colored,
	}
}

// NewStdoutPrinter creates a printer for standard output
func NewStdoutPrinter(noColor bool) *Printer {
	return NewPrinter(os.Stdout, noColor)
}

func (p *Printer) sprint(c *color.Color, format string, args ...interface{}) string {
	if p.colored {
		return c.Sprintf(format, args...)
	}
	return fmt.Sprintf(format, args...)
}

// Successf prints a green status line
func (p *Printer) Successf(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.sprint(color.New(color.FgGreen), format, args...))
}

// Warnf prints a yellow status line
func (p *Printer) Warnf(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.sprint(color.New(color.FgYellow), format, args...))
}

// Errorf prints a red status line
func (p *Printer) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.sprint(color.New(color.FgRed), format, args...))
}

// Infof prints a plain status line
func (p *Printer) Infof(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// RunSummary renders the end-of-run report
func (p *Printer) RunSummary(report *backup.RunReport) {
	if report.Fatal != "" {
		p.Errorf("Backup run %s aborted: %s", report.RunID, report.Fatal)
		return
	}

	header := fmt.Sprintf("Backup run %s (%s)", report.RunID, report.DateTag)
	if report.DryRun {
		header += " [dry run]"
	}
	p.Infof("%s", header)

	for _, result := range report.Targets {
		switch result.Outcome {
		case backup.OutcomeCompleted:
			p.Successf("  %s: completed (%s, %d bytes)", result.Target.Name(), result.RemoteKey, result.ArchiveBytes)
		case backup.OutcomeSkipped:
			p.Infof("  %s: skipped (%s)", result.Target.Name(), result.SkipReason)
		case backup.OutcomeFailed:
			p.Errorf("  %s: failed at %s: %s", result.Target.Name(), result.FailedStage, result.Error)
		}
	}

	if report.Retention != nil {
		if len(report.Retention.Errors) > 0 {
			p.Warnf("  retention: kept %d, deleted %d, %d failures",
				report.Retention.Kept, report.Retention.Deleted(), len(report.Retention.Errors))
		} else {
			p.Infof("  retention: kept %d, deleted %d",
				report.Retention.Kept, report.Retention.Deleted())
		}
	}

	if report.Failed() > 0 {
		p.Warnf("Completed with %d failed target(s) in %s", report.Failed(), report.Duration.Round(time.Millisecond))
	} else {
		p.Successf("Completed in %s", report.Duration.Round(time.Millisecond))
	}
}
