package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
)

// styles holds the terminal styles of one writer. Colors are dropped when
// the writer is not a terminal.
type styles struct {
	progress lipgloss.Style
	info     lipgloss.Style
	warn     lipgloss.Style
	err      lipgloss.Style
	success  lipgloss.Style
	label    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		progress: r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		info:     r.NewStyle().Foreground(lipgloss.Color("244")),
		warn:     r.NewStyle().Foreground(lipgloss.Color("214")),
		err:      r.NewStyle().Foreground(lipgloss.Color("196")),
		success:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		label:    r.NewStyle().Bold(true),
	}
}

// newProgressSink prints pipeline events to w, one per line.
// Stage changes carry their percentage.
func newProgressSink(w io.Writer) invoice2pdf.Sink {
	st := newStyles(w)
	return func(e invoice2pdf.Event) {
		switch {
		case e.HasProgress:
			fmt.Fprintf(w, "%s %s\n", st.progress.Render(fmt.Sprintf("[%3.0f%%]", e.Progress)), e.Message)
		case e.Level >= slog.LevelError:
			fmt.Fprintln(w, st.err.Render("error: "+e.Message))
		case e.Level >= slog.LevelWarn:
			fmt.Fprintln(w, st.warn.Render("warning: "+e.Message))
		default:
			fmt.Fprintln(w, st.info.Render("       "+e.Message))
		}
	}
}

// printOutcome writes the run summary and, with details, one
// Identifier/Reason pair per failed document.
func printOutcome(w io.Writer, o *invoice2pdf.RunOutcome, details bool) {
	st := newStyles(w)

	fmt.Fprintln(w)
	switch {
	case o.OutputPath == "":
		// Nothing produced; the error is reported by the caller.
	case o.Mode == invoice2pdf.ModeMerged:
		fmt.Fprintf(w, "%s %d PDFs into %s\n", st.success.Render("Merged"), o.Produced, o.OutputPath)
	default:
		fmt.Fprintf(w, "%s %d PDFs to %s\n", st.success.Render("Copied"), o.Produced, o.OutputPath)
	}

	if o.Failed() == 0 {
		return
	}
	fmt.Fprintln(w, st.warn.Render(fmt.Sprintf("%d documents failed", o.Failed())))
	if !details {
		return
	}
	for _, e := range o.Errors {
		fmt.Fprintf(w, "  %s %s\n", st.label.Render("Identifier:"), e.Identifier)
		fmt.Fprintf(w, "  %s %s\n", st.label.Render("Reason:"), e.Reason)
	}
}
