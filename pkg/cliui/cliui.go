// Package cliui holds the terminal presentation used by scaffold commands:
// progress steps, marks, markdown, tables, validation reports and change
// listings.
package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	WarnMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("!")

	StepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	HashStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	NameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
)

var (
	frameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	frames     = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
)

const (
	frameInterval = 80 * time.Millisecond
	markdownWidth = 80
)

// Step runs fn and prints msg with a ✓ or ✗ and the elapsed time. On a
// terminal a spinner animates while fn runs; other writers only get the
// final line.
func Step(w io.Writer, msg string, fn func() error) error {
	var (
		mu   sync.Mutex
		stop = func() {}
	)
	if isTerminal(w) {
		stop = spin(w, &mu, msg)
	}

	start := time.Now()
	err := fn()
	took := time.Since(start)
	stop()

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg, StepStyle.Render("("+FormatDuration(took)+")"))
	return err
}

// spin draws frames until the returned stop func is called. stop blocks
// until the last frame has been written.
func spin(w io.Writer, mu *sync.Mutex, msg string) func() {
	quit := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		t := time.NewTicker(frameInterval)
		defer t.Stop()

		for i := 0; ; i++ {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s", frameStyle.Render(frames[i%len(frames)]), msg)
			mu.Unlock()

			select {
			case <-quit:
				return
			case <-t.C:
			}
		}
	}()

	return func() {
		close(quit)
		<-finished
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mark is FailMark for a non-nil err and SuccessMark otherwise.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration renders d as "12ms", "3.2s" or "2m5s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Truncate(time.Second).String()
	}
}

// RenderMarkdown renders content with glamour, wrapped to the terminal width
// when stdout is a terminal. On failure the raw content is returned along
// with the error.
func RenderMarkdown(content string) (string, error) {
	width := markdownWidth
	if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols > 20 && cols < width {
		width = cols
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return content, err
	}
	out, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return out, nil
}
