// Package prompt implements conflict.Prompter as a y/N question on the
// terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/papercomputeco/scaffold/pkg/conflict"
)

// Terminal reads answers from in and writes questions to out.
type Terminal struct {
	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
}

// New creates a Terminal prompter.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

// Interactive reports whether in is attached to a terminal. Readers that are
// not files (pipes in tests, strings.Reader) count as interactive.
func (t *Terminal) Interactive() bool {
	f, ok := t.in.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

// Confirm asks question and waits for an answer. Only "y" and "yes" confirm.
// Without a terminal it returns conflict.ErrNoPrompter.
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	if !t.Interactive() {
		return false, conflict.ErrNoPrompter
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "%s [y/N] ", question)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := t.reader.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("reading answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
