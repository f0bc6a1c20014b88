package evaluator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// Printer is the print primitive: write one value and a line break.
type Printer interface {
	Print(v ir.Value) error
}

// Prompter is the input primitive: show a question and deliver the answer.
type Prompter interface {
	Input(ctx context.Context, prompt string) (ir.Value, error)
}

// IO bundles both primitives.
type IO interface {
	Printer
	Prompter
}

// Console implements IO over a reader and writer, the way the bootstraps
// bind print and input to the process's standard streams.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewConsole returns a console reading answers from r and writing to w.
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{in: bufio.NewReader(r), out: w}
}

// Print writes the value's string form followed by a newline.
func (c *Console) Print(v ir.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, registry.ToString(v))
	return err
}

type line struct {
	text string
	err  error
}

// Input writes prompt and reads one line. The answer is always a String;
// programs cast it when they need a number. A final line without a newline
// is accepted; reading nothing at EOF returns io.EOF. A cancelled Input
// leaves its read pending, so the console must not be reused afterwards.
func (c *Console) Input(ctx context.Context, prompt string) (ir.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := io.WriteString(c.out, prompt); err != nil {
		return nil, err
	}

	ch := make(chan line, 1)
	go func() {
		text, err := c.in.ReadString('\n')
		if err == io.EOF && text != "" {
			err = nil
		}
		ch <- line{text: strings.TrimRight(text, "\r\n"), err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case l := <-ch:
		if l.err != nil {
			return nil, l.err
		}
		return ir.String(l.text), nil
	}
}
