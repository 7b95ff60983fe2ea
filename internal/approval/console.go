package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

var ErrNotInteractive = errors.New("console approval requires an interactive terminal")

// ConsoleChannel prompts on out and reads a yes/no answer from in. Only
// "yes" (any case, surrounding space ignored) counts as an override.
type ConsoleChannel struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	// pending is a read left running by a cancelled request; the next
	// request consumes its answer instead of starting a second reader.
	pending     chan lineResult
}

// NewConsoleChannel refuses to prompt when in is a file that is not a
// terminal, such as a pipe. Other readers are treated as scripted input.
func NewConsoleChannel(in io.Reader, out io.Writer) *ConsoleChannel {
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int.
	}
	return &ConsoleChannel{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// AllowNonInteractive lets the channel read answers from a non-terminal file.
func (c *ConsoleChannel) AllowNonInteractive() *ConsoleChannel {
	c.interactive = true
	return c
}

type lineResult struct {
	line string
	err  error
}

func (c *ConsoleChannel) RequestOverride(ctx context.Context, req Request) (bool, error) {
	if !c.interactive {
		return false, ErrNotInteractive
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "Review loan application for applicant %s (AI decision: %s). Override? (yes/no): ", req.ApplicantID, req.AIDecision); err != nil {
		return false, errors.Wrap(err, "write prompt")
	}

	if c.pending == nil {
		c.pending = make(chan lineResult, 1)
		go func(done chan<- lineResult) {
			line, err := c.in.ReadString('\n')
			done <- lineResult{line: line, err: err}
		}(c.pending)
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-c.pending:
		c.pending = nil
		if res.err != nil && res.line == "" {
			return false, errors.Wrap(res.err, "read answer")
		}
		return strings.EqualFold(strings.TrimSpace(res.line), "yes"), nil
	}
}
