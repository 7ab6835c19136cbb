package scholar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrBlocked is returned by AbortGate, and wrapped by runs that stop at a
// block page.
var ErrBlocked = errors.New("blocked by Google Scholar")

// Challenge describes the block page that stopped the run.
type Challenge struct {
	URL    string // page being loaded when the block was seen, if known
	Marker string // block marker that matched
	Stage  string // "open", "search", "page 2", ...
}

// Gate suspends a run on a block page until an operator has dealt with it.
// Await returns nil once the run may continue. It never times out; only ctx
// cancellation interrupts it. The caller re-checks the page afterwards.
type Gate interface {
	Await(ctx context.Context, c Challenge) error
}

// ConsoleGate prints guidance to Out and waits for a line on In. A single
// goroutine reads In for the life of the gate, so an Await interrupted by
// ctx leaves the next line for the following Await.
type ConsoleGate struct {
	out   io.Writer
	in    *bufio.Reader
	start sync.Once
	lines chan error

	mu  sync.Mutex
	err error // terminal read error, returned by every later Await
}

// NewConsoleGate creates a gate reading acknowledgements from in.
func NewConsoleGate(in io.Reader, out io.Writer) *ConsoleGate {
	return &ConsoleGate{out: out, in: bufio.NewReader(in), lines: make(chan error)}
}

// Await implements Gate. EOF on the input is an error: nobody can answer.
func (g *ConsoleGate) Await(ctx context.Context, c Challenge) error {
	g.mu.Lock()
	readErr := g.err
	g.mu.Unlock()
	if readErr != nil {
		return fmt.Errorf("waiting for confirmation: %w", readErr)
	}

	fmt.Fprintf(g.out, "\nCAPTCHA or unusual traffic page detected (%s", c.Stage)
	if c.Marker != "" {
		fmt.Fprintf(g.out, ", matched %q", c.Marker)
	}
	fmt.Fprintln(g.out, ")")
	fmt.Fprintln(g.out, "  - Do not close the browser.")
	fmt.Fprintln(g.out, "  - Solve the CAPTCHA manually in the browser window.")
	fmt.Fprintln(g.out, "  - Refresh the page if necessary (F5).")
	fmt.Fprint(g.out, "  >>> Press Enter after solving...")

	g.start.Do(func() { go g.readLines() })

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-g.lines:
		if err != nil {
			g.mu.Lock()
			g.err = err
			g.mu.Unlock()
			return fmt.Errorf("waiting for confirmation: %w", err)
		}
		return nil
	}
}

// readLines hands each line read to the waiting Await and stops at the
// first read error.
func (g *ConsoleGate) readLines() {
	for {
		_, err := g.in.ReadString('\n')
		g.lines <- err
		if err != nil {
			return
		}
	}
}

// GateState is the observable state of a ManualGate.
type GateState int

const (
	Idle GateState = iota
	AwaitingConfirmation
)

func (s GateState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingConfirmation:
		return "awaiting-confirmation"
	default:
		return fmt.Sprintf("GateState(%d)", int(s))
	}
}

// ManualGate is resumed programmatically. A host watches Pending or polls
// Waiting, lets the operator act, then calls Resume.
type ManualGate struct {
	mu        sync.Mutex
	state     GateState
	challenge Challenge
	resume    chan struct{}
	pending   chan Challenge
}

// NewManualGate creates an idle gate.
func NewManualGate() *ManualGate {
	return &ManualGate{pending: make(chan Challenge, 1)}
}

// Await implements Gate.
func (g *ManualGate) Await(ctx context.Context, c Challenge) error {
	resume := make(chan struct{})

	g.mu.Lock()
	g.state = AwaitingConfirmation
	g.challenge = c
	g.resume = resume
	g.mu.Unlock()

	select {
	case g.pending <- c:
	default:
	}

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		if g.resume == resume {
			g.reset()
		}
		g.mu.Unlock()
		return ctx.Err()
	}
}

// Waiting returns the current state.
func (g *ManualGate) Waiting() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Challenge returns the challenge being waited on, if any.
func (g *ManualGate) Challenge() (Challenge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.challenge, g.state == AwaitingConfirmation
}

// Pending delivers each challenge as the gate starts waiting on it. The
// channel holds one notification; an unread one is not replaced.
func (g *ManualGate) Pending() <-chan Challenge {
	return g.pending
}

// Resume releases a waiting Await. It reports false if nothing was waiting.
func (g *ManualGate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != AwaitingConfirmation {
		return false
	}
	close(g.resume)
	g.reset()
	return true
}

func (g *ManualGate) reset() {
	g.state = Idle
	g.challenge = Challenge{}
	g.resume = nil
}

// AbortGate never waits: it fails the run with ErrBlocked.
type AbortGate struct{}

// Await implements Gate.
func (AbortGate) Await(_ context.Context, c Challenge) error {
	if c.Marker != "" {
		return fmt.Errorf("%w at %s (matched %q)", ErrBlocked, c.Stage, c.Marker)
	}
	return fmt.Errorf("%w at %s", ErrBlocked, c.Stage)
}
