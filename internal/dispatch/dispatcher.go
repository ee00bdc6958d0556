package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lyuben-todorov/piko-cli/internal/console"
	"github.com/lyuben-todorov/piko-cli/internal/logging"
	"github.com/lyuben-todorov/piko-cli/internal/protocol"
)

// DefaultQuitTimeout bounds the farewell unsubscribe sent on exit.
const DefaultQuitTimeout = 2 * time.Second

// State is the dispatcher's position in the REPL cycle.
type State int

const (
	StateAwaitingInput State = iota
	StateDispatching
	StateRendering
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting-input"
	case StateDispatching:
		return "dispatching"
	case StateRendering:
		return "rendering"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LineReader is the interactive input collaborator. ReadLine returns io.EOF
// at end of input and console.ErrAborted when the user cancels a line.
type LineReader interface {
	ReadLine() (string, error)
	AddHistory(line string)
	Close() error
}

// Exchanger performs one request/response round trip.
type Exchanger interface {
	Exchange(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

type Options struct {
	ClientID    uint64
	QuitTimeout time.Duration
}

type Dispatcher struct {
	clientID    uint64
	quitTimeout time.Duration

	input LineReader
	exch  Exchanger
	out   io.Writer
	log   zerolog.Logger

	state State
	last  protocol.Response
}

func New(input LineReader, exch Exchanger, out io.Writer, opts Options) *Dispatcher {
	quit := opts.QuitTimeout
	if quit <= 0 {
		quit = DefaultQuitTimeout
	}
	return &Dispatcher{
		clientID:    opts.ClientID,
		quitTimeout: quit,
		input:       input,
		exch:        exch,
		out:         out,
		log:         logging.Logger("dispatch"),
		state:       StateAwaitingInput,
	}
}

func (d *Dispatcher) State() State {
	return d.state
}

func (d *Dispatcher) ClientID() uint64 {
	return d.clientID
}

// LastResponse is the most recent broker response, including the Success
// bytes the renderer does not print. Nil until the first exchange succeeds.
func (d *Dispatcher) LastResponse() protocol.Response {
	return d.last
}

// Run reads and executes lines until quit or end of input. It returns an
// error only when the line reader fails for a reason other than EOF or a
// cancelled line. The line reader is closed before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.closeInput()

	fmt.Fprintln(d.out, `Enter "help" for a list of commands.`)
	fmt.Fprintln(d.out, `Press Ctrl-D or enter "quit" to exit.`)
	fmt.Fprintln(d.out)

	for d.state != StateTerminated {
		line, err := d.input.ReadLine()
		switch {
		case err == nil:
			d.Execute(ctx, line)
		case errors.Is(err, io.EOF):
			d.terminate(ctx)
		case errors.Is(err, console.ErrAborted):
			continue
		default:
			d.state = StateTerminated
			return fmt.Errorf("dispatch: read input: %w", err)
		}
	}
	return nil
}

// Execute runs one line and reports whether the dispatcher terminated.
func (d *Dispatcher) Execute(ctx context.Context, line string) bool {
	if d.state == StateTerminated {
		return true
	}
	if strings.TrimSpace(line) != "" {
		d.input.AddHistory(line)
	}

	cmd, args := SplitCommand(line)
	d.log.Trace().Str("cmd", cmd).Int("args_len", len(args)).Msg("line parsed")

	switch cmd {
	case cmdNone:
	case cmdHelp:
		fmt.Fprintln(d.out, "piko-cli commands:")
		fmt.Fprintln(d.out)
		fmt.Fprintln(d.out, renderHelp())
		fmt.Fprintln(d.out)
	case cmdListCommands:
		for _, c := range commandTable {
			if c.Dispatchable {
				fmt.Fprintln(d.out, c.Name)
			}
		}
	case cmdPublish:
		d.dispatch(ctx, protocol.Publish{ClientID: d.clientID, Payload: []byte(args)})
	case cmdSubscribe:
		d.dispatch(ctx, protocol.Subscribe{ClientID: d.clientID})
	case cmdUnsubscribe:
		d.dispatch(ctx, protocol.Unsubscribe{ClientID: d.clientID})
	case cmdQuit:
		d.terminate(ctx)
	default:
		fmt.Fprintf(d.out, "Unknown command: %q\n", line)
	}
	return d.state == StateTerminated
}

func (d *Dispatcher) dispatch(ctx context.Context, req protocol.Request) {
	d.state = StateDispatching
	resp, err := d.exch.Exchange(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty response", protocol.ErrMalformedPayload)
	}

	d.state = StateRendering
	if err != nil {
		d.log.Debug().Err(err).Str("request", req.Variant()).Msg("exchange failed")
		fmt.Fprintf(d.out, "Request failed: %s\n", Describe(err))
	} else {
		d.last = resp
		resp.Match(responseRenderer{out: d.out})
	}
	d.state = StateAwaitingInput
}

// terminate sends one bounded, best-effort unsubscribe and says goodbye.
func (d *Dispatcher) terminate(ctx context.Context) {
	d.state = StateTerminated

	qctx, cancel := context.WithTimeout(ctx, d.quitTimeout)
	defer cancel()
	resp, err := d.exch.Exchange(qctx, protocol.Unsubscribe{ClientID: d.clientID})
	switch {
	case err != nil:
		d.log.Debug().Err(err).Msg("final unsubscribe failed")
	case resp != nil:
		d.log.Debug().Str("response", resp.Variant()).AnErr("rejected", protocol.AsError(resp)).Msg("final unsubscribe sent")
	}

	fmt.Fprintln(d.out, "Goodbye.")
}

func (d *Dispatcher) closeInput() {
	if err := d.input.Close(); err != nil {
		d.log.Warn().Err(err).Msg("close input")
	}
}
