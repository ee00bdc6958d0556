package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/lyuben-todorov/piko-cli/internal/logging"
)

const (
	DefaultPrompt      = "piko> "
	DefaultHistoryFile = "piko.hst"
)

// ErrAborted is returned by ReadLine when the user cancels the current line.
var ErrAborted = errors.New("console: line aborted")

type Options struct {
	Prompt      string
	HistoryPath string
	// Completions are offered for the first word of a line.
	Completions []string
}

// prompter is the subset of *liner.State the console drives.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	ClearHistory()
	Close() error
}

// Console owns the terminal and the history buffer. It is not safe for
// concurrent use.
type Console struct {
	term        prompter
	prompt      string
	historyPath string
	history     *History
	out         io.Writer
	tty         bool
	log         zerolog.Logger
}

// New puts the terminal under line-editor control and loads history. A
// missing history file is logged and ignored.
func New(opts Options) (*Console, error) {
	if _, err := os.Stdin.Stat(); err != nil {
		return nil, fmt.Errorf("console: stdin unavailable: %w", err)
	}
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(Completer(opts.Completions))

	c := newConsole(state, opts, os.Stdout)
	c.tty = isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	c.loadHistory()
	return c, nil
}

func newConsole(term prompter, opts Options, out io.Writer) *Console {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Console{
		term:        term,
		prompt:      prompt,
		historyPath: opts.HistoryPath,
		history:     NewHistory(liner.HistoryLimit),
		out:         out,
		log:         logging.Logger("console"),
	}
}

// ReadLine blocks for one line. It returns io.EOF at end of input and
// ErrAborted on Ctrl-C.
func (c *Console) ReadLine() (string, error) {
	line, err := c.term.Prompt(c.prompt)
	switch {
	case err == nil:
		return line, nil
	case errors.Is(err, liner.ErrPromptAborted):
		return "", ErrAborted
	case errors.Is(err, io.EOF):
		if c.tty {
			fmt.Fprintln(c.out)
		}
		return "", io.EOF
	default:
		return "", fmt.Errorf("console: read line: %w", err)
	}
}

// AddHistory records line as the most recent unique entry.
func (c *Console) AddHistory(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	before := c.history.Len()
	c.history.Add(line)
	if c.history.Len() > before {
		c.term.AppendHistory(line)
		return
	}
	c.term.ClearHistory()
	for _, e := range c.history.Entries() {
		c.term.AppendHistory(e)
	}
}

func (c *Console) History() []string {
	return c.history.Entries()
}

// Close writes the history file and restores the terminal.
func (c *Console) Close() error {
	var saveErr error
	if c.historyPath != "" {
		saveErr = SaveHistoryFile(c.history, c.historyPath)
		if saveErr == nil {
			c.log.Debug().Str("path", c.historyPath).Int("entries", c.history.Len()).Msg("history saved")
		}
	}
	return errors.Join(saveErr, c.term.Close())
}

func (c *Console) loadHistory() {
	if c.historyPath == "" {
		return
	}
	err := LoadHistoryFile(c.history, c.historyPath)
	switch {
	case err == nil:
		for _, e := range c.history.Entries() {
			c.term.AppendHistory(e)
		}
		c.log.Debug().Str("path", c.historyPath).Int("entries", c.history.Len()).Msg("history loaded")
	case isNotExist(err):
		c.log.Info().Str("path", c.historyPath).Msg("history file doesn't exist, not loading history")
	default:
		c.log.Warn().Err(err).Str("path", c.historyPath).Msg("could not load history file")
	}
}

// Completer completes the first word of a line against names.
func Completer(names []string) liner.Completer {
	return func(line string) []string {
		word := strings.TrimLeftFunc(line, unicode.IsSpace)
		if strings.ContainsFunc(word, unicode.IsSpace) {
			return nil
		}
		indent := line[:len(line)-len(word)]
		var out []string
		for _, name := range names {
			if strings.HasPrefix(name, word) {
				out = append(out, indent+name)
			}
		}
		return out
	}
}
