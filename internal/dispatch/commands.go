package dispatch

import (
	"strings"
	"unicode"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	cmdNone         = ""
	cmdHelp         = "help"
	cmdListCommands = "list-commands"
	cmdPublish      = "pub"
	cmdSubscribe    = "sub"
	cmdUnsubscribe  = "unsub"
	cmdQuit         = "quit"
	cmdPoll         = "poll"
)

// Command is one entry of the help table.
type Command struct {
	Name string
	Help string
	// Dispatchable is false for commands that are documented but not
	// handled by the loop.
	Dispatchable bool
}

var commandTable = []Command{
	{Name: cmdHelp, Help: "You're looking at it", Dispatchable: true},
	{Name: cmdListCommands, Help: "List command names", Dispatchable: true},
	{Name: cmdQuit, Help: "Quit", Dispatchable: true},
	{Name: cmdSubscribe, Help: "Subscribe to cluster", Dispatchable: true},
	{Name: cmdUnsubscribe, Help: "Unsubscribe from cluster", Dispatchable: true},
	{Name: cmdPublish, Help: "Publish to cluster", Dispatchable: true},
	{Name: cmdPoll, Help: "Poll your message queue from cluster"},
}

// Commands returns a copy of the help table.
func Commands() []Command {
	out := make([]Command, len(commandTable))
	copy(out, commandTable)
	return out
}

// CommandNames returns every documented command name, for completion.
func CommandNames() []string {
	out := make([]string, 0, len(commandTable))
	for _, c := range commandTable {
		out = append(out, c.Name)
	}
	return out
}

// SplitCommand trims line and splits it at the first whitespace. The
// remainder keeps its inner spacing; only leading whitespace is removed.
func SplitCommand(line string) (cmd string, args string) {
	s := strings.TrimSpace(line)
	pos := strings.IndexFunc(s, unicode.IsSpace)
	if pos < 0 {
		return s, ""
	}
	return s[:pos], strings.TrimLeftFunc(s[pos:], unicode.IsSpace)
}

func renderHelp() string {
	tw := table.NewWriter()
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	tw.SetStyle(style)
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 1, WidthMin: 15}})
	for _, c := range commandTable {
		tw.AppendRow(table.Row{c.Name, "- " + c.Help})
	}
	return tw.Render()
}
