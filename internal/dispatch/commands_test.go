package dispatch

import (
	"strings"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		line string
		cmd  string
		args string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"sub", "sub", ""},
		{"  quit  ", "quit", ""},
		{"pub hello world", "pub", "hello world"},
		{"pub   spaced  out  ", "pub", "spaced  out"},
		{"pub\thello", "pub", "hello"},
	}
	for _, tc := range cases {
		cmd, args := SplitCommand(tc.line)
		if cmd != tc.cmd || args != tc.args {
			t.Fatalf("SplitCommand(%q)=(%q,%q) want (%q,%q)", tc.line, cmd, args, tc.cmd, tc.args)
		}
	}
}

func TestCommandNamesIncludeDocumentedPoll(t *testing.T) {
	names := strings.Join(CommandNames(), ",")
	if names != "help,list-commands,quit,sub,unsub,pub,poll" {
		t.Fatalf("unexpected names %s", names)
	}
	for _, c := range Commands() {
		if c.Name == "poll" && c.Dispatchable {
			t.Fatalf("poll must stay documentation-only")
		}
	}
}

func TestRenderHelpListsEveryCommand(t *testing.T) {
	out := renderHelp()
	for _, c := range Commands() {
		if !strings.Contains(out, c.Name) || !strings.Contains(out, c.Help) {
			t.Fatalf("help missing %s: %s", c.Name, out)
		}
	}
}
