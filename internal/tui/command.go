// Package tui implements the interactive folio REPL on Bubble Tea.
package tui

import (
	"fmt"
	"strings"
)

// Verb names a REPL command.
type Verb string

const (
	VerbFile        Verb = "file"
	VerbUse         Verb = "use"
	VerbSearch      Verb = "search"
	VerbCollections Verb = "collections"
	VerbHelp        Verb = "help"
	VerbExit        Verb = "exit"
)

// Command is one parsed REPL line.
type Command struct {
	Verb Verb
	Args []string
	// Text is the raw remainder after the verb, used as the query for search.
	Text string
}

const helpText = `Commands:
  file <path> [collection]  index a document (collection defaults to one derived from the path)
  use <collection>          select the collection to search
  search <query>            search the selected collection (bare text works too)
  collections               list collections
  help                      show this help
  exit                      quit`

// ParseCommand parses a REPL line. Unknown leading words are treated as a bare
// search query. An empty line yields a zero Command.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, nil
	}
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch v := Verb(strings.ToLower(word)); v {
	case VerbFile:
		if len(args) < 1 || len(args) > 2 {
			return Command{}, fmt.Errorf("usage: file <path> [collection]")
		}
		return Command{Verb: v, Args: args, Text: rest}, nil
	case VerbUse:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: use <collection>")
		}
		return Command{Verb: v, Args: args, Text: rest}, nil
	case VerbSearch:
		if rest == "" {
			return Command{}, fmt.Errorf("usage: search <query>")
		}
		return Command{Verb: v, Args: args, Text: rest}, nil
	case VerbCollections, VerbHelp:
		return Command{Verb: v}, nil
	case VerbExit, "quit", "q":
		return Command{Verb: VerbExit}, nil
	default:
		return Command{Verb: VerbSearch, Args: strings.Fields(line), Text: line}, nil
	}
}
