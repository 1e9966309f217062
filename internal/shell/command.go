package shell

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// CommandKind identifies a shell command.
type CommandKind int

const (
	CmdHelp CommandKind = iota
	CmdIndex
	CmdQuery
	CmdUpdate
	CmdRemove
	CmdIndexed
	CmdTerms
	CmdClear
	CmdCd
	CmdLs
	CmdPwd
	CmdExit
)

var commandNames = map[string]CommandKind{
	"help":    CmdHelp,
	"index":   CmdIndex,
	"query":   CmdQuery,
	"update":  CmdUpdate,
	"remove":  CmdRemove,
	"indexed": CmdIndexed,
	"terms":   CmdTerms,
	"clear":   CmdClear,
	"cd":      CmdCd,
	"ls":      CmdLs,
	"pwd":     CmdPwd,
	"exit":    CmdExit,
}

func (k CommandKind) String() string {
	for name, kind := range commandNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one parsed input line.
type Command struct {
	Kind      CommandKind
	Recursive bool
	Args      []string
}

// Parse splits line into words, honouring double quotes, and validates the
// arguments of the named command. An empty line yields ok == false.
func Parse(line string) (cmd Command, ok bool, err error) {
	words, err := split(line)
	if err != nil {
		return Command{}, false, err
	}
	if len(words) == 0 {
		return Command{}, false, nil
	}

	kind, known := commandNames[words[0]]
	if !known {
		return Command{}, false, fmt.Errorf("%w: unknown command %q, type 'help' for a list of commands", apperrors.ErrInvalidInput, words[0])
	}
	cmd = Command{Kind: kind, Args: words[1:]}

	switch kind {
	case CmdIndex:
		if len(cmd.Args) > 0 && (cmd.Args[0] == "-r" || cmd.Args[0] == "--recursive") {
			cmd.Recursive = true
			cmd.Args = cmd.Args[1:]
		}
		if len(cmd.Args) == 0 {
			return Command{}, false, fmt.Errorf("%w: provide at least one path; quote paths that contain spaces", apperrors.ErrInvalidInput)
		}
	case CmdQuery:
		if len(cmd.Args) != 1 {
			return Command{}, false, fmt.Errorf("%w: provide exactly one keyword to search for", apperrors.ErrInvalidInput)
		}
	case CmdUpdate, CmdRemove:
		if len(cmd.Args) == 0 {
			return Command{}, false, fmt.Errorf("%w: %s needs at least one path", apperrors.ErrInvalidInput, kind)
		}
	case CmdCd:
		if len(cmd.Args) > 1 {
			return Command{}, false, fmt.Errorf("%w: cd takes at most one path", apperrors.ErrInvalidInput)
		}
	}
	return cmd, true, nil
}

// split breaks line on whitespace. A double-quoted section is kept as part
// of one word with the quotes removed.
func split(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quoted  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", apperrors.ErrInvalidInput)
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
