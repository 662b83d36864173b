// Package repl is a read-evaluate-print loop that dispatches input lines to
// named commands.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Prompt is shown before each line.
const Prompt = "[mnome]: "

// EnterKey is how the command bound to an empty line is listed.
const EnterKey = "<ENTER KEY>"

// Command is a named action. The command named "" runs on an empty line.
type Command struct {
	Name  string
	Usage string
	Help  string
	// Run receives everything after the command name, trimmed.
	Run func(args string) error
}

// LineReader yields one line of input per call. *term.Terminal satisfies it.
type LineReader interface {
	ReadLine() (string, error)
}

// prompter is implemented by readers that draw the prompt themselves.
type prompter interface {
	SetPrompt(prompt string)
}

type scanner struct{ s *bufio.Scanner }

// NewScanner reads lines from r.
func NewScanner(r io.Reader) LineReader {
	return &scanner{s: bufio.NewScanner(r)}
}

func (s *scanner) ReadLine() (string, error) {
	if s.s.Scan() {
		return s.s.Text(), nil
	}
	if err := s.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Repl reads commands from a LineReader and writes feedback to an io.Writer.
type Repl struct {
	in       LineReader
	out      io.Writer
	logger   *zap.Logger
	commands map[string]Command
}

// New creates a REPL over the given commands.
func New(in LineReader, out io.Writer, logger *zap.Logger, commands ...Command) *Repl {
	r := &Repl{
		in:       in,
		out:      out,
		logger:   logger,
		commands: make(map[string]Command, len(commands)),
	}
	for _, c := range commands {
		r.commands[c.Name] = c
	}
	if p, ok := in.(prompter); ok {
		p.SetPrompt(Prompt)
	}
	return r
}

type line struct {
	text string
	err  error
}

// Run processes lines until exit or quit is entered, input ends, or ctx is
// cancelled. End of input and exit return nil.
func (r *Repl) Run(ctx context.Context) error {
	lines := make(chan line)
	next := make(chan struct{}, 1)
	go func() {
		defer close(lines)
		for range next {
			text, err := r.in.ReadLine()
			select {
			case lines <- line{text, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer close(next)

	for {
		if _, ok := r.in.(prompter); !ok {
			fmt.Fprint(r.out, "\n"+Prompt)
		}
		next <- struct{}{}

		var l line
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l = <-lines:
		}
		if l.err != nil {
			if errors.Is(l.err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read command: %w", l.err)
		}
		if !r.Eval(l.text) {
			return nil
		}
	}
}

// Eval runs one input line and reports whether the loop should continue.
func (r *Repl) Eval(input string) bool {
	name, args := Split(input)

	cmd, ok := r.commands[name]
	if !ok {
		switch name {
		case "help":
			r.printHelp(args)
		case "exit", "quit":
			return false
		default:
			fmt.Fprintf(r.out, "%q is not a valid command\n", name)
			r.printHelp("")
		}
		return true
	}

	if err := cmd.Run(args); err != nil {
		r.logger.Debug("command failed", zap.String("command", name), zap.Error(err))
		fmt.Fprintf(r.out, "Could not get that, please try again: %v\n", err)
	}
	return true
}

// Split trims input and separates the command name from its arguments.
func Split(input string) (name, args string) {
	input = strings.TrimSpace(input)
	name, args, _ = strings.Cut(input, " ")
	return name, strings.TrimSpace(args)
}

func displayName(name string) string {
	if name == "" {
		return EnterKey
	}
	return name
}

func (r *Repl) printHelp(arg string) {
	if arg != "" {
		cmd, ok := r.commands[arg]
		if !ok {
			fmt.Fprintf(r.out, "%q is not a valid command to show help for\n", arg)
			return
		}
		if cmd.Usage != "" {
			fmt.Fprintf(r.out, "Usage: %s\n", cmd.Usage)
		}
		if cmd.Help != "" {
			fmt.Fprintln(r.out, cmd.Help)
		}
		if cmd.Usage == "" && cmd.Help == "" {
			fmt.Fprintf(r.out, "%q has no help message\n", displayName(cmd.Name))
		}
		return
	}

	if len(r.commands) == 0 {
		fmt.Fprintln(r.out, "There are no commands defined, this REPL does nothing")
		return
	}
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, fmt.Sprintf("%q", displayName(name)))
	}
	slices.Sort(names)
	fmt.Fprintf(r.out, "Known commands: %s\n", strings.Join(names, ", "))
}
