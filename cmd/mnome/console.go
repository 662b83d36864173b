package main

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/satindergrewal/mnome/internal/repl"
)

// console is where commands come from and feedback goes to.
type console struct {
	in      repl.LineReader
	out     io.Writer
	restore func()
}

// openConsole puts an interactive stdin into raw mode behind a line editor.
// Anything else (pipes, files) is read line by line.
func openConsole() console {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return console{in: repl.NewScanner(os.Stdin), out: os.Stdout, restore: func() {}}
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return console{in: repl.NewScanner(os.Stdin), out: os.Stdout, restore: func() {}}
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "")
	if w, h, err := term.GetSize(fd); err == nil {
		t.SetSize(w, h)
	}
	return console{
		in:  t,
		out: t,
		restore: func() {
			_ = term.Restore(fd, oldState)
		},
	}
}

// newLogger logs JSON to stderr for pipes and human readable lines through
// the terminal when interactive, so log output does not tear the prompt.
func newLogger(level string, c console) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if _, interactive := c.out.(*term.Terminal); !interactive {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		logger, err := cfg.Build()
		if err != nil {
			return zap.NewNop()
		}
		return logger
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(c.out), lvl)
	return zap.New(core)
}
