package metronome

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satindergrewal/mnome/internal/player"
	"github.com/satindergrewal/mnome/internal/repl"
	"github.com/satindergrewal/mnome/internal/trainer"
)

const (
	bpmUsage     = "bpm <beats per minute>"
	patternUsage = "pattern <pattern>"
	rampUsage    = "ramp <step> <seconds> <max> | ramp off"

	patternHelp = "  <pattern> must be in the form of `[!|+|.]*`\n" +
		"  `!` = accentuated beat  `+` = normal beat  `.` = pause"
)

// Commands returns the REPL commands operating on a. An empty line toggles
// playback.
func (a *App) Commands() []repl.Command {
	return []repl.Command{
		{Name: "", Help: "Start or stop playback.", Run: a.cmdToggle},
		{Name: "start", Help: "Start playback.", Run: a.cmdStart},
		{Name: "stop", Help: "Stop playback.", Run: a.cmdStop},
		{Name: "bpm", Usage: bpmUsage, Help: fmt.Sprintf("Set the tempo (%d..%d, default %d).", MinBPM, MaxBPM, DefaultBPM), Run: a.cmdBPM},
		{Name: "pattern", Usage: patternUsage, Help: patternHelp, Run: a.cmdPattern},
		{Name: "status", Help: "Show tempo, pattern and playback state.", Run: a.cmdStatus},
		{Name: "ramp", Usage: rampUsage, Help: "Raise the tempo by <step> every <seconds> until <max>.", Run: a.cmdRamp},
	}
}

func (a *App) cmdToggle(string) error { return a.report(a.Toggle()) }
func (a *App) cmdStart(string) error  { return a.report(a.Start()) }
func (a *App) cmdStop(string) error   { return a.report(a.Stop()) }

func (a *App) cmdBPM(args string) error {
	bpm := DefaultBPM
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil {
			a.usage(bpmUsage, "")
			return fmt.Errorf("%w: could not get beats per minute from %q", ErrInvalidArgument, args)
		}
		bpm = n
	}
	if err := a.SetBPM(bpm); err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			a.usage(bpmUsage, "")
		}
		return err
	}
	fmt.Fprintf(a.out, "Tempo set to %d BPM\n", bpm)
	return nil
}

func (a *App) cmdPattern(args string) error {
	if err := a.SetPattern(args); err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			a.usage(patternUsage, patternHelp)
		}
		return err
	}
	return nil
}

func (a *App) cmdStatus(string) error {
	st := a.Status()
	state := "stopped"
	if st.Running {
		state = "playing"
	}
	fmt.Fprintf(a.out, "%s at %d BPM, pattern %s\n", state, st.BPM, st.Pattern)
	if st.Ramp.Enabled {
		fmt.Fprintf(a.out, "ramp +%d every %gs up to %d, next in %.0fs\n",
			st.Ramp.Step, st.Ramp.Every, st.Ramp.Max, st.Ramp.NextIn)
	}
	return nil
}

func (a *App) cmdRamp(args string) error {
	if args == "off" {
		a.StopRamp()
		fmt.Fprintln(a.out, "Tempo ramp off")
		return nil
	}
	s, err := parseRamp(args)
	if err == nil {
		err = a.Ramp(s)
	}
	if err != nil {
		a.usage(rampUsage, "")
		return err
	}
	fmt.Fprintf(a.out, "Tempo ramp on: +%d BPM every %s up to %d BPM\n", s.Step, s.Every, s.Max)
	return nil
}

// parseRamp reads "<step> <seconds> <max>". The interval also accepts Go
// duration syntax such as "1m30s".
func parseRamp(args string) (trainer.Settings, error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return trainer.Settings{}, fmt.Errorf("%w: ramp needs three values, got %d", ErrInvalidArgument, len(fields))
	}
	step, err := strconv.Atoi(fields[0])
	if err != nil {
		return trainer.Settings{}, fmt.Errorf("%w: step %q", ErrInvalidArgument, fields[0])
	}
	every, err := parseSeconds(fields[1])
	if err != nil {
		return trainer.Settings{}, fmt.Errorf("%w: interval %q", ErrInvalidArgument, fields[1])
	}
	maxBPM, err := strconv.Atoi(fields[2])
	if err != nil {
		return trainer.Settings{}, fmt.Errorf("%w: max %q", ErrInvalidArgument, fields[2])
	}
	return trainer.Settings{Step: step, Every: every, Max: maxBPM}, nil
}

func parseSeconds(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// report turns the harmless playback state errors into messages.
func (a *App) report(err error) error {
	switch {
	case errors.Is(err, player.ErrAlreadyRunning):
		fmt.Fprintln(a.out, "Already playing")
	case errors.Is(err, player.ErrNotRunning):
		fmt.Fprintln(a.out, "Not playing")
	case errors.Is(err, player.ErrEmptyPattern):
		fmt.Fprintln(a.out, "Not playing, the beat pattern is empty")
	default:
		return err
	}
	return nil
}

func (a *App) usage(usage, help string) {
	fmt.Fprintf(a.out, "Command usage: %s\n", usage)
	if help != "" {
		fmt.Fprintln(a.out, help)
	}
}
