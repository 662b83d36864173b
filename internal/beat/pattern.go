package beat

import "strings"

// Type is one slot of a metronome pattern.
type Type byte

const (
	Accent Type = '!'
	Beat   Type = '+'
	Pause  Type = '.'
)

// Valid reports whether t is one of Accent, Beat or Pause.
func (t Type) Valid() bool {
	switch t {
	case Accent, Beat, Pause:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t {
	case Accent:
		return "accent"
	case Beat:
		return "beat"
	case Pause:
		return "pause"
	}
	return "invalid"
}

// Pattern is the sequence of slots played in one cycle.
type Pattern []Type

// DefaultPattern is a single plain beat.
func DefaultPattern() Pattern {
	return Pattern{Beat}
}

// Parse converts a string like "!+.+" into a Pattern. Characters that are not
// a valid Type are dropped.
func Parse(s string) Pattern {
	p := make(Pattern, 0, len(s))
	for i := 0; i < len(s); i++ {
		if t := Type(s[i]); t.Valid() {
			p = append(p, t)
		}
	}
	return p
}

func (p Pattern) String() string {
	var b strings.Builder
	b.Grow(len(p))
	for _, t := range p {
		b.WriteByte(byte(t))
	}
	return b.String()
}

// Audible reports whether the pattern contains at least one accent or beat.
func (p Pattern) Audible() bool {
	for _, t := range p {
		if t == Accent || t == Beat {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (p Pattern) Clone() Pattern {
	if p == nil {
		return nil
	}
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pattern) UnmarshalText(text []byte) error {
	*p = Parse(string(text))
	return nil
}
