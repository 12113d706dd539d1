package command

import (
	"time"

	"github.com/joebot/worldreset/internal/duration"
)

// ArgumentType parses one token and offers completions for it.
type ArgumentType interface {
	Parse(token string) (any, error)
	Suggest(ctx *Context, partial string) []string
}

type word struct{}

// Word accepts any single token as a string.
func Word() ArgumentType { return word{} }

func (word) Parse(token string) (any, error)   { return token, nil }
func (word) Suggest(*Context, string) []string { return nil }

type durationArg struct {
	parser duration.Parser
}

// DurationArg accepts a duration of at least min.
func DurationArg(min time.Duration) ArgumentType {
	return durationArg{parser: duration.Parser{Min: min}}
}

func (d durationArg) Parse(token string) (any, error) {
	v, err := d.parser.Parse(token)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Suggest offers the unit symbols that may follow what was typed.
func (durationArg) Suggest(_ *Context, partial string) []string {
	return duration.Suggest(partial)
}
