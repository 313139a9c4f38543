package protocol

import (
	"errors"
	"strings"
)

// ErrEmptyDirective indicates a blank payload.
var ErrEmptyDirective = errors.New("empty directive")

// ErrUnknownDirective indicates a verb outside ValidVerbs.
type ErrUnknownDirective struct {
	Verb       string
	ValidVerbs []string
}

func (e *ErrUnknownDirective) Error() string {
	return "unknown_directive:" + e.Verb
}

// IsExit reports whether directive is the literal EXIT directive.
func IsExit(directive string) bool {
	return directive == VerbExit
}

// Echo formats an ECHO directive carrying message.
func Echo(message string) string {
	return VerbEcho + Separator + message
}

// ParseDirective parses a directive received by an agent. Trailing line
// endings are ignored so operators and tools may send newline-terminated text.
func ParseDirective(raw string) (Directive, error) {
	content := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(content) == "" {
		return Directive{}, ErrEmptyDirective
	}

	d := Directive{Raw: content}

	verb, rest, hasArg := strings.Cut(content, Separator)
	switch verb {
	case VerbInfo, VerbExit:
		if hasArg {
			return Directive{}, &ErrUnknownDirective{Verb: content, ValidVerbs: ValidVerbs}
		}
		d.Verb = verb
	case VerbEcho:
		if !hasArg {
			return Directive{}, &ErrUnknownDirective{Verb: content, ValidVerbs: ValidVerbs}
		}
		d.Verb = verb
		d.Message = rest
	default:
		return Directive{}, &ErrUnknownDirective{Verb: verb, ValidVerbs: ValidVerbs}
	}
	return d, nil
}
