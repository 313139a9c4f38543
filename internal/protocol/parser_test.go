package protocol

import (
	"errors"
	"testing"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Directive
		wantErr bool
	}{
		{
			name:  "INFO",
			input: "INFO",
			want:  Directive{Verb: VerbInfo, Raw: "INFO"},
		},
		{
			name:  "INFO with newline",
			input: "INFO\r\n",
			want:  Directive{Verb: VerbInfo, Raw: "INFO"},
		},
		{
			name:  "EXIT",
			input: "EXIT",
			want:  Directive{Verb: VerbExit, Raw: "EXIT"},
		},
		{
			name:  "ECHO with message",
			input: "ECHO|hello world",
			want:  Directive{Verb: VerbEcho, Message: "hello world", Raw: "ECHO|hello world"},
		},
		{
			name:  "ECHO keeps later separators",
			input: "ECHO|a|b",
			want:  Directive{Verb: VerbEcho, Message: "a|b", Raw: "ECHO|a|b"},
		},
		{
			name:  "ECHO with empty message",
			input: "ECHO|",
			want:  Directive{Verb: VerbEcho, Message: "", Raw: "ECHO|"},
		},
		{
			name:    "ECHO without separator",
			input:   "ECHO",
			wantErr: true,
		},
		{
			name:    "lowercase verb",
			input:   "info",
			wantErr: true,
		},
		{
			name:    "INFO with argument",
			input:   "INFO|x",
			wantErr: true,
		},
		{
			name:    "blank",
			input:   "  \r\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirective(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirective() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseDirective() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDirective_UnknownVerb(t *testing.T) {
	_, err := ParseDirective("REBOOT now")
	var unknown *ErrUnknownDirective
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownDirective, got %v", err)
	}
	if unknown.Verb != "REBOOT now" {
		t.Errorf("Verb = %q, want %q", unknown.Verb, "REBOOT now")
	}
	if len(unknown.ValidVerbs) != len(ValidVerbs) {
		t.Errorf("ValidVerbs = %v, want %v", unknown.ValidVerbs, ValidVerbs)
	}
}

func TestParseDirective_Empty(t *testing.T) {
	if _, err := ParseDirective(""); !errors.Is(err, ErrEmptyDirective) {
		t.Errorf("expected ErrEmptyDirective, got %v", err)
	}
}

func TestIsExit(t *testing.T) {
	if !IsExit("EXIT") {
		t.Error("IsExit(EXIT) = false")
	}
	for _, s := range []string{"exit", "EXIT\n", " EXIT", "EXIT|now", ""} {
		if IsExit(s) {
			t.Errorf("IsExit(%q) = true, want false", s)
		}
	}
}

func TestEcho(t *testing.T) {
	if got := Echo("hi"); got != "ECHO|hi" {
		t.Errorf("Echo() = %q, want %q", got, "ECHO|hi")
	}
	d, err := ParseDirective(Echo("round trip"))
	if err != nil {
		t.Fatalf("ParseDirective(Echo()) error = %v", err)
	}
	if d.Message != "round trip" {
		t.Errorf("Message = %q, want %q", d.Message, "round trip")
	}
}
