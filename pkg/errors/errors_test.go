package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsAndGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"plain", New(ErrCodeParse, "bad %s", "x"), ErrCodeParse},
		{"wrapped", fmt.Errorf("ctx: %w", Usage("nope")), ErrCodeUsage},
		{"conflict", &ConflictError{Package: "a"}, ErrCodeConflict},
		{"resolution", fmt.Errorf("x: %w", &ResolutionError{Package: "a"}), ErrCodeResolution},
		{"stdlib", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%v, %q) = false", tt.err, tt.code)
			}
		})
	}
	if Is(errors.New("x"), "") {
		t.Error("Is with empty code should be false")
	}
}

func TestUserMessage(t *testing.T) {
	err := Wrap(ErrCodeProvider, errors.New("timeout"), "fetch %s", "requests")
	if got := UserMessage(err); got != "fetch requests: timeout" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("raw")); got != "raw" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestResolutionErrorListsChain(t *testing.T) {
	err := &ResolutionError{
		Package: "six",
		Requesters: []Requester{
			{From: "foo==1.0", Specifier: ">=1.5"},
			{From: "<root>", Specifier: "<1.2"},
		},
	}
	msg := err.UserMessage()
	for _, want := range []string{"six", "<root> requires <1.2", "foo==1.0 requires >=1.5"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
	if strings.Index(msg, "<root>") > strings.Index(msg, "foo==1.0") {
		t.Error("requesters should be sorted")
	}
}

func TestConflictErrorNamesBothRequesters(t *testing.T) {
	err := &ConflictError{
		Package: "a",
		First:   Requester{From: "<root>", Specifier: ">=2.0"},
		Second:  Requester{From: "<root>", Specifier: "<1.0"},
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "CONFLICT: ") || !strings.Contains(msg, ">=2.0") || !strings.Contains(msg, "<1.0") {
		t.Errorf("Error() = %q", msg)
	}
}
