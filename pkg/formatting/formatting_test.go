package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/concord/pkg/formatting"
)

type classReply struct {
	Class int `json:"class"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"direct JSON", `{"class": 3}`, 3},
		{"padded JSON", "  {\"class\":1}\n", 1},
		{"fenced JSON", "```json\n{\"class\": 5}\n```", 5},
		{"fence without language", "```\n{\"class\": 2}\n```", 2},
		{"embedded in prose", `La risposta è {"class": 4} secondo il contesto.`, 4},
		{"braces inside strings", `note: {"note": "a } b", "class": 6}`, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[classReply](tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got.Class != tt.want {
				t.Errorf("Class = %d, want %d", got.Class, tt.want)
			}
		})
	}
}

func TestParseFailure(t *testing.T) {
	inputs := []string{
		"",
		"not json at all",
		"{unterminated",
		"```json\nnope\n```",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := formatting.Parse[classReply](input)
			if !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("error = %v, want ErrParseFailed", err)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"512", 512, false},
		{"1KB", 1024, false},
		{"50MB", 50 * 1024 * 1024, false},
		{"1.5 kb", 1536, false},
		{"", 0, true},
		{"ten", 0, true},
		{"5XB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
