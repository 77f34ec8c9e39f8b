package cmd

import (
	"reflect"
	"testing"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{
			name:  "empty flag becomes empty object",
			input: "",
			want:  map[string]string{},
		},
		{
			name:  "JSON object passes through",
			input: `{"url":"https://example.com","count":2}`,
			want:  map[string]any{"url": "https://example.com", "count": float64(2)},
		},
		{
			name:  "JSON array passes through",
			input: `["a","b"]`,
			want:  []any{"a", "b"},
		},
		{
			name:  "plain text is wrapped as a message",
			input: "read the appendix again",
			want:  map[string]string{"message": "read the appendix again"},
		},
		{
			name:  "malformed JSON is treated as plain text",
			input: `{"broken":`,
			want:  map[string]string{"message": `{"broken":`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parsePayload(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("parsePayload(%q) = %#v, want %#v", tc.input, got, tc.want)
			}
		})
	}
}
