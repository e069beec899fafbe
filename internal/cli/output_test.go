package cli

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestOutputTable(t *testing.T) {
	var out, msgs bytes.Buffer
	o := NewOutputTo(&out, &msgs, false)

	o.Print([]string{"ID", "NOTES"}, [][]string{{"r1", ""}, {"r2", "bring socks"}}, nil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %q", out.String())
	}
	if !strings.HasPrefix(lines[2], "r1") || !strings.HasSuffix(lines[2], "-") {
		t.Errorf("empty cell should render as '-': %q", lines[2])
	}
	if msgs.Len() != 0 {
		t.Errorf("unexpected messages: %q", msgs.String())
	}
}

func TestOutputTableEmpty(t *testing.T) {
	var out, msgs bytes.Buffer
	NewOutputTo(&out, &msgs, false).Table([]string{"ID"}, nil)

	if out.Len() != 0 {
		t.Errorf("no data expected on stdout, got %q", out.String())
	}
	if !strings.Contains(msgs.String(), "No results") {
		t.Errorf("expected 'No results', got %q", msgs.String())
	}
}

func TestOutputJSON(t *testing.T) {
	var out, msgs bytes.Buffer
	NewOutputTo(&out, &msgs, true).Print([]string{"ID"}, [][]string{{"r1"}}, map[string]int{"meals": 40})

	if got := strings.TrimSpace(out.String()); got != "{\n  \"meals\": 40\n}" {
		t.Errorf("unexpected JSON: %q", got)
	}
}

func TestOutputError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint bool
	}{
		{"unauthorized", &APIError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "authentication required"}, true},
		{"validation", &APIError{Status: http.StatusUnprocessableEntity, Code: "VALIDATION_ERROR", Message: "no more stops"}, false},
		{"plain", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msgs bytes.Buffer
			NewOutputTo(&bytes.Buffer{}, &msgs, false).Error(tt.err)

			if !strings.HasPrefix(msgs.String(), "Error: ") {
				t.Errorf("unexpected output %q", msgs.String())
			}
			if got := strings.Contains(msgs.String(), "Hint:"); got != tt.wantHint {
				t.Errorf("hint: expected %v, got %v", tt.wantHint, got)
			}
		})
	}
}
