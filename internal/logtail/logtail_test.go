package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		level   string
		caller  string
		message string
		hasTime bool
	}{
		{
			name:    "empty line",
			input:   "",
			message: "",
		},
		{
			name:    "level braces",
			input:   "2025/10/08 21:01:05.123 [INFO]  subscription loaded",
			level:   "INFO",
			message: "subscription loaded",
			hasTime: true,
		},
		{
			name:    "caller",
			input:   "2025/10/08 21:01:05.123 [DEBUG] {api/client.go:88 api.(*Client).Do} GET /subscriptions",
			level:   "DEBUG",
			caller:  "api/client.go:88 api.(*Client).Do",
			message: "GET /subscriptions",
			hasTime: true,
		},
		{
			name:    "plain level",
			input:   "2025/10/08 21:01:05 WARN  rate limit low",
			level:   "WARN",
			message: "rate limit low",
			hasTime: true,
		},
		{
			name:    "no level",
			input:   "2025/10/08 21:01:05 starting",
			message: "starting",
			hasTime: true,
		},
		{
			name:    "bare level",
			input:   "[ERROR] refresh token: unauthorized",
			level:   "ERROR",
			message: "refresh token: unauthorized",
		},
		{
			name:    "unstructured",
			input:   "panic: something",
			message: "panic: something",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Parse(tt.input)
			if e.Level != tt.level {
				t.Errorf("Level = %q, want %q", e.Level, tt.level)
			}
			if e.Caller != tt.caller {
				t.Errorf("Caller = %q, want %q", e.Caller, tt.caller)
			}
			if e.Message != tt.message {
				t.Errorf("Message = %q, want %q", e.Message, tt.message)
			}
			if e.HasTime() != tt.hasTime {
				t.Errorf("HasTime() = %v, want %v", e.HasTime(), tt.hasTime)
			}
			if e.Raw != tt.input {
				t.Errorf("Raw = %q, want %q", e.Raw, tt.input)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	e := Parse("2025/10/08 21:01:05.250 [INFO] hello")
	want := time.Date(2025, 10, 8, 21, 1, 5, 250*int(time.Millisecond), time.Local)
	if !e.Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", e.Time, want)
	}
}

func TestParseLines(t *testing.T) {
	got := ParseLines([]string{"2025/10/08 21:01:05 [INFO] a", "b"})
	if len(got) != 2 {
		t.Fatalf("ParseLines() returned %d entries, want 2", len(got))
	}
	if got[0].Message != "a" || got[1].Message != "b" {
		t.Fatalf("ParseLines() messages = %q, %q", got[0].Message, got[1].Message)
	}
}
