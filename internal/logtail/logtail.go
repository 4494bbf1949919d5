package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   string
	Caller  string
	Message string
	// Raw is the unparsed line.
	Raw string
}

// HasTime reports whether the line carried a timestamp.
func (e Entry) HasTime() bool { return !e.Time.IsZero() }

var (
	linePattern = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}(?:\.\d{1,6})?)\s+(?:\[(\w+)\]|(TRACE|DEBUG|INFO|WARN|ERROR|PANIC|FATAL)\b)?\s*(?:\{([^}]*)\})?\s*(.*)$`)
	bareLevel   = regexp.MustCompile(`^\[(TRACE|DEBUG|INFO|WARN|ERROR|PANIC|FATAL)\]\s*(.*)$`)
)

// Parse splits a line written by lgr ("2025/10/08 21:01:05.123 [INFO] {caller} msg").
// Lines that don't match come back with only Message and Raw set.
func Parse(line string) Entry {
	e := Entry{Raw: line, Message: line}
	if m := linePattern.FindStringSubmatch(line); m != nil {
		// Fractional seconds parse without appearing in the layout.
		if ts, err := time.ParseInLocation("2006/01/02 15:04:05", m[1], time.Local); err == nil {
			e.Time = ts
		}
		e.Level = strings.ToUpper(m[2] + m[3])
		e.Caller = m[4]
		e.Message = m[5]
		return e
	}
	// log.Printf("[WARN] ...") lines written before lgr is set up.
	if m := bareLevel.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
		e.Level = m[1]
		e.Message = m[2]
	}
	return e
}

// ParseLines parses every line.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, len(lines))
	for i, line := range lines {
		out[i] = Parse(line)
	}
	return out
}
