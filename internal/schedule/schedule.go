package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/five82/digest/internal/api"
)

// DefaultTimezone is where the backend schedules pushes.
const DefaultTimezone = "Asia/Taipei"

// Tick intervals of the dashboard's live elements.
const (
	CountdownInterval = time.Minute
	ProgressInterval  = time.Second
)

var defaultTimes = map[string][]string{
	api.FrequencyDaily:  {"08:00"},
	api.FrequencyTwice:  {"08:00", "20:00"},
	api.FrequencyThrice: {"08:00", "13:00", "20:00"},
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses "HH:MM".
func ParseClock(raw string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Clock{}, fmt.Errorf("invalid time %q", raw)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", raw)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// Times returns the sorted push times of a frequency tier. Server-provided
// options win over the built-in table; unknown tiers fall back to daily.
func Times(frequency string, options []api.FrequencyOption) []Clock {
	raw := defaultTimes[frequency]
	for _, opt := range options {
		if opt.Value == frequency && len(opt.PushTimes) > 0 {
			raw = opt.PushTimes
			break
		}
	}
	if raw == nil {
		raw = defaultTimes[api.FrequencyDaily]
	}

	clocks := make([]Clock, 0, len(raw))
	for _, r := range raw {
		c, err := ParseClock(r)
		if err != nil {
			continue
		}
		clocks = append(clocks, c)
	}
	sort.Slice(clocks, func(i, j int) bool {
		if clocks[i].Hour != clocks[j].Hour {
			return clocks[i].Hour < clocks[j].Hour
		}
		return clocks[i].Minute < clocks[j].Minute
	})
	return clocks
}

// Location loads name, falling back to a fixed UTC+8 zone when the tz
// database is unavailable.
func Location(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// NextPush returns the first push strictly after now. It returns the zero
// time when times is empty.
func NextPush(times []Clock, loc *time.Location, now time.Time) time.Time {
	if len(times) == 0 {
		return time.Time{}
	}
	if loc == nil {
		loc = Location("")
	}
	local := now.In(loc)
	y, m, d := local.Date()
	for day := 0; day < 2; day++ {
		for _, c := range times {
			at := time.Date(y, m, d+day, c.Hour, c.Minute, 0, 0, loc)
			if at.After(local) {
				return at
			}
		}
	}
	return time.Time{}
}

// Countdown formats the time until the next push as "Xh Ym".
func Countdown(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// Ago formats how long ago something happened.
func Ago(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}

// Describe renders a tier as "08:00, 20:00".
func Describe(times []Clock) string {
	parts := make([]string, len(times))
	for i, c := range times {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
