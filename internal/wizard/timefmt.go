package wizard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Meridiem is the AM/PM marker of a 12-hour time label.
type Meridiem int

const (
	NoMeridiem Meridiem = iota
	AM
	PM
)

// Language selects the AM/PM markers used for slot labels.
type Language string

const (
	English    Language = "en"
	Vietnamese Language = "vi"
)

// ParseLanguage maps a config value onto a Language, defaulting to Vietnamese.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(English)) {
		return English
	}
	return Vietnamese
}

func (l Language) markers() (am, pm string) {
	if l == English {
		return "AM", "PM"
	}
	return "SA", "CH"
}

var meridiemMarkers = map[string]Meridiem{
	"AM":    AM,
	"SA":    AM,
	"SÁNG":  AM,
	"SANG":  AM,
	"PM":    PM,
	"CH":    PM,
	"CHIỀU": PM,
	"CHIEU": PM,
}

// ParseTimeLabel parses labels such as "10:00 SA", "1:30 PM", "10:00am" or
// "22:15" into 24-hour components.
func ParseTimeLabel(label string) (hour, minute int, err error) {
	clock, meridiem, err := splitLabel(label)
	if err != nil {
		return 0, 0, err
	}
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("wizard: time %q must look like hh:mm", label)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("wizard: invalid time %q", label)
	}
	if meridiem == NoMeridiem {
		if h < 0 || h > 23 {
			return 0, 0, fmt.Errorf("wizard: invalid time %q", label)
		}
	} else if h < 1 || h > 12 {
		return 0, 0, fmt.Errorf("wizard: invalid 12-hour time %q", label)
	}
	h, m = To24Hour(h, m, meridiem)
	return h, m, nil
}

func splitLabel(label string) (string, Meridiem, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return "", NoMeridiem, fmt.Errorf("wizard: empty time")
	}
	idx := strings.IndexFunc(s, func(r rune) bool {
		return r != ':' && (r < '0' || r > '9')
	})
	if idx < 0 {
		return s, NoMeridiem, nil
	}
	clock := strings.TrimSpace(s[:idx])
	marker := strings.NewReplacer(".", "", " ", "").Replace(s[idx:])
	meridiem, ok := meridiemMarkers[marker]
	if !ok {
		return "", NoMeridiem, fmt.Errorf("wizard: unknown time marker in %q", label)
	}
	return clock, meridiem, nil
}

// To24Hour applies the 12-hour rule: PM adds 12 unless the hour is 12, and
// 12 AM becomes 0. Everything else passes through.
func To24Hour(hour, minute int, m Meridiem) (int, int) {
	switch {
	case m == PM && hour != 12:
		hour += 12
	case m == AM && hour == 12:
		hour = 0
	}
	return hour, minute
}

// FormatTimeLabel renders 24-hour components as a 12-hour label.
func FormatTimeLabel(hour, minute int, lang Language) string {
	am, pm := lang.markers()
	marker := am
	if hour >= 12 {
		marker = pm
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, minute, marker)
}

// TimeSlots lists the bookable slot labels, 09:00 to 19:00 every 30 minutes.
func TimeSlots(lang Language) []string {
	var out []string
	for mins := 9 * 60; mins <= 19*60; mins += 30 {
		out = append(out, FormatTimeLabel(mins/60, mins%60, lang))
	}
	return out
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("wizard: invalid date %q", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ComposeInstant applies hour and minute to date in loc with zero seconds.
func ComposeInstant(d Date, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// EncodeTimestamp returns whole seconds since the epoch.
func EncodeTimestamp(t time.Time) int64 {
	return t.Unix()
}

// DecodeTimestamp turns encoded seconds back into a date and wall clock in loc.
func DecodeTimestamp(sec int64, loc *time.Location) (Date, int, int) {
	if loc == nil {
		loc = time.Local
	}
	t := time.Unix(sec, 0).In(loc)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, t.Hour(), t.Minute()
}
