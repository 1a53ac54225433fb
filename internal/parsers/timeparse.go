package parsers

import (
	"fmt"
	"strings"
	"time"
)

// Exports disagree wildly on date formats: 12- and 24-hour clocks, weekday
// prefixes, localized month names, and non-ASCII whitespace before the
// day-period marker (iOS emits U+202F there). parseTimestamp normalizes
// the raw string and then walks a layout list, the same approach the
// formats' real-world samples forced on every field below. A date that
// matches no layout is an error for the caller to log; records are never
// defaulted to epoch or "now".
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	// WhatsApp chat log lines, day-first tried before month-first.
	"2/1/06, 15:04:05",
	"2/1/06, 15:04",
	"2/1/2006, 15:04:05",
	"2/1/2006, 15:04",
	"2/1/06, 3:04:05 PM",
	"2/1/06, 3:04 PM",
	"1/2/06, 15:04:05",
	"1/2/06, 15:04",
	"1/2/06, 3:04:05 PM",
	"1/2/06, 3:04 PM",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 3:04 PM",
	// Meta HTML exports.
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006, 3:04:05 PM",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006, 3:04 PM",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006, 15:04",
	// Google Chat JSON, after the weekday prefix is stripped.
	"January 2, 2006 at 3:04:05 PM MST",
	"January 2, 2006 at 3:04 PM MST",
	"Jan 2, 2006 at 3:04:05 PM MST",
}

// Three-letter month prefixes, English and Italian, mapped onto the
// English abbreviations the layouts expect.
var monthPrefixes = map[string]string{
	"jan": "Jan", "feb": "Feb", "mar": "Mar", "apr": "Apr",
	"may": "May", "jun": "Jun", "jul": "Jul", "aug": "Aug",
	"sep": "Sep", "oct": "Oct", "nov": "Nov", "dec": "Dec",
	"gen": "Jan", "mag": "May", "giu": "Jun", "lug": "Jul",
	"ago": "Aug", "set": "Sep", "ott": "Oct", "dic": "Dec",
}

var fullMonthNames = map[string]string{
	"january": "January", "february": "February", "march": "March",
	"april": "April", "june": "June", "july": "July", "august": "August",
	"september": "September", "october": "October", "november": "November",
	"december": "December",
	"gennaio": "January", "febbraio": "February", "marzo": "March",
	"aprile": "April", "maggio": "May", "giugno": "June", "luglio": "July",
	"agosto": "August", "settembre": "September", "ottobre": "October",
	"novembre": "November", "dicembre": "December",
}

var weekdayPrefixes = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato", "domenica",
	"lunedi", "martedi", "mercoledi", "giovedi", "venerdi",
}

func parseTimestamp(raw string) (time.Time, error) {
	s := normalizeTimestamp(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

func normalizeTimestamp(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch r {
		case ' ', ' ', ' ':
			b.WriteRune(' ')
		case '‎', '‏', '‪', '‬':
			// Directionality marks WhatsApp sprinkles around dates.
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	s = stripWeekdayPrefix(s)
	s = translateMonths(s)
	s = normalizeDayPeriod(s)
	return s
}

func stripWeekdayPrefix(s string) string {
	lower := strings.ToLower(s)
	for _, day := range weekdayPrefixes {
		if strings.HasPrefix(lower, day) {
			rest := s[len(day):]
			rest = strings.TrimLeft(rest, ", ")
			return rest
		}
	}
	return s
}

// translateMonths rewrites month names to the English forms the layouts
// expect: full names (English or Italian) first, then abbreviated words
// matched by their three-letter prefix.
func translateMonths(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		trimmed := strings.TrimRight(w, ",.")
		suffix := w[len(trimmed):]
		lower := strings.ToLower(trimmed)
		if isNumeric(trimmed) || len(lower) < 3 {
			continue
		}
		if full, ok := fullMonthNames[lower]; ok {
			words[i] = full + suffix
			continue
		}
		// Abbreviated month words are at most five letters ("sett.").
		if len(lower) <= 5 {
			if abbr, ok := monthPrefixes[lower[:3]]; ok {
				words[i] = abbr + suffix
			}
		}
	}
	return strings.Join(words, " ")
}

// normalizeDayPeriod maps locale AM/PM markers onto the bare forms.
func normalizeDayPeriod(s string) string {
	replacements := []struct{ from, to string }{
		{"a.m.", "AM"}, {"p.m.", "PM"},
		{"a. m.", "AM"}, {"p. m.", "PM"},
		{"am", "AM"}, {"pm", "PM"},
	}
	lower := strings.ToLower(s)
	for _, r := range replacements {
		idx := strings.LastIndex(lower, " "+r.from)
		if idx < 0 {
			continue
		}
		end := idx + 1 + len(r.from)
		// Only rewrite a trailing marker or one followed by a timezone.
		if end == len(s) || s[end] == ' ' {
			return s[:idx+1] + r.to + s[end:]
		}
	}
	return s
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
