// Package subjectdate extracts a calendar date from free-form e-mail
// subject lines such as "Breakfast - Wed 5th March". The scan is fuzzy:
// the first recognizable date substring wins and surrounding words are
// ignored.
package subjectdate

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoDate is returned when the subject contains no recognizable date.
var ErrNoDate = errors.New("no recognizable date in subject")

// Date is a calendar date extracted from text. Its two renderings share
// the same day-month-year order; Short is URL-safe and used as a
// dashboard path segment.
type Date struct {
	t time.Time
}

// Time returns the underlying date at midnight UTC.
func (d Date) Time() time.Time { return d.t }

// Long renders the date as weekday name plus DD-MM-YY, e.g.
// "Wednesday, 05-03-25".
func (d Date) Long() string { return d.t.Format("Monday, 02-01-06") }

// Short renders the date as DD-MM-YY, e.g. "05-03-25".
func (d Date) Short() string { return d.t.Format("02-01-06") }

var (
	numericPattern = regexp.MustCompile(`^(\d{1,4})[-/.](\d{1,2})(?:[-/.](\d{1,4}))?$`)
	dayPattern     = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th)?$`)
	yearPattern    = regexp.MustCompile(`^\d{4}$`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Extract scans subject for the first recognizable date substring.
// Recognized forms are numeric dates (05/03/2025, 05-03-25, 2025-03-05),
// month-name forms with an optional ordinal day and year ("5th March",
// "March 5 2025"), a bare ordinal day ("the 5th", resolved within now's
// month), and the relative words today, tonight, tomorrow and
// yesterday ("tonight" is a synonym for today). A missing
// year resolves to now's year. Ambiguous small/small numeric pairs are
// read month-first.
//
// A weekday name alone is not a date. If nothing matches, Extract returns
// ErrNoDate.
func Extract(subject string, now time.Time) (Date, error) {
	tokens := tokenize(subject)
	for i := range tokens {
		if d, ok := matchAt(tokens, i, now); ok {
			return Date{d}, nil
		}
	}
	return Date{}, ErrNoDate
}

// tokenize lowercases the subject, splits on whitespace and strips edge
// punctuation that commonly clings to date tokens ("march,", "(5th)").
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `,.;:!?"'()[]<>`)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// matchAt tries to read a date starting at tokens[i].
func matchAt(tokens []string, i int, now time.Time) (time.Time, bool) {
	tok := tokens[i]

	switch tok {
	case "today", "tonight":
		return midnight(now), true
	case "tomorrow":
		return midnight(now.AddDate(0, 0, 1)), true
	case "yesterday":
		return midnight(now.AddDate(0, 0, -1)), true
	}

	if m := numericPattern.FindStringSubmatch(tok); m != nil {
		return numericDate(m, now)
	}

	// "March 5", "March 5th 2025"
	if month, ok := months[tok]; ok {
		if i+1 < len(tokens) {
			if day, _ := dayNumber(tokens[i+1]); day > 0 {
				year := yearOrDefault(tokens, i+2, now)
				return makeDate(year, month, day)
			}
		}
		return time.Time{}, false
	}

	// "5th March", "5 March 2025"
	if day, hasSuffix := dayNumber(tok); day > 0 {
		if i+1 < len(tokens) {
			if month, ok := months[tokens[i+1]]; ok {
				year := yearOrDefault(tokens, i+2, now)
				return makeDate(year, month, day)
			}
		}
		// A bare "5th" reads as that day of the current month; a bare
		// "5" is just a number.
		if hasSuffix {
			return makeDate(now.Year(), now.Month(), day)
		}
	}

	return time.Time{}, false
}

// numericDate interprets a numeric date match. Four-digit leading numbers
// are year-first (ISO order); otherwise the pair is read month-first
// unless the first number cannot be a month.
func numericDate(m []string, now time.Time) (time.Time, bool) {
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])

	if a >= 1000 {
		if m[3] == "" {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[3])
		return makeDate(a, time.Month(b), day)
	}

	month, day := a, b
	if a > 12 {
		month, day = b, a
	}

	year := now.Year()
	if m[3] != "" {
		y, _ := strconv.Atoi(m[3])
		year = normalizeYear(y)
	}

	return makeDate(year, time.Month(month), day)
}

// dayNumber parses a day token with an optional ordinal suffix. It returns
// 0 if the token is not a plausible day of month.
func dayNumber(tok string) (day int, hasSuffix bool) {
	m := dayPattern.FindStringSubmatch(tok)
	if m == nil {
		return 0, false
	}
	n, _ := strconv.Atoi(m[1])
	if n < 1 || n > 31 {
		return 0, false
	}
	return n, m[2] != ""
}

// yearOrDefault reads a four-digit year at tokens[i], falling back to
// now's year.
func yearOrDefault(tokens []string, i int, now time.Time) int {
	if i < len(tokens) && yearPattern.MatchString(tokens[i]) {
		y, _ := strconv.Atoi(tokens[i])
		return y
	}
	return now.Year()
}

// normalizeYear expands two-digit years: 00-69 are 2000s, 70-99 are 1900s.
func normalizeYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 70 {
		return 2000 + y
	}
	return 1900 + y
}

// makeDate validates the components by checking that time.Date did not
// normalize them away (rejecting e.g. February 30).
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
