package filemover

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"recmover/moverr"
)

// Recognized date shapes, tried in order. The first one that yields a valid
// calendar date wins; any time of day next to it is ignored.
//
//	2025-06-30 15-32-04, 2025_06_30, 2025.6.30, 2025/06/30  year first, separated
//	20250630, 20250630153204, 20250630T153204             year first, compact
//	06-30-2025, 30.06.2025                                month first unless the first number exceeds 12
//	June 30, 2025; Jun 30 2025; Sept-30-2025               month name first
//	30 June 2025; 30th Jun 2025; 30-Jun-2025               day first, month name
var (
	isoDate     = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4})[-_./]([0-9]{1,2})[-_./]([0-9]{1,2})(?:[^0-9]|$)`)
	compactDate = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4})([0-9]{2})([0-9]{2})(?:T?[0-9]{4}(?:[0-9]{2})?)?(?:[^0-9]|$)`)
	numericDate = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,2})[-_./]([0-9]{1,2})[-_./]([0-9]{4})(?:[^0-9]|$)`)
	monthFirst  = regexp.MustCompile(`(?i)(?:^|[^a-z])(` + monthAlternation + `)\.?[\s_-]+([0-9]{1,2})(?:st|nd|rd|th)?,?[\s_-]+([0-9]{4})(?:[^0-9]|$)`)
	dayFirst    = regexp.MustCompile(`(?i)(?:^|[^0-9])([0-9]{1,2})(?:st|nd|rd|th)?[\s_-]+(` + monthAlternation + `)\.?,?[\s_-]+([0-9]{4})(?:[^0-9]|$)`)
)

const monthAlternation = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var monthNames = map[string]time.Month{
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

// ParseDate extracts a calendar date from a file name stem.
func ParseDate(stem string) (time.Time, error) {
	if m := isoDate.FindStringSubmatch(stem); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return t, nil
		}
	}
	if m := compactDate.FindStringSubmatch(stem); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return t, nil
		}
	}
	if m := numericDate.FindStringSubmatch(stem); m != nil {
		if t, ok := buildDate(m[3], m[1], m[2]); ok {
			return t, nil
		}
		if t, ok := buildDate(m[3], m[2], m[1]); ok {
			return t, nil
		}
	}
	if m := monthFirst.FindStringSubmatch(stem); m != nil {
		if t, ok := buildNamedDate(m[3], m[1], m[2]); ok {
			return t, nil
		}
	}
	if m := dayFirst.FindStringSubmatch(stem); m != nil {
		if t, ok := buildNamedDate(m[3], m[2], m[1]); ok {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no date found in %q", stem)
}

// Stem returns the file name without its final extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Destination computes targetBase/YYYY/MM/DD/name for a file name. It fails with
// moverr.ErrDateParse when the name carries no recognizable date.
func Destination(name, targetBase string) (string, error) {
	date, err := ParseDate(Stem(name))
	if err != nil {
		return "", moverr.Wrap(moverr.ErrDateParse, "plan destination", name, err)
	}
	return path.Join(
		targetBase,
		fmt.Sprintf("%04d", date.Year()),
		fmt.Sprintf("%02d", int(date.Month())),
		fmt.Sprintf("%02d", date.Day()),
		name,
	), nil
}

func buildNamedDate(year, month, day string) (time.Time, bool) {
	m, ok := monthNames[strings.ToLower(month)]
	if !ok {
		return time.Time{}, false
	}
	return buildDate(year, strconv.Itoa(int(m)), day)
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1000 {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject instead.
	if t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
