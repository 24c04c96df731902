// Package dates turns the free-text publish dates shown under a note
// ("3 天前", "昨天 14:02", "10-12 广东", "2023-11-02") into YYYY-MM-DD.
package dates

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical output format.
const Layout = "2006-01-02"

// ErrUnrecognized is returned (wrapped) when no pattern matches. The
// accompanying string is still a best-effort value.
var ErrUnrecognized = errors.New("unrecognized date description")

var (
	todayMarkers     = []string{"今天", "today", "刚刚", "just now"}
	yesterdayMarkers = []string{"昨天", "yesterday"}

	reDaysAgo    = regexp.MustCompile(`(\d+)\s*(?:天前|days? ago)`)
	reHoursAgo   = regexp.MustCompile(`(\d+)\s*(?:小时前|hours? ago)`)
	reMinutesAgo = regexp.MustCompile(`(\d+)\s*(?:分钟前|minutes? ago|mins? ago)`)
	reFullDate   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	reShortMonth = regexp.MustCompile(`(?:^|\D)(\d-\d{2})(?:\D|$)`)
	reMonthDay   = regexp.MustCompile(`(?:^|\D)(\d{2}-\d{2})(?:\D|$)`)
)

// Normalizer resolves relative dates against a clock.
type Normalizer struct {
	// Now returns the reference time. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Normalizer reading the local wall clock.
func New() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize converts desc using the normalizer's clock.
func (n *Normalizer) Normalize(desc string) (string, error) {
	now := time.Now
	if n != nil && n.Now != nil {
		now = n.Now
	}
	return Normalize(desc, now())
}

// Normalize converts desc into YYYY-MM-DD relative to now. Rules are tried
// in order and the first match wins:
//
//  1. today markers (and minutes/hours ago)
//  2. yesterday markers
//  3. "N 天前" / "N days ago"
//  4. a full YYYY-MM-DD
//  5. M-DD with a single-digit month
//  6. MM-DD
//
// Month-day forms take the current year unless that would put the date in
// the future, in which case the previous year is used.
func Normalize(desc string, now time.Time) (string, error) {
	lower := strings.ToLower(desc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if containsAny(lower, todayMarkers) {
		return today.Format(Layout), nil
	}
	if m := reMinutesAgo.FindStringSubmatch(lower); m != nil {
		return now.Add(-time.Duration(atoi(m[1])) * time.Minute).Format(Layout), nil
	}
	if m := reHoursAgo.FindStringSubmatch(lower); m != nil {
		return now.Add(-time.Duration(atoi(m[1])) * time.Hour).Format(Layout), nil
	}
	if containsAny(lower, yesterdayMarkers) {
		return today.AddDate(0, 0, -1).Format(Layout), nil
	}
	if m := reDaysAgo.FindStringSubmatch(lower); m != nil {
		return today.AddDate(0, 0, -atoi(m[1])).Format(Layout), nil
	}
	if m := reFullDate.FindString(desc); m != "" {
		return m, nil
	}
	if m := reShortMonth.FindStringSubmatch(desc); m != nil {
		return withYear(today, "0"+m[1]), nil
	}
	if m := reMonthDay.FindStringSubmatch(desc); m != nil {
		slog.Info("date matched month-day fallback", "input", desc)
		return withYear(today, m[1]), nil
	}

	slog.Warn("unrecognized date description", "input", desc)
	return strings.TrimSpace(desc), fmt.Errorf("%w: %q", ErrUnrecognized, desc)
}

// withYear prefixes an MM-DD string with the year it most likely belongs to.
func withYear(today time.Time, monthDay string) string {
	year := today.Year()
	if t, err := time.ParseInLocation(Layout, fmt.Sprintf("%d-%s", year, monthDay), today.Location()); err == nil && t.After(today) {
		year--
	}
	return fmt.Sprintf("%d-%s", year, monthDay)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
