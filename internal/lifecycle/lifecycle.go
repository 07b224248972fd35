package lifecycle

import (
	"strconv"
	"strings"
	"time"

	"github.com/inspiredanalyst/submanager-server/internal/models"
)

// DateLayout is the canonical storage format for dates.
const DateLayout = "2006-01-02"

// expiringWindowDays is the daysRemaining threshold at or below which a
// subscription counts as expiring soon.
const expiringWindowDays = 3

// Evaluation is the derived lifecycle state of a record.
type Evaluation struct {
	Status        string
	DaysRemaining int
}

// Evaluate classifies an end date relative to now. Records without a
// parseable end date have no lifecycle and evaluate to Not Applicable;
// this one policy applies to custom-schema records (which carry no dates)
// and to default-schema records with a blank date alike.
func Evaluate(endDate string, now time.Time) Evaluation {
	end, ok := ParseDate(endDate)
	if !ok {
		return Evaluation{Status: models.StatusNotApplicable}
	}

	days := DaysUntil(end, now)
	switch {
	case days < 0:
		return Evaluation{Status: models.StatusExpired, DaysRemaining: days}
	case days <= expiringWindowDays:
		return Evaluation{Status: models.StatusExpiringSoon, DaysRemaining: days}
	default:
		return Evaluation{Status: models.StatusActive, DaysRemaining: days}
	}
}

// DaysUntil computes the whole calendar days from now until end, with both
// normalized to midnight UTC so time-of-day and timezone drift cannot move
// the boundary.
func DaysUntil(end, now time.Time) int {
	e := midnightUTC(end)
	n := midnightUTC(now)
	return int(e.Sub(n) / (24 * time.Hour))
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD and separated day-first dates such as
// 31/01/2025 or 31-01-2025. A 4-digit first segment means year-first;
// otherwise the string is read day-first. Day-first inputs with day <= 12
// are inherently ambiguous against month-first locales; the heuristic
// favors day-first, matching the data this system has always stored.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/'
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}

	var yearStr, monthStr, dayStr string
	if len(parts[0]) == 4 {
		yearStr, monthStr, dayStr = parts[0], parts[1], parts[2]
	} else {
		dayStr, monthStr, yearStr = parts[0], parts[1], parts[2]
	}

	year, err1 := strconv.Atoi(yearStr)
	month, err2 := strconv.Atoi(monthStr)
	day, err3 := strconv.Atoi(dayStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 1000 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject overflowed dates like 31/02 that time.Date would normalize.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a date in the canonical storage format.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddMonths advances a date by whole calendar months, clamping to the last
// day of the target month when the source day does not exist there:
// Jan 31 + 1 month = Feb 28 (or 29), never Mar 3.
func AddMonths(t time.Time, months int) time.Time {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	target := firstOfMonth.AddDate(0, months, 0)

	day := t.Day()
	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
