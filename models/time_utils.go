package models

import "time"

// DateLayout is the storage and provider format for match dates
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats t as YYYY-MM-DD in UTC
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date, also accepting RFC 3339 timestamps
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

// DaysApart returns the absolute number of calendar days between a and b
func DaysApart(a, b time.Time) int {
	diff := DateOnly(a).Sub(DateOnly(b)) / (24 * time.Hour)
	if diff < 0 {
		diff = -diff
	}
	return int(diff)
}
