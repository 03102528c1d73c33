// Package dateutil converts token-style date formats such as "DD.MM.YYYY"
// to Go layouts and parses calendar dates with them.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length to prevent abuse.
const MaxDateFormatLength = 50

// Formats used across the pipeline.
const (
	// ISOLoose accepts "2024-03-15" as well as "2024-3-5".
	ISOLoose = "YYYY-M-D"
	// DottedLoose accepts "15.03.2024" as well as "5.3.2024".
	DottedLoose = "D.M.YYYY"
	// SlashedLoose accepts "15/03/2024".
	SlashedLoose = "D/M/YYYY"
	// DashedLoose accepts "15-03-2024".
	DashedLoose = "D-M-YYYY"
	// Compact is used in output file names ("20240315").
	Compact = "YYYYMMDD"
	// Timestamp is used for run-level output names ("20240315_142501").
	Timestamp = "YYYYMMDD_HHmmss"
)

// dateTokens maps user-friendly tokens to Go time format components.
// Ordered by length descending for greedy matching.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
	{"M", "1"},
	{"D", "2"},
}

// ParseDateFormat converts a user-friendly format string to Go's time format.
// Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D, HH, mm, ss
// Use brackets to escape literal text: [Date] preserves "Date" literally.
// Any non-token characters outside brackets are preserved as literals.
// Returns ErrInvalidDateFormat if the format is empty, too long, or has unclosed brackets.
func ParseDateFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var result strings.Builder
	result.Grow(len(format) + 10)

	i := 0
	for i < len(format) {
		// Handle bracket-escaped literal text
		if format[i] == '[' {
			end := strings.Index(format[i+1:], "]")
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			result.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				result.WriteString(t.goFmt)
				i += len(t.token)
				matched = true
				break
			}
		}

		if !matched {
			result.WriteByte(format[i])
			i++
		}
	}

	return result.String(), nil
}

// MustLayout is like ParseDateFormat but panics on an invalid format.
// Intended for package-level layout constants.
func MustLayout(format string) string {
	layout, err := ParseDateFormat(format)
	if err != nil {
		panic(err)
	}
	return layout
}

// Parse parses value with a token-style format. Surrounding whitespace is
// ignored. The returned time is midnight UTC for date-only formats.
func Parse(format, value string) (time.Time, error) {
	layout, err := ParseDateFormat(format)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q as %s: %w", value, format, err)
	}
	return t, nil
}
