// Package timebucket turns raw timestamps into values the feature pipeline
// can group on.
package timebucket

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DefaultLayout matches timestamps such as "2024-01-31 17:45:02.123456".
// The fractional part is optional.
const DefaultLayout = "2006-01-02 15:04:05.999999999"

// ToCalendarDay truncates a timestamp to its calendar date in the
// timestamp's own location.
func ToCalendarDay(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// ParseError reports a timestamp that does not match the expected layout.
type ParseError struct {
	Input  string
	Layout string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q with layout %q: %v", e.Input, e.Layout, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Result holds either a parsed timestamp or the reason parsing failed.
// Callers must check OK before using Time.
type Result struct {
	Time time.Time
	Err  *ParseError
}

// OK reports whether parsing succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Parse parses text with layout. An empty layout means DefaultLayout.
// Surrounding whitespace is ignored.
func Parse(text, layout string) Result {
	if layout == "" {
		layout = DefaultLayout
	}
	s := strings.TrimSpace(text)
	if s == "" {
		return Result{Err: &ParseError{Input: text, Layout: layout, Err: fmt.Errorf("empty timestamp")}}
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Result{Err: &ParseError{Input: text, Layout: layout, Err: err}}
	}
	return Result{Time: t}
}
