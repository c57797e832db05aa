package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultWindowDays is used when no window is requested.
const DefaultWindowDays = 30

// Window selects how much price history to request: either a day count or
// a named timeframe token understood by the price API (e.g. "1y", "max").
type Window struct {
	Days      int
	Timeframe string
}

// Days returns a day-count window.
func Days(n int) Window { return Window{Days: n} }

// Timeframe returns a named-timeframe window.
func Timeframe(token string) Window { return Window{Timeframe: token} }

// ParseWindow turns user input into a Window. Digits become a day count,
// anything else is treated as a timeframe token. Empty input yields the default.
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Days(DefaultWindowDays), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return Window{}, fmt.Errorf("window days must be positive, got %d", n)
		}
		return Days(n), nil
	}
	return Timeframe(strings.ToLower(s)), nil
}

// IsZero reports whether no window was set.
func (w Window) IsZero() bool { return w.Days == 0 && w.Timeframe == "" }

// Query returns the query parameters for the price-history request.
func (w Window) Query() url.Values {
	q := url.Values{}
	if w.Timeframe != "" {
		q.Set("timeframe", w.Timeframe)
		return q
	}
	days := w.Days
	if days <= 0 {
		days = DefaultWindowDays
	}
	q.Set("days", strconv.Itoa(days))
	return q
}

func (w Window) String() string {
	if w.Timeframe != "" {
		return w.Timeframe
	}
	if w.Days <= 0 {
		return fmt.Sprintf("%dd", DefaultWindowDays)
	}
	return fmt.Sprintf("%dd", w.Days)
}
