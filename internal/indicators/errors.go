// Package indicators computes technical signals from a daily price series.
// Every function is pure; short or degenerate input yields ErrInsufficientData.
package indicators

import "errors"

// ErrInsufficientData means the series is too short or the indicator is undefined
var ErrInsufficientData = errors.New("insufficient data")
