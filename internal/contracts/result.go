package contracts

import (
	"context"
	"errors"
	"net"
	"time"
)

// Sentinel errors shared by collaborators
var (
	// ErrNoData means the source answered but holds nothing for the key
	ErrNoData = errors.New("no data")
	// ErrMalformed means the response could not be parsed
	ErrMalformed = errors.New("malformed response")
	// ErrFundamentalsUnavailable means the profit gate could not be decided
	ErrFundamentalsUnavailable = errors.New("fundamentals unavailable")
	// ErrUniverseUnavailable means no listing could be obtained
	ErrUniverseUnavailable = errors.New("universe unavailable")
)

// ScreeningResult is one qualifying instrument
type ScreeningResult struct {
	Instrument   Instrument        `json:"instrument"`
	Signals      SignalSet         `json:"signals"`
	Fundamentals *FundamentalsFact `json:"fundamentals,omitempty"`
	Flow         *FlowFact         `json:"flow,omitempty"`
	DualBuying   bool              `json:"dual_buying"`
}

// OutcomeKind classifies a per-instrument evaluation
type OutcomeKind string

const (
	OutcomeQualified        OutcomeKind = "qualified"
	OutcomeRejected         OutcomeKind = "rejected"
	OutcomeInsufficientData OutcomeKind = "insufficient_data"
	OutcomeFetchError       OutcomeKind = "fetch_error"
)

// FetchErrorKind classifies a failed external call
type FetchErrorKind string

const (
	FetchTimeout     FetchErrorKind = "timeout"
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchNotFound    FetchErrorKind = "not_found"
	FetchMalformed   FetchErrorKind = "malformed"
	FetchTransport   FetchErrorKind = "transport"
)

// Outcome is the explicit per-instrument result of one evaluation
type Outcome struct {
	Instrument Instrument       `json:"instrument"`
	Kind       OutcomeKind      `json:"kind"`
	Result     *ScreeningResult `json:"result,omitempty"`
	Reason     string           `json:"reason,omitempty"` // 탈락 조건 이름
	FetchKind  FetchErrorKind   `json:"fetch_kind,omitempty"`
	Err        error            `json:"-"`
	Duration   time.Duration    `json:"duration"`
}

// Qualified builds a qualifying outcome
func Qualified(r *ScreeningResult) Outcome {
	return Outcome{Instrument: r.Instrument, Kind: OutcomeQualified, Result: r}
}

// Rejected builds an outcome for a failed predicate
func Rejected(inst Instrument, reason string) Outcome {
	return Outcome{Instrument: inst, Kind: OutcomeRejected, Reason: reason}
}

// InsufficientData builds a skip outcome
func InsufficientData(inst Instrument, err error) Outcome {
	return Outcome{Instrument: inst, Kind: OutcomeInsufficientData, Err: err}
}

// FetchError builds an outcome for a failed external call
func FetchError(inst Instrument, err error) Outcome {
	return Outcome{Instrument: inst, Kind: OutcomeFetchError, FetchKind: ClassifyFetchError(err), Err: err}
}

// statusCoder is satisfied by HTTP status errors from pkg/httputil
type statusCoder interface {
	HTTPStatus() int
}

// ClassifyFetchError maps an error chain onto a FetchErrorKind
func ClassifyFetchError(err error) FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FetchTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FetchTimeout
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.HTTPStatus(); {
		case code == 429:
			return FetchRateLimited
		case code == 404:
			return FetchNotFound
		}
	}

	switch {
	case errors.Is(err, ErrNoData):
		return FetchNotFound
	case errors.Is(err, ErrMalformed):
		return FetchMalformed
	}
	return FetchTransport
}
