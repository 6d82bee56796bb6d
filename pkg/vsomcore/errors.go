// Package vsomcore holds the error taxonomy and the broker-error type used
// across the VSOM engine and hybrid retrieval core. It defines no shared
// service context; loggers, clocks and seeds are passed to each entry point
// separately.
package vsomcore

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy Component packages wrap one
// of these with fmt.Errorf("...: %w", ...) to add call-site context; callers
// use errors.Is against these values rather than matching strings.
var (
	// ErrBadInput covers dimension/shape/enum violations. Surfaced directly
	// to the caller.
	ErrBadInput = errors.New("vsomcore: bad input")

	// ErrNotReady means an operation was invoked before a required prior
	// state (e.g. cluster before train).
	ErrNotReady = errors.New("vsomcore: not ready")

	// ErrNoData means a training or indexing operation was given an empty
	// dataset.
	ErrNoData = errors.New("vsomcore: no data")

	// ErrTimedOut is per-source: the enhancement broker records it in its
	// partial-failure envelope and fusion continues with the local branch.
	// fusion.Merge never returns it, even when every source times out and
	// the local branch is empty; the local branch has no timeout of its own.
	ErrTimedOut = errors.New("vsomcore: timed out")

	// ErrRateLimited is external-source only, recorded in a broker's
	// partial-failure envelope; fusion continues without that source.
	ErrRateLimited = errors.New("vsomcore: rate limited")

	// ErrUpstreamFailure is external-source only, same handling as
	// ErrRateLimited.
	ErrUpstreamFailure = errors.New("vsomcore: upstream failure")

	// ErrCancelled means training was stopped by the caller's should_stop
	// predicate or stop() flag. Not an error condition to the caller: the
	// returned engine state is TrainingStopped, not Error.
	ErrCancelled = errors.New("vsomcore: cancelled")

	// ErrInternal covers anything unexpected. Always propagated with
	// source context, never swallowed.
	ErrInternal = errors.New("vsomcore: internal error")
)

// BrokerSource names one of the enhancement broker's external
// collaborators, used to tag per-source failures in a partial-failure
// envelope.
type BrokerSource string

const (
	SourceTextSearch          BrokerSource = "text_search"
	SourceStructuredKnowledge BrokerSource = "structured_knowledge"
	SourceEmbedding           BrokerSource = "embedding"
)

// BrokerError reports a single external source's failure without aborting
// the broker call as a whole: the broker and the fusion layer collect these
// into a partial-failure envelope rather than returning the first error seen.
type BrokerError struct {
	Source BrokerSource
	Reason error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("vsomcore: source %s failed: %v", e.Source, e.Reason)
}

func (e *BrokerError) Unwrap() error { return e.Reason }

// NewBrokerError tags reason with source, storing reason as given. Because
// BrokerError unwraps to reason, errors.Is(brokerErr, ErrRateLimited) holds
// exactly when reason itself is or wraps ErrRateLimited.
func NewBrokerError(source BrokerSource, reason error) *BrokerError {
	return &BrokerError{Source: source, Reason: reason}
}
