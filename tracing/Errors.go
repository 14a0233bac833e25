package tracing

import "errors"

// TracingError implements errors unique to reward tracing caches
type TracingError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *TracingError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *TracingError) Unwrap() error {
	return e.Err
}

var errEpisodeDone = errors.New("please flush cache (or repeatedly call " +
	"Pop) before appending new transitions")

var errInsufficientCache = errors.New("cache needs to receive more " +
	"transitions before it can be popped from")

// IsEpisodeDone returns whether or not an error reports that a
// transition was added to a cache still holding transitions from a
// finished episode.
func IsEpisodeDone(err error) bool {
	if tracingErr, ok := err.(*TracingError); ok {
		err = tracingErr.Err
	}
	return err == errEpisodeDone
}

// IsInsufficientCache returns whether or not an error reports that a
// cache was popped from before it was ready.
//
// A cache is ready to be popped from if it is non-empty and either the
// episode has ended or it holds more than n transitions.
func IsInsufficientCache(err error) bool {
	if tracingErr, ok := err.(*TracingError); ok {
		err = tracingErr.Err
	}
	return err == errInsufficientCache
}
