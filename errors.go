package iconcollector

import "errors"

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Collector].
	ErrClosed = errors.New("iconcollector: collector is closed")

	// ErrInvalidRequest is returned for a [CollectionRequest] that cannot
	// be run, such as one with an unparsable URL or a negative size.
	ErrInvalidRequest = errors.New("iconcollector: invalid request")

	// ErrAuthRequired reports that the collection page shows no icons and
	// no credentials were supplied to log in.
	ErrAuthRequired = errors.New("iconcollector: authentication required, no credentials provided")

	// ErrLoginControlNotFound reports that neither a login control nor a
	// submit control could be located on the page.
	ErrLoginControlNotFound = errors.New("iconcollector: login control not found")

	// ErrLoginFormNotFound reports that the login form never became visible.
	ErrLoginFormNotFound = errors.New("iconcollector: login form not found")
)
