package iconcollector

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Outcome classifies how a collection run ended.
type Outcome int

const (
	// OutcomeSuccess means the pipeline ran to completion. The record list
	// may still be empty.
	OutcomeSuccess Outcome = iota
	// OutcomeAuthRequired means no icons were visible and no credentials
	// were supplied.
	OutcomeAuthRequired
	// OutcomeLoginFailed means the login sequence could not be completed.
	OutcomeLoginFailed
	// OutcomeTimeout means a navigation or the run itself exceeded its
	// deadline.
	OutcomeTimeout
	// OutcomeFailed covers every other failure, such as the browser not
	// starting.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthRequired:
		return "auth_required"
	case OutcomeLoginFailed:
		return "login_failed"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText implements [encoding.TextMarshaler].
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result holds the icons extracted from one collection and how the run
// that produced them ended.
//
// A Result is returned by every run, including failed ones. Records is
// empty whenever Outcome is not [OutcomeSuccess].
type Result struct {
	// URL is the collection page that was scraped.
	URL string `json:"url"`
	// Size is the pixel size embedded in every record URL.
	Size int `json:"size"`
	// Records lists the icons in first-seen order.
	Records []IconRecord `json:"icons"`
	// Outcome tells why the run ended.
	Outcome Outcome `json:"outcome"`
	// Strategy is the extraction path that produced Records.
	Strategy Strategy `json:"strategy"`
	// Title is the collection page title, when it was read.
	Title string `json:"title,omitempty"`
	// Scrolls counts the pagination iterations performed.
	Scrolls int `json:"scrolls"`
	// Err is the underlying failure, if any.
	Err error `json:"-"`
	// CollectedAt is when the run finished.
	CollectedAt time.Time `json:"collected_at"`
}

// OK reports whether the run completed.
func (r *Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Len returns the number of extracted icons.
func (r *Result) Len() int {
	return len(r.Records)
}

// FailureReason describes why an unsuccessful run ended, or returns "".
func (r *Result) FailureReason() string {
	if r.OK() {
		return ""
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	}
	return r.Outcome.String()
}

// WriteTo writes the result as an indented JSON manifest to w. It
// implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("iconcollector: encoding manifest: %w", err)
	}
	data = append(data, '\n')
	n, err := w.Write(data)
	return int64(n), err
}

// WriteToFile writes the JSON manifest to the file at path, creating it
// if needed.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
