// Package submit reconciles extracted form data with caller overrides and
// drives the POST back to the form's action.
package submit

import (
	"context"

	"github.com/PentesterFlow/FormRelay/internal/form"
	"github.com/PentesterFlow/FormRelay/internal/logger"
	"github.com/PentesterFlow/FormRelay/internal/relayerr"
	"github.com/PentesterFlow/FormRelay/internal/transport"
)

// Outcome tags what a submission produced. A falsy-response check is
// deliberately not used: "no network response" and "empty but valid
// response" are different things.
type Outcome int

const (
	// Submitted means the transport returned a response, any status code.
	Submitted Outcome = iota
	// NoResponse means the transport failed and the submitter was configured
	// to downgrade the failure to a warning.
	NoResponse
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	if o == NoResponse {
		return "no_response"
	}
	return "submitted"
}

// Result is the tagged outcome of a submission. Response is non-nil exactly
// when Outcome is Submitted.
type Result struct {
	Outcome  Outcome
	Response *transport.Response
}

// Config holds submitter configuration.
type Config struct {
	// Headers are applied to the POST request only.
	Headers map[string]string

	// AllowNoResponse downgrades a transport failure during the POST to a
	// warning plus a NoResponse result instead of an error. Callers must
	// check Result.Outcome when enabling this.
	AllowNoResponse bool
}

// Submitter drives form submission over a session. It is stateless apart
// from configuration; every call takes its inputs explicitly.
type Submitter struct {
	session *transport.Session
	cfg     Config
	sink    logger.Sink
}

// New creates a submitter over an open session.
func New(session *transport.Session, cfg Config, sink logger.Sink) *Submitter {
	if sink == nil {
		sink = logger.Nop()
	}
	return &Submitter{session: session, cfg: cfg, sink: sink}
}

// Submit merges extracted fields with overrides and POSTs the result to the
// target action. Overrides strictly dominate on key collision; override keys
// the form never declared are still included. Non-2xx responses are returned
// to the caller, not treated as errors.
func (s *Submitter) Submit(ctx context.Context, extracted, overrides *form.Data, target form.Target) (Result, error) {
	merged := extracted.Merge(overrides)

	s.sink.Debugf("submitting %d field(s) to %s", merged.Len(), target.Action)

	resp, err := s.session.Post(ctx, target.Action, merged, s.cfg.Headers)
	if err != nil {
		if s.cfg.AllowNoResponse && relayerr.IsTransport(err) {
			s.sink.Warnf("form submission returned no response: %v", err)
			return Result{Outcome: NoResponse}, nil
		}
		return Result{}, err
	}

	if !resp.OK() {
		s.sink.Warnf("form submission returned status %d", resp.StatusCode)
	} else {
		s.sink.Info("form submission successful")
	}

	return Result{Outcome: Submitted, Response: resp}, nil
}

// MergePreview returns the body that Submit would send, without performing
// any network I/O. Useful for test mode and dry runs.
func MergePreview(extracted, overrides *form.Data) string {
	return extracted.Merge(overrides).Encode()
}
