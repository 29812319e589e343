// Package relay wires the transport, form extractor, and submitter into the
// fetch-extract-merge-resubmit pipeline.
package relay

import (
	"context"
	"sort"
	"time"

	"github.com/PentesterFlow/FormRelay/internal/form"
	"github.com/PentesterFlow/FormRelay/internal/logger"
	"github.com/PentesterFlow/FormRelay/internal/submit"
	"github.com/PentesterFlow/FormRelay/internal/transport"
)

// Relay runs the single-form fetch and resubmission workflow.
type Relay struct {
	cfg  *Config
	sink logger.Sink
}

// Result is what one run produces.
type Result struct {
	// Extracted is the field snapshot taken from the page.
	Extracted map[string]string

	// FieldOrder is the document order of the extracted fields.
	FieldOrder []string

	// Target is the resolved submission target.
	Target form.Target

	// Outcome tags the submission: Submitted or NoResponse. In test mode the
	// outcome is NoResponse with SkippedPost set.
	Outcome submit.Outcome

	// SkippedPost is true when test mode suppressed the POST.
	SkippedPost bool

	// StatusCode and Body come from the POST response when Outcome is
	// Submitted.
	StatusCode int
	Body       []byte
	FinalURL   string

	Duration time.Duration
}

// New creates a relay from options.
func New(opts ...Option) (*Relay, error) {
	r := &Relay{
		cfg:  DefaultConfig(),
		sink: logger.Nop(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Run executes the pipeline: GET the page, extract the form, surface
// document cookies into the session jar, merge overrides, POST. The session
// is released on every exit path. Extraction and transport errors propagate
// to the caller; the only downgrade is the configured no-response case
// inside the submitter.
func (r *Relay) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	base, path, params, err := splitURL(r.cfg.URL)
	if err != nil {
		return nil, err
	}

	tcfg := transport.DefaultConfig(base)
	tcfg.Timeout = r.cfg.Timeout
	tcfg.Headers = r.cfg.Headers
	tcfg.HeaderSets = r.cfg.HeaderSets
	tcfg.RequestsPerSecond = r.cfg.RequestsPerSecond
	tcfg.Burst = r.cfg.Burst
	tcfg.SkipTLSVerify = r.cfg.SkipTLSVerify

	session, err := transport.Open(tcfg, r.sink)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	resp, err := session.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		r.sink.Warnf("page fetch returned status %d", resp.StatusCode)
	}

	extractor, err := form.NewExtractor(base, r.cfg.FallbackAction, r.sink)
	if err != nil {
		return nil, err
	}

	extracted, target, cookies, err := extractor.Extract(string(resp.Body), r.cfg.Selector)
	if err != nil {
		return nil, err
	}
	session.AddCookies(cookies)

	overrides := orderedOverrides(r.cfg.Overrides)

	result := &Result{
		Extracted:  extracted.Map(),
		FieldOrder: extracted.Keys(),
		Target:     target,
	}

	if r.cfg.TestMode {
		r.sink.Infof("test mode enabled, POST skipped; body would be %q", submit.MergePreview(extracted, overrides))
		result.Outcome = submit.NoResponse
		result.SkippedPost = true
		result.Duration = time.Since(start)
		return result, nil
	}

	submitter := submit.New(session, submit.Config{
		Headers:         r.cfg.PostHeaders,
		AllowNoResponse: r.cfg.AllowNoResponse,
	}, r.sink)

	subResult, err := submitter.Submit(ctx, extracted, overrides, target)
	if err != nil {
		return nil, err
	}

	result.Outcome = subResult.Outcome
	if subResult.Response != nil {
		result.StatusCode = subResult.Response.StatusCode
		result.Body = subResult.Response.Body
		result.FinalURL = subResult.Response.FinalURL
	}
	result.Duration = time.Since(start)

	return result, nil
}

// orderedOverrides builds override data with deterministic (sorted) order so
// appended unknown fields encode the same way on every run.
func orderedOverrides(overrides map[string]string) *form.Data {
	data := form.NewData()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Set(k, overrides[k])
	}
	return data
}
