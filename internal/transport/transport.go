// Package transport provides the cookie-aware HTTP session used to fetch
// and resubmit forms.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/PentesterFlow/FormRelay/internal/form"
	"github.com/PentesterFlow/FormRelay/internal/logger"
	"github.com/PentesterFlow/FormRelay/internal/relayerr"
)

// Config holds configuration for a Session.
type Config struct {
	// BaseURL all request paths are resolved against.
	BaseURL string

	// Timeout bounds each request end to end. Never silently infinite; the
	// zero value is replaced by DefaultTimeout.
	Timeout time.Duration

	// Headers are static headers applied to every request.
	Headers map[string]string

	// HeaderSets, when non-empty, is a pool of header sets; one is chosen at
	// session open, avoiding recently used sets.
	HeaderSets []map[string]string

	// UserAgent is used when no header set supplies one.
	UserAgent string

	// RequestsPerSecond paces outgoing requests. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int

	// FollowRedirects enables redirect following (on by default).
	FollowRedirects bool

	// SkipTLSVerify disables certificate verification.
	SkipTLSVerify bool

	// MaxBodySize caps how much of a response body is read.
	MaxBodySize int64

	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

// DefaultTimeout is the documented request timeout when none is configured.
const DefaultTimeout = 30 * time.Second

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:             baseURL,
		Timeout:             DefaultTimeout,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		FollowRedirects:     true,
		MaxBodySize:         5 * 1024 * 1024,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
	}
}

// Response is the observable part of an HTTP exchange. A non-2xx status is
// not an error; callers branch on StatusCode.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	FinalURL   string
	Duration   time.Duration
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Session performs GET/POST over a persistent cookie-aware connection pool.
// It exclusively owns the underlying connections and jar. A Session is not
// intended for concurrent callers: cookie updates happen only inside
// Get/Post completion, so any future concurrent use must serialize them.
type Session struct {
	client    *http.Client
	jar       http.CookieJar
	base      *url.URL
	headers   map[string]string
	userAgent string
	limiter   *rate.Limiter
	maxBody   int64
	sink      logger.Sink
	closed    atomic.Bool
}

// Open acquires a session against cfg.BaseURL. The caller owns the returned
// Session and must Close it on every exit path, typically via defer.
func Open(cfg Config, sink logger.Sink) (*Session, error) {
	if sink == nil {
		sink = logger.Nop()
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, relayerr.New(relayerr.Unknown, cfg.BaseURL, "open", "invalid base URL", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, relayerr.New(relayerr.Unknown, cfg.BaseURL, "open", "base URL must be http or https", nil)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 5 * 1024 * 1024
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 20
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, relayerr.New(relayerr.Unknown, cfg.BaseURL, "open", "cookie jar init failed", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.SkipTLSVerify,
		},
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Timeout,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		}
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if len(cfg.HeaderSets) > 0 {
		picked := NewRotator(cfg.HeaderSets).Pick()
		for k, v := range picked {
			headers[k] = v
		}
		sink.Debugf("selected header set with %d entries", len(picked))
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	s := &Session{
		client:    client,
		jar:       jar,
		base:      base,
		headers:   headers,
		userAgent: cfg.UserAgent,
		limiter:   limiter,
		maxBody:   cfg.MaxBodySize,
		sink:      sink,
	}

	sink.Infof("HTTP session opened for %s (timeout %s)", base.String(), cfg.Timeout)
	return s, nil
}

// Get issues a GET against base URL + path with the given query parameters.
// Session cookies are attached automatically and Set-Cookie headers from the
// response update the jar before Get returns.
func (s *Session) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	target, err := s.resolve(path, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, relayerr.New(relayerr.Unknown, target, "get", "request creation failed", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	return s.do(req, nil)
}

// Post issues a POST with the form encoding of data as the body. Field order
// is preserved byte for byte. extra headers apply to this request only.
func (s *Session) Post(ctx context.Context, path string, data *form.Data, extra map[string]string) (*Response, error) {
	target, err := s.resolve(path, nil)
	if err != nil {
		return nil, err
	}

	body := ""
	if data != nil {
		body = data.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return nil, relayerr.New(relayerr.Unknown, target, "post", "request creation failed", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.do(req, extra)
}

// do applies session headers, paces the request, executes it, and reads a
// bounded response body.
func (s *Session) do(req *http.Request, extra map[string]string) (*Response, error) {
	op := strings.ToLower(req.Method)

	if s.closed.Load() {
		return nil, relayerr.NewTransportError(req.URL.String(), op, errSessionClosed)
	}

	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(req.Context()); err != nil {
			return nil, relayerr.Categorize(err, req.URL.String(), op)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, relayerr.Categorize(err, req.URL.String(), op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, relayerr.NewTransportError(req.URL.String(), op+"_body_read", err)
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
		Duration:   time.Since(start),
	}

	s.sink.Infof("%s %s -> %d (%s)", req.Method, req.URL.String(), result.StatusCode, result.Duration.Round(time.Millisecond))
	return result, nil
}

// AddCookies merges document-surfaced cookies into the jar. The jar applies
// last-write-wins per (name, domain, path), same as header-derived cookies.
func (s *Session) AddCookies(cookies []*form.ScriptCookie) {
	if len(cookies) == 0 {
		return
	}
	hc := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc = append(hc, c.HTTPCookie())
	}
	s.jar.SetCookies(s.base, hc)
	s.sink.Infof("merged %d document cookie(s) into session jar", len(hc))
}

// Cookies returns the cookies the jar would send to the base URL.
func (s *Session) Cookies() []*http.Cookie {
	return s.jar.Cookies(s.base)
}

// BaseURL returns the session's base URL.
func (s *Session) BaseURL() string {
	return s.base.String()
}

// Close releases the session's connections. In-flight requests fail with a
// transport error. Close is idempotent.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	if t, ok := s.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	s.sink.Info("HTTP session closed")
}

// resolve joins a path (possibly absolute) with the base URL and query params.
func (s *Session) resolve(path string, params url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", relayerr.New(relayerr.Unknown, path, "resolve", "invalid request path", err)
	}
	u := s.base.ResolveReference(ref)

	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

var errSessionClosed = errors.New("session closed")
