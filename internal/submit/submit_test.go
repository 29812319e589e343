package submit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PentesterFlow/FormRelay/internal/form"
	"github.com/PentesterFlow/FormRelay/internal/relayerr"
	"github.com/PentesterFlow/FormRelay/internal/transport"
)

func openTestSession(t *testing.T, baseURL string) *transport.Session {
	t.Helper()
	s, err := transport.Open(transport.DefaultConfig(baseURL), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func extractedFixture() *form.Data {
	d := form.NewData()
	d.Set("token", "abc")
	d.Set("opt", "on")
	return d
}

func TestSubmit_MergedBody(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantBody  string
	}{
		{
			name:      "no overrides round-trips extracted values verbatim",
			overrides: nil,
			wantBody:  "token=abc&opt=on",
		},
		{
			name:      "override dominates",
			overrides: map[string]string{"token": "xyz"},
			wantBody:  "token=xyz&opt=on",
		},
		{
			name:      "unknown override appended",
			overrides: map[string]string{"injected": "1"},
			wantBody:  "token=abc&opt=on&injected=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				gotBody = string(body)
				w.Write([]byte("done"))
			}))
			defer server.Close()

			session := openTestSession(t, server.URL)
			s := New(session, Config{}, nil)

			var overrides *form.Data
			if tt.overrides != nil {
				overrides = form.NewData()
				for k, v := range tt.overrides {
					overrides.Set(k, v)
				}
			}

			result, err := s.Submit(context.Background(), extractedFixture(), overrides, form.Target{Action: "/go", Method: "POST"})
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if result.Outcome != Submitted {
				t.Errorf("Outcome = %v, want Submitted", result.Outcome)
			}
			if result.Response == nil || !result.Response.OK() {
				t.Error("expected 2xx response")
			}
			if gotBody != tt.wantBody {
				t.Errorf("body = %q, want %q", gotBody, tt.wantBody)
			}
		})
	}
}

func TestSubmit_NonOKReturnedToCaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	session := openTestSession(t, server.URL)
	s := New(session, Config{}, nil)

	result, err := s.Submit(context.Background(), extractedFixture(), nil, form.Target{Action: "/go", Method: "POST"})
	if err != nil {
		t.Fatalf("Submit() error = %v, non-2xx must not be an error", err)
	}
	if result.Outcome != Submitted {
		t.Errorf("Outcome = %v, want Submitted", result.Outcome)
	}
	if result.Response.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", result.Response.StatusCode)
	}
}

func TestSubmit_TransportErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	session := openTestSession(t, target)
	s := New(session, Config{}, nil)

	_, err := s.Submit(context.Background(), extractedFixture(), nil, form.Target{Action: "/go", Method: "POST"})
	if !relayerr.IsTransport(err) {
		t.Errorf("Submit() error = %v, want transport error", err)
	}
}

func TestSubmit_DowngradeToNoResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	session := openTestSession(t, target)
	s := New(session, Config{AllowNoResponse: true}, nil)

	result, err := s.Submit(context.Background(), extractedFixture(), nil, form.Target{Action: "/go", Method: "POST"})
	if err != nil {
		t.Fatalf("Submit() error = %v, want downgraded nil", err)
	}
	if result.Outcome != NoResponse {
		t.Errorf("Outcome = %v, want NoResponse", result.Outcome)
	}
	if result.Response != nil {
		t.Error("Response must be nil for NoResponse outcome")
	}
}

func TestSubmit_PostHeaders(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Requested-With")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	session := openTestSession(t, server.URL)
	s := New(session, Config{Headers: map[string]string{"X-Requested-With": "XMLHttpRequest"}}, nil)

	if _, err := s.Submit(context.Background(), extractedFixture(), nil, form.Target{Action: "/go", Method: "POST"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if gotHeader != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q, want XMLHttpRequest", gotHeader)
	}
}

func TestMergePreview(t *testing.T) {
	overrides := form.NewData()
	overrides.Set("token", "xyz")

	got := MergePreview(extractedFixture(), overrides)
	want := "token=xyz&opt=on"
	if got != want {
		t.Errorf("MergePreview() = %q, want %q", got, want)
	}
}
