package relayerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestType_String(t *testing.T) {
	tests := []struct {
		errType Type
		want    string
	}{
		{Transport, "transport"},
		{Timeout, "timeout"},
		{FormNotFound, "form_not_found"},
		{MalformedForm, "malformed_form"},
		{Cancelled, "cancelled"},
		{Unknown, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.errType.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.errType, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	e := NewTransportError("https://example.com", "get", errors.New("refused"))
	msg := e.Error()

	for _, part := range []string{"transport", "get", "https://example.com", "refused"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := NewTransportError("https://example.com", "get", cause)

	if !errors.Is(e, cause) {
		t.Error("errors.Is() should see the wrapped cause")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Type
	}{
		{
			name: "nil",
			err:  nil,
			want: Unknown, // Categorize(nil) returns nil, checked below
		},
		{
			name: "connection refused",
			err:  &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			want: Transport,
		},
		{
			name: "dns failure",
			err:  &net.DNSError{Err: "no such host", Name: "nope.invalid"},
			want: Transport,
		},
		{
			name: "context cancelled",
			err:  context.Canceled,
			want: Cancelled,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: Timeout,
		},
		{
			name: "wrapped relay error keeps its type",
			err:  fmt.Errorf("wrapped: %w", NewFormNotFoundError("https://example.com", "#f")),
			want: FormNotFound,
		},
		{
			name: "anything else",
			err:  errors.New("mystery"),
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err, "https://example.com", "get")
			if tt.err == nil {
				if got != nil {
					t.Errorf("Categorize(nil) = %v, want nil", got)
				}
				return
			}
			if got.Type != tt.want {
				t.Errorf("Categorize() type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	transportErr := NewTransportError("u", "get", nil)
	timeoutErr := NewTimeoutError("u", "get", nil)
	notFoundErr := NewFormNotFoundError("u", "#form")
	malformedErr := NewMalformedFormError("u", "no action")

	if !IsTransport(transportErr) || !IsTransport(timeoutErr) {
		t.Error("IsTransport should cover transport and timeout")
	}
	if IsTransport(notFoundErr) {
		t.Error("IsTransport(FormNotFound) = true")
	}
	if !IsFormNotFound(notFoundErr) {
		t.Error("IsFormNotFound(FormNotFound) = false")
	}
	if !IsMalformedForm(malformedErr) {
		t.Error("IsMalformedForm(MalformedForm) = false")
	}
	if IsFormNotFound(fmt.Errorf("plain")) {
		t.Error("IsFormNotFound(plain error) = true")
	}
}

func TestErrorIs_ByType(t *testing.T) {
	a := NewFormNotFoundError("https://a.example.com", "#x")
	b := NewFormNotFoundError("https://b.example.com", "#y")

	if !errors.Is(a, b) {
		t.Error("errors of the same type should match with errors.Is")
	}
}
