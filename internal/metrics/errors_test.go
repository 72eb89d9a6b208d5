package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"canceled", fmt.Errorf("get: %w", context.Canceled), ErrorKindCanceled},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), ErrorKindTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, ErrorKindDNS},
		{"refused", refused, ErrorKindRefused},
		{"net timeout", timeoutErr{}, ErrorKindTimeout},
		{"other", errors.New("boom"), ErrorKindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeError(t *testing.T) {
	got := DescribeError(errors.New("boom"))
	if got != "request failed: boom" {
		t.Fatalf("DescribeError() = %q", got)
	}
	if DescribeError(nil) != "" {
		t.Fatalf("expected empty description for nil error")
	}
}

func TestErrorBreakdown(t *testing.T) {
	now := time.Now()
	samples := []Sample{
		NewSample(now, 0, time.Millisecond, "timeout: a"),
		NewSample(now, 0, time.Millisecond, "timeout: b"),
		NewSample(now, 0, time.Millisecond, "connection refused: c"),
		NewSample(now, 0, time.Millisecond, ""),
		NewSample(now, 500, time.Millisecond, ""),
		NewSample(now, 200, time.Millisecond, ""),
	}

	breakdown := ErrorBreakdown(samples)
	if breakdown[ErrorKindTimeout] != 2 {
		t.Errorf("expected 2 timeouts, got %d", breakdown[ErrorKindTimeout])
	}
	if breakdown[ErrorKindRefused] != 1 {
		t.Errorf("expected 1 refused, got %d", breakdown[ErrorKindRefused])
	}
	if breakdown[ErrorKindOther] != 1 {
		t.Errorf("expected 1 unlabelled error, got %d", breakdown[ErrorKindOther])
	}
	if len(breakdown) != 3 {
		t.Errorf("expected 3 kinds, got %v", breakdown)
	}

	kinds := SortedErrorKinds(breakdown)
	if kinds[0] != ErrorKindTimeout {
		t.Errorf("expected timeout first, got %v", kinds)
	}

	if ErrorBreakdown(samples[4:]) != nil {
		t.Errorf("expected nil breakdown without transport errors")
	}
}
