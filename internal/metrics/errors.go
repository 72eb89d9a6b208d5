package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"sort"
	"strings"
	"syscall"
)

// Transport error kinds used as the prefix of Sample.Error.
const (
	ErrorKindTimeout  = "timeout"
	ErrorKindRefused  = "connection refused"
	ErrorKindReset    = "connection reset"
	ErrorKindDNS      = "dns lookup failed"
	ErrorKindTLS      = "tls failure"
	ErrorKindCanceled = "canceled"
	ErrorKindBody     = "body read failed"
	ErrorKindOther    = "request failed"
)

// ClassifyError returns a short, stable label for a transport-level failure.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var recordErr tls.RecordHeaderError

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorKindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.As(err, &dnsErr):
		return ErrorKindDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorKindRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrorKindReset
	case errors.As(err, &certErr), errors.As(err, &unknownAuth), errors.As(err, &hostnameErr), errors.As(err, &recordErr):
		return ErrorKindTLS
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorKindTimeout
	default:
		return ErrorKindOther
	}
}

// DescribeError renders err as "<kind>: <message>" for Sample.Error.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	return ClassifyError(err) + ": " + err.Error()
}

// ErrorBreakdown counts error samples by their kind prefix.
func ErrorBreakdown(samples []Sample) map[string]int {
	out := make(map[string]int)
	for _, s := range samples {
		if s.StatusCode != StatusTransportError {
			continue
		}
		out[errorKindOf(s.Error)]++
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedErrorKinds returns the keys of a breakdown ordered by descending count.
func SortedErrorKinds(breakdown map[string]int) []string {
	kinds := make([]string, 0, len(breakdown))
	for k := range breakdown {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if breakdown[kinds[i]] == breakdown[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return breakdown[kinds[i]] > breakdown[kinds[j]]
	})
	return kinds
}

func errorKindOf(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return ErrorKindOther
	}
	if idx := strings.Index(detail, ": "); idx > 0 {
		return detail[:idx]
	}
	return detail
}
