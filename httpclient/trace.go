package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http/httptrace"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transport error classifications, used for the error.type attribute.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeDNSError          = "dns_error"
	ErrorTypeTLSError          = "tls_error"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeEOF               = "eof"
	ErrorTypeUnknown           = "unknown"
)

// networkTrace collects connection timings from httptrace.ClientTrace.
type networkTrace struct {
	dnsStart, dnsDone         time.Time
	connectStart, connectDone time.Time
	tlsStart, tlsDone         time.Time
	gotConn                   time.Time
	wroteRequest              time.Time
	firstByte                 time.Time

	connReused bool
	connRemote string
	alpn       string
}

func createClientTrace(nt *networkTrace) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			nt.gotConn = time.Now()
			nt.connReused = info.Reused
			if info.Conn != nil && info.Conn.RemoteAddr() != nil {
				nt.connRemote = info.Conn.RemoteAddr().String()
			}
		},
		DNSStart:     func(httptrace.DNSStartInfo) { nt.dnsStart = time.Now() },
		DNSDone:      func(httptrace.DNSDoneInfo) { nt.dnsDone = time.Now() },
		ConnectStart: func(_, _ string) { nt.connectStart = time.Now() },
		ConnectDone:  func(_, _ string, _ error) { nt.connectDone = time.Now() },

		TLSHandshakeStart: func() { nt.tlsStart = time.Now() },
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			nt.tlsDone = time.Now()
			nt.alpn = state.NegotiatedProtocol
		},

		WroteRequest:         func(httptrace.WroteRequestInfo) { nt.wroteRequest = time.Now() },
		GotFirstResponseByte: func() { nt.firstByte = time.Now() },
	}
}

func spanPhase(span trace.Span, name string, start, done time.Time, extra ...attribute.KeyValue) {
	if start.IsZero() || done.IsZero() {
		return
	}
	attrs := append([]attribute.KeyValue{
		attribute.Float64(name+".duration_ms", float64(done.Sub(start).Milliseconds())),
	}, extra...)
	span.AddEvent(name+".start", trace.WithTimestamp(start))
	span.AddEvent(name+".done", trace.WithTimestamp(done), trace.WithAttributes(attrs...))
}

func (nt *networkTrace) addTraceEvents(span trace.Span) {
	spanPhase(span, "dns", nt.dnsStart, nt.dnsDone)
	spanPhase(span, "connect", nt.connectStart, nt.connectDone)
	spanPhase(span, "tls", nt.tlsStart, nt.tlsDone, attribute.String("tls.protocol", nt.alpn))

	if !nt.gotConn.IsZero() {
		span.AddEvent("got_conn", trace.WithTimestamp(nt.gotConn),
			trace.WithAttributes(
				attribute.Bool("connection.reused", nt.connReused),
				attribute.String("network.peer.address", nt.connRemote),
			))
	}

	if !nt.firstByte.IsZero() && !nt.wroteRequest.IsZero() {
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstByte),
			trace.WithAttributes(
				attribute.Float64("ttfb_ms", float64(nt.firstByte.Sub(nt.wroteRequest).Milliseconds())),
			))
	}
}

func (nt *networkTrace) recordTimingMetrics(ctx context.Context, m *metrics, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	if !nt.dnsStart.IsZero() && !nt.dnsDone.IsZero() {
		m.recordDNSDuration(ctx, nt.dnsDone.Sub(nt.dnsStart), attrs)
	}
	if !nt.connectStart.IsZero() && !nt.connectDone.IsZero() {
		m.recordConnectionDuration(ctx, nt.connectDone.Sub(nt.connectStart), attrs)
	}
	if !nt.tlsStart.IsZero() && !nt.tlsDone.IsZero() {
		m.recordTLSDuration(ctx, nt.tlsDone.Sub(nt.tlsStart), attrs)
	}
	if !nt.wroteRequest.IsZero() && !nt.firstByte.IsZero() {
		m.recordTTFB(ctx, nt.firstByte.Sub(nt.wroteRequest), attrs)
	}
}

// classifyError maps a transport error to an error.type value.
func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ErrorTypeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeDNSError
	}

	var recordErr *tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) {
		return ErrorTypeTLSError
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorTypeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ErrorTypeConnectionReset
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrorTypeEOF
	}

	// Wrapped errors that lost their type still carry a recognizable message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(msg, "connection refused"):
		return ErrorTypeConnectionRefused
	case strings.Contains(msg, "connection reset"):
		return ErrorTypeConnectionReset
	case strings.Contains(msg, "no such host"):
		return ErrorTypeDNSError
	case strings.Contains(msg, "x509"), strings.Contains(msg, "certificate"):
		return ErrorTypeTLSError
	case strings.Contains(msg, "eof"):
		return ErrorTypeEOF
	}
	return ErrorTypeUnknown
}

func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String("error.type", errorType))
	}
}
