// Package netutil classifies failures of Telegram API calls.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Kind is a coarse failure class used in logs and retry decisions.
type Kind string

const (
	KindNone    Kind = ""
	KindTimeout Kind = "timeout"
	KindDNS     Kind = "dns"
	KindDial    Kind = "dial"
	KindTLS     Kind = "tls"
	KindHTTP4xx Kind = "http_4xx"
	KindHTTP5xx Kind = "http_5xx"
	KindUnknown Kind = "unknown"
)

// Classify maps err onto a Kind. Wrapped errors (url.Error, fmt %w) are
// unwrapped.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindDial
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return KindTLS
	}
	switch code := StatusCode(err); {
	case code >= 500:
		return KindHTTP5xx
	case code >= 400:
		return KindHTTP4xx
	}
	return KindUnknown
}

// Retryable reports whether the request failed while dialing and so never
// reached Telegram. A timed out request may already have been delivered.
func Retryable(err error) bool {
	return Classify(err) == KindDial
}

// StatusCode extracts the HTTP status from a Telegram API error, or 0.
func StatusCode(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	if err == nil {
		return 0
	}
	// telebot formats unknown API errors as "telegram: <description> (<code>)".
	msg := err.Error()
	lp, rp := strings.LastIndexByte(msg, '('), strings.LastIndexByte(msg, ')')
	if lp < 0 || rp <= lp+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[lp+1 : rp]))
	if convErr != nil {
		return 0
	}
	return code
}
