package ollama

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// ErrorKind classifies why a generation request failed
type ErrorKind int

const (
	TLSVerificationFailure ErrorKind = iota + 1
	TransportFailure
	MalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case TLSVerificationFailure:
		return "tls verification failure"
	case TransportFailure:
		return "transport failure"
	case MalformedResponse:
		return "malformed response"
	default:
		return "unknown failure"
	}
}

// Sentinels for errors.Is, one per ErrorKind
var (
	ErrTLSVerification   = errors.New("backend certificate verification failed")
	ErrTransport         = errors.New("cannot reach the generation backend")
	ErrMalformedResponse = errors.New("generation backend returned a malformed response")
)

// ErrInsecureHost is returned for backend addresses that do not use https
var ErrInsecureHost = errors.New("backend host must use https")

func (k ErrorKind) sentinel() error {
	switch k {
	case TLSVerificationFailure:
		return ErrTLSVerification
	case TransportFailure:
		return ErrTransport
	case MalformedResponse:
		return ErrMalformedResponse
	default:
		return nil
	}
}

// GenerationError is returned by every failed backend call
//
// StatusCode is set when the backend answered with a non-2xx status.
type GenerationError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	sentinel := e.Kind.sentinel()
	return sentinel != nil && target == sentinel
}

// classifyRequestError separates certificate problems from every other transport failure
func classifyRequestError(err error) *GenerationError {
	var (
		verificationErr *tls.CertificateVerificationError
		unknownAuthErr  x509.UnknownAuthorityError
		hostnameErr     x509.HostnameError
		invalidErr      x509.CertificateInvalidError
		rootsErr        x509.SystemRootsError
	)

	switch {
	case errors.As(err, &verificationErr),
		errors.As(err, &unknownAuthErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr),
		errors.As(err, &rootsErr):
		return &GenerationError{Kind: TLSVerificationFailure, Err: err}
	default:
		return &GenerationError{Kind: TransportFailure, Err: err}
	}
}
