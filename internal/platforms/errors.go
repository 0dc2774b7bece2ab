package platforms

import (
	"errors"
	"fmt"
)

// Kind classifies a provider error for the retry and credential machinery
type Kind int

const (
	// KindTransient covers network failures, 5xx responses, and provider
	// rate-limit codes; these are safe to retry
	KindTransient Kind = iota + 1

	// KindAuthExpired means the credential was rejected; the integration is
	// demoted and the call is never retried
	KindAuthExpired

	// KindValidation covers pre-call constraint failures (media bounds,
	// missing required linkage); surfaced immediately, never retried, and
	// never marks credentials unhealthy
	KindValidation

	// KindQuota means a policy cap was reached; the item is skipped silently
	KindQuota

	// KindUnknownProvider means the requested platform is not registered
	KindUnknownProvider

	// KindPermanent covers provider rejections that are neither auth nor
	// validation (e.g. 4xx business errors); not retried
	KindPermanent
)

// Error is the typed provider error carried through the pipeline
type Error struct {
	Kind       Kind
	Provider   string
	Op         string
	StatusCode int
	Code       int // Provider-specific error code, 0 if none
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransient builds a retryable provider error
func NewTransient(provider, op, message string, err error) *Error {
	return &Error{Kind: KindTransient, Provider: provider, Op: op, Message: message, Err: err}
}

// NewAuthExpired builds a credential-rejected error
func NewAuthExpired(provider, op, message string) *Error {
	return &Error{Kind: KindAuthExpired, Provider: provider, Op: op, Message: message}
}

// NewValidation builds a pre-call validation error
func NewValidation(provider, op, message string) *Error {
	return &Error{Kind: KindValidation, Provider: provider, Op: op, Message: message}
}

// NewQuotaExceeded builds a policy-cap error
func NewQuotaExceeded(provider, op, message string) *Error {
	return &Error{Kind: KindQuota, Provider: provider, Op: op, Message: message}
}

// NewUnknownProvider builds an unsupported-platform error
func NewUnknownProvider(provider string) *Error {
	return &Error{Kind: KindUnknownProvider, Provider: provider, Message: fmt.Sprintf("unsupported platform %q", provider)}
}

// NewPermanent builds a non-retryable provider rejection
func NewPermanent(provider, op, message string, err error) *Error {
	return &Error{Kind: KindPermanent, Provider: provider, Op: op, Message: message, Err: err}
}

// kindOf extracts the Kind from an error chain, 0 when untyped
func kindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

// IsRetryable reports whether the error is transient. Untyped errors (raw
// network failures that escaped mapping) are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	kind := kindOf(err)
	return kind == KindTransient || kind == 0
}

// IsAuthExpired reports whether the error means the credential was rejected
func IsAuthExpired(err error) bool {
	return kindOf(err) == KindAuthExpired
}

// IsValidation reports whether the error is a pre-call validation failure
func IsValidation(err error) bool {
	return kindOf(err) == KindValidation
}

// IsQuotaExceeded reports whether the error is a policy-cap skip
func IsQuotaExceeded(err error) bool {
	return kindOf(err) == KindQuota
}

// IsUnknownProvider reports whether the requested platform is unsupported
func IsUnknownProvider(err error) bool {
	return kindOf(err) == KindUnknownProvider
}
