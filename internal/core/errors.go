package core

import (
	"errors"
	"fmt"
)

// FailKind classifies provider failures. The classification is decided
// by the client that knows the wire format (HTTP status, transport
// error), never by sniffing message text.
type FailKind int

const (
	FailOther FailKind = iota
	FailRateLimited
	FailInvalidCredential
	FailNetwork
)

func (k FailKind) String() string {
	switch k {
	case FailRateLimited:
		return "rate_limited"
	case FailInvalidCredential:
		return "invalid_credential"
	case FailNetwork:
		return "network"
	default:
		return "other"
	}
}

type ProviderError struct {
	Kind   FailKind
	Status int // HTTP status when applicable, 0 otherwise
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s (http %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(kind FailKind, status int, err error) *ProviderError {
	return &ProviderError{Kind: kind, Status: status, Err: err}
}

func failKindOf(err error) (FailKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return FailOther, false
}

func IsRateLimited(err error) bool {
	k, ok := failKindOf(err)
	return ok && k == FailRateLimited
}

func IsInvalidCredential(err error) bool {
	k, ok := failKindOf(err)
	return ok && k == FailInvalidCredential
}

func IsNetwork(err error) bool {
	k, ok := failKindOf(err)
	return ok && k == FailNetwork
}
