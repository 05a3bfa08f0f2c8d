package rpc

import (
	"errors"

	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
)

// ErrUnknownMethod is returned for a method the server does not serve.
var ErrUnknownMethod = errors.New("unknown rpc method")

const (
	codeUnknownMethod = "unknown_method"
	codeInternal      = "internal"
)

var codes = []struct {
	code string
	err  error
}{
	{"not_found", apperrors.ErrSnapshotNotFound},
	{"unknown_kind", apperrors.ErrUnknownKind},
	{"unknown_filter", apperrors.ErrUnknownFilter},
	{"invalid", apperrors.ErrInvalidConfig},
	{"unavailable", apperrors.ErrTierUnavailable},
	{"timeout", apperrors.ErrTimeout},
}

func codeOf(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return codeInternal
}

// RemoteError is an error reported by the server. It unwraps to the
// sentinel its code stands for, if any.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return "rpc: " + e.Message
}

func (e *RemoteError) Unwrap() error {
	if e.Code == codeUnknownMethod {
		return ErrUnknownMethod
	}
	for _, c := range codes {
		if c.code == e.Code {
			return c.err
		}
	}
	return nil
}
