package session

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Kind classifies a session-layer error so calling code can decide
// whether a failure is fatal to the whole tunnel or local to one call.
type Kind int

const (
	// KindInvalidEndpoint marks a malformed build-daemon endpoint.
	KindInvalidEndpoint Kind = iota
	// KindConnection marks a failure establishing the outer transport.
	KindConnection
	// KindStreamError marks a transport read/write failure inside the tunnel.
	KindStreamError
	// KindProtocol marks a malformed frame, unknown packet tag, or a
	// nonzero compressed flag.
	KindProtocol
	// KindEncode marks a codec encode failure.
	KindEncode
	// KindDecode marks a codec decode failure.
	KindDecode
	// KindPathNotFound marks a context-validation failure: path absent.
	KindPathNotFound
	// KindNotADirectory marks a context root that is not a directory.
	KindNotADirectory
	// KindPathOutsideRoot marks a path escaping the context root.
	KindPathOutsideRoot
	// KindPathResolution marks any other context-path resolution failure.
	KindPathResolution
	// KindSecretNotFound marks a secrets-handler miss.
	KindSecretNotFound
	// KindSecretsNotConfigured marks an empty secret table.
	KindSecretsNotConfigured
	// KindUnexpectedClose marks the inbound channel closing before FIN.
	KindUnexpectedClose
)

func (k Kind) String() string {
	switch k {
	case KindInvalidEndpoint:
		return "InvalidEndpoint"
	case KindConnection:
		return "Connection"
	case KindStreamError:
		return "StreamError"
	case KindProtocol:
		return "Protocol"
	case KindEncode:
		return "Encode"
	case KindDecode:
		return "Decode"
	case KindPathNotFound:
		return "PathNotFound"
	case KindNotADirectory:
		return "NotADirectory"
	case KindPathOutsideRoot:
		return "PathOutsideRoot"
	case KindPathResolution:
		return "PathResolution"
	case KindSecretNotFound:
		return "SecretNotFound"
	case KindSecretsNotConfigured:
		return "SecretsNotConfigured"
	case KindUnexpectedClose:
		return "UnexpectedClose"
	default:
		return "Unknown"
	}
}

// SessionError carries a Kind alongside a wrapped message and cause, the
// session-layer analogue of commands.ComplexError: a code calling code
// can switch on, plus an xerrors.Frame so the top-level error printer
// still gets a stack trace.
type SessionError struct {
	Kind    Kind
	Message string
	Cause   error
	frame   xerrors.Frame
}

// NewSessionError builds a SessionError, capturing the call site for
// FormatError.
func NewSessionError(kind Kind, message string, cause error) *SessionError {
	return &SessionError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
		frame:   xerrors.Caller(1),
	}
}

func (se *SessionError) FormatError(p xerrors.Printer) error {
	p.Printf("%s: %s", se.Kind, se.Message)
	se.frame.Format(p)
	return se.Cause
}

func (se *SessionError) Format(f fmt.State, c rune) {
	xerrors.FormatError(se, f, c)
}

func (se *SessionError) Error() string {
	return fmt.Sprint(se)
}

func (se *SessionError) Unwrap() error {
	return se.Cause
}

// Is reports whether err is a *SessionError of the given kind.
func Is(err error, kind Kind) bool {
	var se *SessionError
	if xerrors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// WrapError wraps err for the sake of a stack trace at the top level,
// mirroring commands.WrapError: go-errors does not return nil for a nil
// input, so this does that check itself.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 0)
}
