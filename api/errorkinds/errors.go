package errorkinds

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Error kinds. Use errors.Is to test an error returned by this module against them.
var (
	ErrTransport          = errors.New("bus transport failure")
	ErrDecode             = errors.New("cannot decode daemon payload")
	ErrChannelClosed      = errors.New("channel closed")
	ErrInvalidInterface   = errors.New("invalid interface name")
	ErrInvalidAddress     = errors.New("invalid device address")
	ErrBackend            = errors.New("daemon rejected the operation")
	ErrAlreadyInitialized = errors.New("manager is already initialized")
	ErrNotSupported       = errors.New("this operation is not supported")
)

// BackendError describes an operation that the daemon explicitly rejected.
// Diagnostic holds the daemon's message as it was received.
type BackendError struct {
	Name       string
	Diagnostic string
}

// Error returns the daemon's diagnostic message.
func (b *BackendError) Error() string {
	if b.Diagnostic == "" {
		return b.Name
	}

	return b.Diagnostic
}

// Is reports whether the target is ErrBackend.
func (b *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// LaggedError is returned by an event subscription that fell behind
// the publisher and missed events.
type LaggedError struct {
	Missed uint64
}

// Error returns the number of missed events.
func (l *LaggedError) Error() string {
	return "subscriber lagged behind, missed " + strconv.FormatUint(l.Missed, 10) + " events"
}

// Transport wraps a bus-level error.
func Transport(err error, at, msg string) error {
	return wrap(ErrTransport, err, at, ftag.Internal, msg)
}

// Decode wraps a payload decoding error.
func Decode(err error, at, msg string) error {
	return wrap(ErrDecode, err, at, ftag.Internal, msg)
}

// Backend wraps a daemon rejection, keeping the *BackendError reachable with errors.As.
func Backend(name, diagnostic, at string) error {
	return fault.Wrap(&BackendError{Name: name, Diagnostic: diagnostic},
		fctx.With(context.Background(), "error_at", at),
		ftag.With(ftag.InvalidArgument),
	)
}

// InvalidInterface reports a rejected interface name.
func InvalidInterface(name, reason string) error {
	return fault.Wrap(ErrInvalidInterface,
		fctx.With(context.Background(), "error_at", "validate-interface", "interface", name),
		ftag.With(ftag.InvalidArgument),
		fmsg.With(reason),
	)
}

// InvalidAddress reports a rejected device address.
func InvalidAddress(address, reason string) error {
	return fault.Wrap(ErrInvalidAddress,
		fctx.With(context.Background(), "error_at", "validate-address", "address", address),
		ftag.With(ftag.InvalidArgument),
		fmsg.With(reason),
	)
}

// ChannelClosed reports that the command queue or a completion handle is gone.
func ChannelClosed(at string) error {
	return fault.Wrap(ErrChannelClosed,
		fctx.With(context.Background(), "error_at", at),
		ftag.With(ftag.Cancelled),
	)
}

func wrap(kind, err error, at string, tag ftag.Kind, msg string) error {
	if err == nil {
		err = kind
	} else if !errors.Is(err, kind) {
		err = fmt.Errorf("%w: %w", kind, err)
	}

	return fault.Wrap(err,
		fctx.With(context.Background(), "error_at", at),
		ftag.With(tag),
		fmsg.With(msg),
	)
}
