package session

import "errors"

// Kind is a stable error identifier. It is comparable and implements error,
// so errors.Is(err, OpenFailed) works on any *Error carrying that Kind.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	DeviceSelectionFailed Kind = "device_selection_failed"
	OpenFailed            Kind = "open_failed"
	ReadFailed            Kind = "read_failed"
	WriteFailed           Kind = "write_failed"
	CloseFailed           Kind = "close_failed"
	NotOpen               Kind = "port_not_open"
	Busy                  Kind = "busy"
	Canceled              Kind = "canceled"

	Unknown Kind = "error"
)

// Error carries the Kind of a session failure together with the operation,
// the port it concerns and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Port string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + string(e.Kind)
	if e.Port != "" {
		msg += " (" + e.Port + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the Kind from err, defaulting to Unknown. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Unknown
}

var (
	errAlreadyConnecting = errors.New("already connecting")
	errAlreadyOpen       = errors.New("already open")
	errClosing           = errors.New("disconnect in progress")
)
