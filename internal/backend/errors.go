package backend

import (
	"errors"
	"io/fs"
	"strings"
)

// Kind classifies job failures.
type Kind int

const (
	SourceNotFound Kind = iota + 1
	SourceUnreadable
	DestinationUnwritable
	MappingFailed
	MappedIOFault
	ReadFailed
	UnknownBackend
	BackendUnavailable
	InvalidJob
)

var kindNames = [...]string{
	SourceNotFound:        "source not found",
	SourceUnreadable:      "source unreadable",
	DestinationUnwritable: "destination unwritable",
	MappingFailed:         "mapping failed",
	MappedIOFault:         "mapped I/O fault",
	ReadFailed:            "read failed",
	UnknownBackend:        "unknown backend",
	BackendUnavailable:    "backend unavailable",
	InvalidJob:            "invalid job",
}

func (k Kind) String() string {
	if int(k) > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown error"
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrSourceNotFound        = &Error{Kind: SourceNotFound}
	ErrSourceUnreadable      = &Error{Kind: SourceUnreadable}
	ErrDestinationUnwritable = &Error{Kind: DestinationUnwritable}
	ErrMappingFailed         = &Error{Kind: MappingFailed}
	ErrMappedIOFault         = &Error{Kind: MappedIOFault}
	ErrReadFailed            = &Error{Kind: ReadFailed}
	ErrUnknownBackend        = &Error{Kind: UnknownBackend}
	ErrBackendUnavailable    = &Error{Kind: BackendUnavailable}
	ErrInvalidJob            = &Error{Kind: InvalidJob}
)

var errNotOpen = errors.New("backend not open")

// Error is a job failure. Every fatal outcome of a backend or the engine is
// reported as an *Error.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func sourceError(op, path string, err error) *Error {
	kind := SourceUnreadable
	if errors.Is(err, fs.ErrNotExist) {
		kind = SourceNotFound
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func destinationError(op, path string, err error) *Error {
	return &Error{Kind: DestinationUnwritable, Op: op, Path: path, Err: err}
}
