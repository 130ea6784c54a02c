package backend

import "strings"

// Method identifies which I/O strategy implements a job.
type Method int

const (
	Buffered Method = iota + 1 // bufio over *os.File, 4 KiB buffers
	Stream                     // unbuffered io.Reader/io.Writer calls on *os.File
	Handle                     // positional pread/pwrite on the raw descriptor
	Mapped                     // memory-mapped views, pointer arithmetic only
	Ring                       // Linux io_uring positional reads/writes
)

// Methods lists every method in tag order.
var Methods = []Method{Buffered, Stream, Handle, Mapped, Ring}

// String returns the backend tag used on the command line.
func (m Method) String() string {
	switch m {
	case Buffered:
		return "crt"
	case Stream:
		return "std"
	case Handle:
		return "win"
	case Mapped:
		return "winmap"
	case Ring:
		return "uring"
	default:
		return "unknown"
	}
}

// Describe returns a short human description of the method.
func (m Method) Describe() string {
	switch m {
	case Buffered:
		return "buffered stream I/O"
	case Stream:
		return "unbuffered stream I/O"
	case Handle:
		return "unbuffered handle I/O"
	case Mapped:
		return "memory-mapped I/O"
	case Ring:
		return "io_uring handle I/O"
	default:
		return "unknown"
	}
}

// ParseMethod resolves a backend tag. Unknown tags fail with UnknownBackend.
func ParseMethod(tag string) (Method, error) {
	t := strings.ToLower(strings.TrimSpace(tag))
	for _, m := range Methods {
		if m.String() == t {
			return m, nil
		}
	}
	return 0, &Error{Kind: UnknownBackend, Op: "resolve backend", Path: tag}
}
