package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	JobStarted Type = iota + 1
	ShortWrite
	EarlyStop
	MappedFault
	JobCompleted
	JobFailed
	VerifyOK
	VerifyFailed
	CacheCleared
)

var typeNames = [...]string{
	JobStarted:   "JobStarted",
	ShortWrite:   "ShortWrite",
	EarlyStop:    "EarlyStop",
	MappedFault:  "MappedFault",
	JobCompleted: "JobCompleted",
	JobFailed:    "JobFailed",
	VerifyOK:     "VerifyOK",
	VerifyFailed: "VerifyFailed",
	CacheCleared: "CacheCleared",
}

func (t Type) String() string {
	if int(t) > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a structured outcome reported by the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Backend   string // backend tag
	Src       string
	Dst       string
	Offset    int64 // ShortWrite: block offset
	Want      int   // ShortWrite: bytes requested
	Got       int   // ShortWrite: bytes written
	Blocks    int64
	Bytes     int64
	Elapsed   time.Duration
	Error     error
}
