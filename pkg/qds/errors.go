package qds

// Every error raised by the buffer carries a message and the scope it was
// raised from; the rendered form is "message [scope]". The four concrete
// types below partition the failure surface and are matchable with
// errors.As.

// ParsingError is raised by the JSON parser and the data validator: invalid
// JSON, missing or duplicate keys, wrong scalar types, out-of-range numbers,
// malformed WORD or TIMESTAMP values.
type ParsingError struct {
	Msg   string
	Scope string
}

func (e *ParsingError) Error() string { return e.Msg + " [" + e.Scope + "]" }

// RingBufferErrorKind discriminates ring buffer failures.
type RingBufferErrorKind uint8

const (
	// BadID is a non-monotonic id in counter mode 0.
	BadID RingBufferErrorKind = iota
	// Overflow is a push into a full buffer with overflow disallowed.
	Overflow
)

// RingBufferError is raised when manipulating the ring buffer fails.
type RingBufferError struct {
	Kind  RingBufferErrorKind
	Msg   string
	Scope string
}

func (e *RingBufferError) Error() string { return e.Msg + " [" + e.Scope + "]" }

// RefErrorKind discriminates reference table failures.
type RefErrorKind uint8

const (
	// RefExists: registering a name that is already present.
	RefExists RefErrorKind = iota
	// RefNotFound: looking up an unknown name.
	RefNotFound
	// RefInUse: binding a reference that is already bound to an entry.
	RefInUse
	// RefInvalid: a REF value that is neither a known reference nor a
	// readable file path.
	RefInvalid
)

// RefError is raised when processing a reference (REF data type) fails.
type RefError struct {
	Kind  RefErrorKind
	Msg   string
	Scope string
}

func (e *RefError) Error() string { return e.Msg + " [" + e.Scope + "]" }

// FileIOError is raised when reading or removing a file during reference
// path ingestion fails.
type FileIOError struct {
	Msg   string
	Scope string
	Err   error
}

func (e *FileIOError) Error() string { return e.Msg + " [" + e.Scope + "]" }

func (e *FileIOError) Unwrap() error { return e.Err }
