package protocol

// Total bytes of the fixed in-ring record header
const EntryHeaderSize = 20

// Per-argument descriptor byte cost in the ring: one kind byte per
// argument, plus a 4-byte length for variable-length arguments
const (
	argKindBytes   = 1
	argStringBytes = 4
	scalarWordSize = 8
)

// Argument kinds a format can carry
type ArgKind byte

const (
	ArgUint64 ArgKind = iota + 1
	ArgInt64
	ArgFloat64
	ArgString
)

// One log call site. The preprocessor assigns the id and scrapes the
// format string and argument kinds at build time; at runtime the
// format is only an index into the compressor table.
type Format struct {
	ID   uint32
	Name string
	Args []ArgKind
}

// Fixed header of an in-ring uncompressed record. EntrySize is
// authoritative for advancing the ring cursor and includes the header,
// the argument descriptors and the packed argument bytes.
type EntryHeader struct {
	EntrySize    uint32
	FmtID        uint32
	ArgMetaBytes uint32
	Timestamp    uint64
}

// Compresses one uncompressed record's arguments into out.
// At least EntrySize+ArgMetaBytes bytes of space are guaranteed.
type CompressFn func(entry []byte, out []byte) (written int)

// Dispatch table produced from the registered formats. Compressors are
// dispatched by integer id, never by dynamic type.
type Table struct {
	formats     []Format
	compressors []CompressFn
}

// One decoded event
type Event struct {
	FmtID     uint32
	Timestamp uint64
	Args      []any
}
