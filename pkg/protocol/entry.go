// Binary record layout shared by the producers, the drainer and the offline decoder
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Computes the exact in-ring size of a record for the given arguments.
// This is also the worst-case reservation the producer makes.
func EntrySizeFor(format Format, args []any) (total int, err error) {
	if len(args) != len(format.Args) {
		err = fmt.Errorf("format %d expects %d arguments, got %d", format.ID, len(format.Args), len(args))
		return
	}

	total = EntryHeaderSize

	for i, kind := range format.Args {
		total += argKindBytes

		switch kind {
		case ArgUint64, ArgInt64, ArgFloat64:
			total += scalarWordSize
		case ArgString:
			value, validAssert := args[i].(string)
			if !validAssert {
				err = fmt.Errorf("format %d argument %d: expected string, got %T", format.ID, i, args[i])
				return
			}
			total += argStringBytes + len(value)
		default:
			err = fmt.Errorf("format %d argument %d: unknown kind %d", format.ID, i, kind)
			return
		}
	}
	return
}

// Serializes one record into the reserved span. The span must be
// exactly the size EntrySizeFor returned for the same arguments.
func AppendEntry(span []byte, format Format, timestamp uint64, args []any) (entrySize int, err error) {
	entrySize = len(span)

	metaBytes := 0
	for _, kind := range format.Args {
		metaBytes += argKindBytes
		if kind == ArgString {
			metaBytes += argStringBytes
		}
	}

	// HEADER
	binary.LittleEndian.PutUint32(span[0:4], uint32(entrySize))
	binary.LittleEndian.PutUint32(span[4:8], format.ID)
	binary.LittleEndian.PutUint32(span[8:12], uint32(metaBytes))
	binary.LittleEndian.PutUint64(span[12:20], timestamp)

	// DESCRIPTORS
	meta := span[EntryHeaderSize : EntryHeaderSize+metaBytes]
	payload := span[EntryHeaderSize+metaBytes:]

	metaOff := 0
	payloadOff := 0
	for i, kind := range format.Args {
		meta[metaOff] = byte(kind)
		metaOff++

		switch kind {
		case ArgUint64:
			value, validAssert := toUint64(args[i])
			if !validAssert {
				err = fmt.Errorf("format %d argument %d: expected unsigned integer, got %T", format.ID, i, args[i])
				return
			}
			binary.LittleEndian.PutUint64(payload[payloadOff:], value)
			payloadOff += scalarWordSize
		case ArgInt64:
			value, validAssert := toInt64(args[i])
			if !validAssert {
				err = fmt.Errorf("format %d argument %d: expected integer, got %T", format.ID, i, args[i])
				return
			}
			binary.LittleEndian.PutUint64(payload[payloadOff:], uint64(value))
			payloadOff += scalarWordSize
		case ArgFloat64:
			value, validAssert := args[i].(float64)
			if !validAssert {
				err = fmt.Errorf("format %d argument %d: expected float64, got %T", format.ID, i, args[i])
				return
			}
			binary.LittleEndian.PutUint64(payload[payloadOff:], math.Float64bits(value))
			payloadOff += scalarWordSize
		case ArgString:
			value := args[i].(string) // kind validated by EntrySizeFor
			binary.LittleEndian.PutUint32(meta[metaOff:], uint32(len(value)))
			metaOff += argStringBytes
			copy(payload[payloadOff:], value)
			payloadOff += len(value)
		}
	}
	return
}

// Extracts the fixed record header from the front of a peek run
func ParseHeader(data []byte) (header EntryHeader, ok bool) {
	if len(data) < EntryHeaderSize {
		return
	}

	header.EntrySize = binary.LittleEndian.Uint32(data[0:4])
	header.FmtID = binary.LittleEndian.Uint32(data[4:8])
	header.ArgMetaBytes = binary.LittleEndian.Uint32(data[8:12])
	header.Timestamp = binary.LittleEndian.Uint64(data[12:20])
	ok = true
	return
}

// Accepts the integer types producers realistically pass
func toInt64(arg any) (value int64, ok bool) {
	switch v := arg.(type) {
	case int:
		value = int64(v)
	case int32:
		value = int64(v)
	case int64:
		value = v
	default:
		return
	}
	ok = true
	return
}

func toUint64(arg any) (value uint64, ok bool) {
	switch v := arg.(type) {
	case uint:
		value = uint64(v)
	case uint32:
		value = uint64(v)
	case uint64:
		value = v
	case int:
		if v < 0 {
			return
		}
		value = uint64(v)
	default:
		return
	}
	ok = true
	return
}
