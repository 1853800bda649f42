// Compressor dispatch table standing in for the preprocessor's generated output
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Builds the compressor table from the registered formats. Format ids
// must be dense and equal to their table index so dispatch stays a
// plain array lookup.
func NewTable(formats []Format) (table *Table, err error) {
	table = &Table{
		formats:     make([]Format, len(formats)),
		compressors: make([]CompressFn, len(formats)),
	}

	for i, format := range formats {
		if int(format.ID) != i {
			err = fmt.Errorf("format id %d at index %d: ids must be dense and ordered", format.ID, i)
			table = nil
			return
		}
		for argIndex, kind := range format.Args {
			if kind < ArgUint64 || kind > ArgString {
				err = fmt.Errorf("format %d argument %d: unknown kind %d", format.ID, argIndex, kind)
				table = nil
				return
			}
		}

		table.formats[i] = format
		table.compressors[i] = makeCompressor(format)
	}
	return
}

// Looks up a format definition by id
func (table *Table) Format(fmtID uint32) (format Format, err error) {
	if int(fmtID) >= len(table.formats) {
		err = fmt.Errorf("format id %d out of range (table holds %d)", fmtID, len(table.formats))
		return
	}
	format = table.formats[fmtID]
	return
}

// True when the id indexes a registered format
func (table *Table) ValidID(fmtID uint32) (valid bool) {
	valid = int(fmtID) < len(table.formats)
	return
}

// Number of registered formats
func (table *Table) Len() (count int) {
	count = len(table.formats)
	return
}

// Returns the argument compressor for a format id. The drainer
// guarantees the id was validated against the table.
func (table *Table) Compressor(fmtID uint32) (compress CompressFn) {
	compress = table.compressors[fmtID]
	return
}

// Generates the argument compressor for one format. Scalars are packed
// as a length byte plus their minimal little-endian bytes; signed
// scalars are zigzag folded first so small negative values stay small.
// Strings are a varint length plus raw bytes.
//
// The output never exceeds the record's packed arguments plus their
// in-ring descriptors, which is what the drainer's worst-case space
// check assumes.
func makeCompressor(format Format) (compress CompressFn) {
	kinds := append([]ArgKind(nil), format.Args...)

	compress = func(entry []byte, out []byte) (written int) {
		header, _ := ParseHeader(entry)

		meta := entry[EntryHeaderSize : EntryHeaderSize+int(header.ArgMetaBytes)]
		payload := entry[EntryHeaderSize+int(header.ArgMetaBytes):int(header.EntrySize)]

		metaOff := 0
		payloadOff := 0
		for _, kind := range kinds {
			metaOff++ // kind byte, fixed by the table at build time

			switch kind {
			case ArgUint64, ArgFloat64:
				word := binary.LittleEndian.Uint64(payload[payloadOff:])
				payloadOff += scalarWordSize
				written += packWord(out[written:], word)
			case ArgInt64:
				word := binary.LittleEndian.Uint64(payload[payloadOff:])
				payloadOff += scalarWordSize
				written += packWord(out[written:], zigzagEncode(int64(word)))
			case ArgString:
				length := int(binary.LittleEndian.Uint32(meta[metaOff:]))
				metaOff += argStringBytes
				written += binary.PutUvarint(out[written:], uint64(length))
				written += copy(out[written:], payload[payloadOff:payloadOff+length])
				payloadOff += length
			}
		}
		return
	}
	return
}

// Emits a word as a length byte plus its minimal little-endian bytes
func packWord(out []byte, word uint64) (written int) {
	length := 1
	for v := word >> 8; v != 0; v >>= 8 {
		length++
	}

	out[0] = byte(length)
	for i := 0; i < length; i++ {
		out[1+i] = byte(word >> (8 * i))
	}

	written = length + 1
	return
}

// Reverses packWord
func unpackWord(data []byte) (word uint64, consumed int, err error) {
	if len(data) < 1 {
		err = fmt.Errorf("truncated packed word: no length byte")
		return
	}

	length := int(data[0])
	if length < 1 || length > scalarWordSize {
		err = fmt.Errorf("invalid packed word length %d", length)
		return
	}
	if len(data) < 1+length {
		err = fmt.Errorf("truncated packed word: need %d bytes, have %d", 1+length, len(data))
		return
	}

	for i := 0; i < length; i++ {
		word |= uint64(data[1+i]) << (8 * i)
	}
	consumed = 1 + length
	return
}
