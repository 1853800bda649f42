// Offline decoder reconstructing events from a compressed output stream
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Streaming decoder over a complete output file. Batches are
// concatenated in the file and may each carry trailing zero padding
// from direct I/O; the decoder skips zero bytes between records.
type Decoder struct {
	table *Table
	data  []byte
	off   int

	// Delta baselines, carried exactly like the drainer carries them
	lastFmtID     uint32
	lastTimestamp uint64
}

func NewDecoder(data []byte, table *Table) (decoder *Decoder) {
	decoder = &Decoder{
		table: table,
		data:  data,
	}
	return
}

// Decodes the next event. ok=false with nil err means clean end of
// stream.
func (decoder *Decoder) Next() (event Event, ok bool, err error) {
	// Skip block padding; a record can never begin with 0x00
	for decoder.off < len(decoder.data) && decoder.data[decoder.off] == 0 {
		decoder.off++
	}
	if decoder.off >= len(decoder.data) {
		return
	}

	fmtID, timestamp, consumed, err := DecodeMetadata(decoder.data[decoder.off:], decoder.lastTimestamp, decoder.lastFmtID)
	if err != nil {
		err = fmt.Errorf("offset %d: %v", decoder.off, err)
		return
	}
	decoder.off += consumed
	decoder.lastFmtID = fmtID
	decoder.lastTimestamp = timestamp

	format, err := decoder.table.Format(fmtID)
	if err != nil {
		err = fmt.Errorf("offset %d: %v", decoder.off, err)
		return
	}

	args, consumed, err := decodeArgs(decoder.data[decoder.off:], format)
	if err != nil {
		err = fmt.Errorf("offset %d: %v", decoder.off, err)
		return
	}
	decoder.off += consumed

	event = Event{
		FmtID:     fmtID,
		Timestamp: timestamp,
		Args:      args,
	}
	ok = true
	return
}

// Renders an event through its format string. Purely a display helper
// for the decode tool; the binary values in Event are authoritative.
func (decoder *Decoder) Render(event Event) (line string, err error) {
	format, err := decoder.table.Format(event.FmtID)
	if err != nil {
		return
	}

	line = fmt.Sprintf("%d %s", event.Timestamp, fmt.Sprintf(format.Name, event.Args...))
	return
}

// Reverses the per-format argument compressor
func decodeArgs(data []byte, format Format) (args []any, consumed int, err error) {
	args = make([]any, 0, len(format.Args))

	for argIndex, kind := range format.Args {
		switch kind {
		case ArgUint64:
			word, n, wordErr := unpackWord(data[consumed:])
			if wordErr != nil {
				err = fmt.Errorf("argument %d: %v", argIndex, wordErr)
				return
			}
			consumed += n
			args = append(args, word)
		case ArgInt64:
			word, n, wordErr := unpackWord(data[consumed:])
			if wordErr != nil {
				err = fmt.Errorf("argument %d: %v", argIndex, wordErr)
				return
			}
			consumed += n
			args = append(args, zigzagDecode(word))
		case ArgFloat64:
			word, n, wordErr := unpackWord(data[consumed:])
			if wordErr != nil {
				err = fmt.Errorf("argument %d: %v", argIndex, wordErr)
				return
			}
			consumed += n
			args = append(args, math.Float64frombits(word))
		case ArgString:
			length, n := binary.Uvarint(data[consumed:])
			if n <= 0 {
				err = fmt.Errorf("argument %d: malformed string length", argIndex)
				return
			}
			consumed += n
			if consumed+int(length) > len(data) {
				err = fmt.Errorf("argument %d: truncated string of %d bytes", argIndex, length)
				return
			}
			args = append(args, string(data[consumed:consumed+int(length)]))
			consumed += int(length)
		}
	}
	return
}
