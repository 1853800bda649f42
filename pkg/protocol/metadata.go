// Delta compression of record metadata against the previous record
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Compresses a record's format id and timestamp as deltas against the
// previous record's values. Layout: one descriptor byte holding the
// varint lengths (timestamp length in the high nibble, format id
// length in the low nibble), then the zigzag varint format id delta,
// then the zigzag varint timestamp delta.
//
// Both nibbles are always non-zero, so the first byte of a compressed
// record can never be 0x00. The decoder relies on this to skip the
// zero padding direct I/O appends to each batch.
func CompressMetadata(header EntryHeader, out []byte, lastTimestamp uint64, lastFmtID uint32) (written int) {
	var fmtVarint [binary.MaxVarintLen64]byte
	var tsVarint [binary.MaxVarintLen64]byte

	fmtDelta := int64(header.FmtID) - int64(lastFmtID)
	fmtLen := binary.PutUvarint(fmtVarint[:], zigzagEncode(fmtDelta))

	tsDelta := int64(header.Timestamp - lastTimestamp)
	tsLen := binary.PutUvarint(tsVarint[:], zigzagEncode(tsDelta))

	out[0] = byte(tsLen<<4) | byte(fmtLen)
	written = 1
	written += copy(out[written:], fmtVarint[:fmtLen])
	written += copy(out[written:], tsVarint[:tsLen])
	return
}

// Reverses CompressMetadata using the same baselines the compressor
// carried. Consumed reports how many input bytes the metadata spanned.
func DecodeMetadata(data []byte, lastTimestamp uint64, lastFmtID uint32) (fmtID uint32, timestamp uint64, consumed int, err error) {
	if len(data) < 1 {
		err = fmt.Errorf("truncated metadata: no descriptor byte")
		return
	}

	tsLen := int(data[0] >> 4)
	fmtLen := int(data[0] & 0x0F)
	if tsLen == 0 || fmtLen == 0 {
		err = fmt.Errorf("invalid metadata descriptor 0x%02x", data[0])
		return
	}
	consumed = 1

	if len(data) < consumed+fmtLen+tsLen {
		err = fmt.Errorf("truncated metadata: need %d bytes, have %d", consumed+fmtLen+tsLen, len(data))
		return
	}

	rawFmt, n := binary.Uvarint(data[consumed : consumed+fmtLen])
	if n != fmtLen {
		err = fmt.Errorf("malformed format id varint")
		return
	}
	consumed += fmtLen

	rawTs, n := binary.Uvarint(data[consumed : consumed+tsLen])
	if n != tsLen {
		err = fmt.Errorf("malformed timestamp varint")
		return
	}
	consumed += tsLen

	fmtID = uint32(int64(lastFmtID) + zigzagDecode(rawFmt))
	timestamp = lastTimestamp + uint64(zigzagDecode(rawTs))
	return
}

func zigzagEncode(value int64) (encoded uint64) {
	encoded = uint64((value << 1) ^ (value >> 63))
	return
}

func zigzagDecode(encoded uint64) (value int64) {
	value = int64(encoded>>1) ^ -int64(encoded&1)
	return
}
