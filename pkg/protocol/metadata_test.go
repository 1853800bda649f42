package protocol

import "testing"

func TestMetadataRoundTrip(t *testing.T) {
	tests := []struct {
		name          string
		lastFmtID     uint32
		lastTimestamp uint64
		fmtID         uint32
		timestamp     uint64
	}{
		{
			name:      "from zero baselines",
			fmtID:     7,
			timestamp: 1000,
		},
		{
			name:          "small forward deltas",
			lastFmtID:     7,
			lastTimestamp: 1000,
			fmtID:         8,
			timestamp:     1064,
		},
		{
			name:          "negative format delta",
			lastFmtID:     200,
			lastTimestamp: 5000,
			fmtID:         3,
			timestamp:     5001,
		},
		{
			name:          "identical to baseline",
			lastFmtID:     42,
			lastTimestamp: 99999,
			fmtID:         42,
			timestamp:     99999,
		},
		{
			name:          "large timestamp jump",
			lastFmtID:     1,
			lastTimestamp: 0,
			fmtID:         1,
			timestamp:     1 << 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := EntryHeader{
				FmtID:     tt.fmtID,
				Timestamp: tt.timestamp,
			}

			out := make([]byte, 32)
			written := CompressMetadata(header, out, tt.lastTimestamp, tt.lastFmtID)

			if written < 3 {
				t.Fatalf("metadata suspiciously small: %d bytes", written)
			}
			if out[0] == 0 {
				t.Fatalf("metadata descriptor byte must never be zero")
			}

			fmtID, timestamp, consumed, err := DecodeMetadata(out[:written], tt.lastTimestamp, tt.lastFmtID)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if consumed != written {
				t.Fatalf("consumed %d bytes, compressor wrote %d", consumed, written)
			}
			if fmtID != tt.fmtID {
				t.Fatalf("fmtID mismatch: got %d want %d", fmtID, tt.fmtID)
			}
			if timestamp != tt.timestamp {
				t.Fatalf("timestamp mismatch: got %d want %d", timestamp, tt.timestamp)
			}
		})
	}
}

func TestMetadataNeverExceedsHeader(t *testing.T) {
	// The drainer's space check assumes compressed metadata fits in
	// the uncompressed header footprint
	header := EntryHeader{
		FmtID:     1 << 31,
		Timestamp: 1<<63 - 1,
	}

	out := make([]byte, 32)
	written := CompressMetadata(header, out, 0, 0)

	if written > EntryHeaderSize {
		t.Fatalf("compressed metadata of %d bytes exceeds the %d byte header", written, EntryHeaderSize)
	}
}

func TestDecodeMetadataErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "empty input",
			data: []byte{},
		},
		{
			name: "zero descriptor",
			data: []byte{0x00, 0x01, 0x01},
		},
		{
			name: "truncated varints",
			data: []byte{0x52},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := DecodeMetadata(tt.data, 0, 0); err == nil {
				t.Fatalf("expected decode error")
			}
		})
	}
}
