package storage

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Escrowed blobs carry the time they were written so readers can tell a stale
// copy, left behind by a partly failed write, from the current one.
//
// Format: ["ergx"][format (1 byte)][unix nanoseconds (8 bytes, big endian)][payload]
var envelopeMagic = []byte("ergx")

const (
	envelopeFormat    byte = 1
	envelopeHeaderLen      = 4 + 1 + 8
)

func sealEnvelope(written time.Time, payload []byte) []byte {
	out := make([]byte, envelopeHeaderLen, envelopeHeaderLen+len(payload))
	copy(out, envelopeMagic)
	out[4] = envelopeFormat
	binary.BigEndian.PutUint64(out[5:envelopeHeaderLen], uint64(written.UnixNano()))
	return append(out, payload...)
}

// openEnvelope returns the write version and payload of blob. Blobs without an
// envelope are returned unchanged with version 0, older than any enveloped blob.
func openEnvelope(blob []byte) (int64, []byte) {
	if len(blob) < envelopeHeaderLen || !bytes.HasPrefix(blob, envelopeMagic) || blob[4] != envelopeFormat {
		return 0, blob
	}
	return int64(binary.BigEndian.Uint64(blob[5:envelopeHeaderLen])), blob[envelopeHeaderLen:]
}
