package segment

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/kailas-cloud/voicerag/internal/domain"
)

// buildHashFields converts a segment into a flat map[string]string for HSET.
func buildHashFields(seg *domain.Segment) map[string]string {
	return map[string]string{
		"text":       seg.Text,
		"session_id": seg.SessionID.String(),
		"seq":        strconv.Itoa(seg.Seq),
		"vector":     vectorToBytes(seg.Vector),
	}
}

// parseHashFields converts a flat hash map back into a segment. The vector
// field is omitted from listing responses and left nil.
func parseHashFields(m map[string]string) domain.Segment {
	seq, _ := strconv.Atoi(m["seq"])
	return domain.Segment{
		Text:      m["text"],
		SessionID: domain.SessionID(m["session_id"]),
		Seq:       seq,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
