// Package record implements the binary record format for spilled suggestion
// entries and the tie-break comparator over raw records.
//
// A record packs one entry into a single variable-length byte sequence that
// is decodable strictly from its tail, so the comparator and the streaming
// reader never need a forward scan:
//
//	term_bytes
//	[ ctx_bytes, ctx_len:uint16 ]*   (one per context, only when contexts are enabled)
//	[ ctx_count:uint16 ]             (only when contexts are enabled)
//	[ payload_bytes, payload_len:uint16 ] (only when payloads are enabled)
//	weight:int64
//
// All integers are little-endian. Decoding peels fields off the end: weight
// first, then payload, then contexts in reverse insertion order. Each decode
// returns a shortened view of the same backing bytes; the bytes themselves
// are never mutated.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bastiangx/termspill/pkg/entry"
)

const (
	weightSize = 8
	lenSize    = 2

	// MaxFieldLen bounds payload and context lengths, and the context
	// count, to what the 16-bit wire field can carry without sign
	// ambiguity.
	MaxFieldLen = math.MaxInt16
)

var (
	// ErrTruncated reports a record tail shorter than the field being
	// decoded. It indicates a corrupt or internally inconsistent record.
	ErrTruncated = errors.New("record: truncated record tail")

	// ErrFieldTooLarge reports a payload, context, or context count that
	// does not fit the 16-bit wire field.
	ErrFieldTooLarge = errors.New("record: field exceeds 16-bit length bound")
)

// Encode appends the serialized form of e to buf and returns the extended
// buffer. Payload and context fields are written only when the respective
// flag is set; when a flag is set every record carries the field, possibly
// zero-length, because decoding is unconditional on the flag.
func Encode(e *entry.Entry, buf []byte, hasPayloads, hasContexts bool) ([]byte, error) {
	buf = append(buf, e.Term...)

	if hasContexts {
		if len(e.Contexts) > MaxFieldLen {
			return nil, fmt.Errorf("%w: %d contexts", ErrFieldTooLarge, len(e.Contexts))
		}
		for _, ctx := range e.Contexts {
			if len(ctx) > MaxFieldLen {
				return nil, fmt.Errorf("%w: context of %d bytes", ErrFieldTooLarge, len(ctx))
			}
			buf = append(buf, ctx...)
			buf = binary.LittleEndian.AppendUint16(buf, uint16(len(ctx)))
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Contexts)))
	}

	if hasPayloads {
		if len(e.Payload) > MaxFieldLen {
			return nil, fmt.Errorf("%w: payload of %d bytes", ErrFieldTooLarge, len(e.Payload))
		}
		buf = append(buf, e.Payload...)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Payload)))
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Weight))
	return buf, nil
}

// DecodeWeight reads the weight from the last 8 bytes of rec and returns it
// together with the record view shortened by those bytes.
func DecodeWeight(rec []byte) (int64, []byte, error) {
	if len(rec) < weightSize {
		return 0, nil, fmt.Errorf("%w: %d bytes, want weight", ErrTruncated, len(rec))
	}
	cut := len(rec) - weightSize
	w := int64(binary.LittleEndian.Uint64(rec[cut:]))
	return w, rec[:cut], nil
}

// DecodePayload reads the trailing length-prefixed payload and returns it
// with the shortened record view. The returned payload aliases rec.
func DecodePayload(rec []byte) ([]byte, []byte, error) {
	n, rest, err := decodeLen(rec, "payload length")
	if err != nil {
		return nil, nil, err
	}
	if len(rest) < n {
		return nil, nil, fmt.Errorf("%w: %d bytes, want %d byte payload", ErrTruncated, len(rest), n)
	}
	cut := len(rest) - n
	return rest[cut:], rest[:cut], nil
}

// DecodeContexts reads the trailing context count and then each
// length-prefixed context, returning the contexts (in reverse insertion
// order, which is immaterial for a set) and the shortened record view.
func DecodeContexts(rec []byte) ([][]byte, []byte, error) {
	count, rest, err := decodeLen(rec, "context count")
	if err != nil {
		return nil, nil, err
	}
	contexts := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		var ctx []byte
		ctx, rest, err = DecodePayload(rest)
		if err != nil {
			return nil, nil, err
		}
		contexts = append(contexts, ctx)
	}
	return contexts, rest, nil
}

func decodeLen(rec []byte, what string) (int, []byte, error) {
	if len(rec) < lenSize {
		return 0, nil, fmt.Errorf("%w: %d bytes, want %s", ErrTruncated, len(rec), what)
	}
	cut := len(rec) - lenSize
	return int(binary.LittleEndian.Uint16(rec[cut:])), rec[:cut], nil
}
