// Package recordio reads and writes files of length-framed byte records.
// Each record is a little-endian uint32 length followed by that many bytes.
// The format carries no header; an empty file is a valid empty record
// stream. It backs the spill and sorted files of one pipeline run and is not
// an interchange format.
package recordio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	frameLenSize   = 4
	defaultBufSize = 64 * 1024
)

// ErrCorruptFrame reports a frame whose body is shorter than its declared
// length, i.e. a file truncated mid-record.
var ErrCorruptFrame = errors.New("recordio: truncated record frame")

// Writer appends length-framed records to a file.
type Writer struct {
	f      *os.File
	buf    *bufio.Writer
	closed bool
}

// OpenWriter creates or truncates the file at path and returns a Writer
// over it.
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recordio: failed to create %s: %w", path, err)
	}
	return &Writer{f: f, buf: bufio.NewWriterSize(f, defaultBufSize)}, nil
}

// Append writes one record. The record may be empty.
func (w *Writer) Append(rec []byte) error {
	var lenBuf [frameLenSize]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(rec)))
	if _, err := w.buf.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("recordio: failed to write frame length: %w", err)
	}
	if _, err := w.buf.Write(rec); err != nil {
		return fmt.Errorf("recordio: failed to write frame body: %w", err)
	}
	return nil
}

// Close flushes buffered frames and closes the file. Safe to call more than
// once; only the first call reports errors.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.buf.Flush()
	closeErr := w.f.Close()
	if flushErr != nil {
		return fmt.Errorf("recordio: failed to flush: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("recordio: failed to close: %w", closeErr)
	}
	return nil
}

// Reader reads length-framed records sequentially from a file.
type Reader struct {
	f      *os.File
	buf    *bufio.Reader
	closed bool
}

// OpenReader opens the file at path for sequential record reads.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recordio: failed to open %s: %w", path, err)
	}
	return &Reader{f: f, buf: bufio.NewReaderSize(f, defaultBufSize)}, nil
}

// Read returns the next record, allocating a fresh slice per call so callers
// may retain the bytes. Returns io.EOF exactly at a clean frame boundary and
// ErrCorruptFrame if the file ends mid-record.
func (r *Reader) Read() ([]byte, error) {
	var lenBuf [frameLenSize]byte
	if _, err := io.ReadFull(r.buf, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	rec := make([]byte, n)
	if _, err := io.ReadFull(r.buf, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	return rec, nil
}

// Close closes the underlying file. Safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("recordio: failed to close: %w", err)
	}
	return nil
}
