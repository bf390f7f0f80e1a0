// Package sorter produces a sorted, disk-backed replay of a stream of
// weighted suggestion entries that is too large to sort in memory.
//
// Construction drains the producer into a temporary spill file of encoded
// records, sorts that file on disk, and reopens the result. The returned
// SortedIterator then serves entries one at a time, ordered by term bytes
// under the caller's base comparator with ties broken on weight ascending.
// Both temporary files are deleted exactly once: on exhaustion, on the first
// streaming failure, on Close, or before a construction error propagates —
// whichever comes first.
package sorter

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/termspill/internal/logger"
	"github.com/bastiangx/termspill/internal/utils"
	"github.com/bastiangx/termspill/pkg/entry"
	"github.com/bastiangx/termspill/pkg/extsort"
	"github.com/bastiangx/termspill/pkg/record"
	"github.com/bastiangx/termspill/pkg/recordio"
)

// Options configures the pipeline.
type Options struct {
	// TempDir receives the spill file, the sorted file, and the sort's
	// intermediate runs. Empty means the OS temp dir.
	TempDir string

	// RunSize is forwarded to the sort stage; see extsort.Options.
	RunSize int

	// Logger for pipeline progress. Defaults to a package logger.
	Logger *log.Logger
}

func (o *Options) withDefaults() Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("sorter")
	}
	return opts
}

// SortedIterator is the forward-only cursor over the sorted entries. It
// implements entry.Iterator, so it composes with further pipeline stages the
// same way the original producer does. Not safe for concurrent use.
type SortedIterator struct {
	cmp        record.Comparator
	reader     *recordio.Reader
	spillPath  string
	sortedPath string
	log        *log.Logger
	done       bool
}

// New runs the full spill-and-sort pipeline synchronously and returns the
// iterator over the sorted stream. The producer's capability flags are read
// once and fixed for the run. On any failure no iterator is returned and
// every temporary file created so far has been deleted.
func New(producer entry.Iterator, base record.BaseCompare, opts *Options) (*SortedIterator, error) {
	o := opts.withDefaults()
	cmp := record.Comparator{
		Base:        base,
		HasPayloads: producer.HasPayloads(),
		HasContexts: producer.HasContexts(),
	}

	spillPath, err := utils.TempFile(o.TempDir, "termspill-spill-*.bin")
	if err != nil {
		return nil, fmt.Errorf("sorter: failed to provision spill file: %w", err)
	}

	count, err := spill(producer, cmp, spillPath)
	if err != nil {
		removeQuietly(o.Logger, spillPath)
		return nil, err
	}
	o.Logger.Debugf("Spilled %d entries to %s", count, spillPath)

	sortedPath, err := utils.TempFile(o.TempDir, "termspill-sorted-*.bin")
	if err != nil {
		removeQuietly(o.Logger, spillPath)
		return nil, fmt.Errorf("sorter: failed to provision sorted file: %w", err)
	}

	sortOpts := &extsort.Options{RunSize: o.RunSize, TempDir: o.TempDir, Logger: o.Logger}
	if err := extsort.Sort(spillPath, sortedPath, cmp.Compare, sortOpts); err != nil {
		removeQuietly(o.Logger, spillPath, sortedPath)
		return nil, fmt.Errorf("sorter: sort failed: %w", err)
	}

	reader, err := recordio.OpenReader(sortedPath)
	if err != nil {
		removeQuietly(o.Logger, spillPath, sortedPath)
		return nil, fmt.Errorf("sorter: failed to open sorted file: %w", err)
	}

	o.Logger.Debugf("Sorted %d entries", count)
	return &SortedIterator{
		cmp:        cmp,
		reader:     reader,
		spillPath:  spillPath,
		sortedPath: sortedPath,
		log:        o.Logger,
	}, nil
}

// spill drains the producer into a recordio file at path, one encoded
// record per entry. The encode buffer is owned by the loop and reused
// across entries. On failure the writer is closed with its error
// suppressed, so the original failure is the one reported.
func spill(producer entry.Iterator, cmp record.Comparator, path string) (int, error) {
	w, err := recordio.OpenWriter(path)
	if err != nil {
		return 0, fmt.Errorf("sorter: failed to open spill writer: %w", err)
	}

	var (
		buf   []byte
		count int
	)
	for {
		e, err := producer.Next()
		if err != nil {
			w.Close()
			return 0, fmt.Errorf("sorter: producer failed: %w", err)
		}
		if e == nil {
			break
		}
		buf, err = record.Encode(e, buf[:0], cmp.HasPayloads, cmp.HasContexts)
		if err != nil {
			w.Close()
			return 0, fmt.Errorf("sorter: failed to encode entry: %w", err)
		}
		if err := w.Append(buf); err != nil {
			w.Close()
			return 0, fmt.Errorf("sorter: failed to write spill record: %w", err)
		}
		count++
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("sorter: failed to close spill writer: %w", err)
	}
	return count, nil
}

// Next returns the next entry in sorted order, or (nil, nil) once the
// stream is exhausted. The first call past the end releases the reader and
// deletes both temporary files; later calls are no-ops. A decode or read
// failure is terminal: resources are released and the error returned, and
// every subsequent call reports exhaustion.
func (it *SortedIterator) Next() (*entry.Entry, error) {
	if it.done {
		return nil, nil
	}

	rec, err := it.reader.Read()
	if err == io.EOF {
		it.release()
		return nil, nil
	}
	if err != nil {
		it.release()
		return nil, fmt.Errorf("sorter: failed to read sorted record: %w", err)
	}

	e, err := it.decode(rec)
	if err != nil {
		it.release()
		return nil, err
	}
	return e, nil
}

// decode peels weight, payload, and contexts off the record tail, leaving
// the term. Field slices alias rec, which Next allocated fresh for this
// entry.
func (it *SortedIterator) decode(rec []byte) (*entry.Entry, error) {
	weight, rest, err := record.DecodeWeight(rec)
	if err != nil {
		return nil, fmt.Errorf("sorter: corrupt sorted record: %w", err)
	}
	e := &entry.Entry{Weight: weight}
	if it.cmp.HasPayloads {
		e.Payload, rest, err = record.DecodePayload(rest)
		if err != nil {
			return nil, fmt.Errorf("sorter: corrupt sorted record: %w", err)
		}
	}
	if it.cmp.HasContexts {
		e.Contexts, rest, err = record.DecodeContexts(rest)
		if err != nil {
			return nil, fmt.Errorf("sorter: corrupt sorted record: %w", err)
		}
	}
	e.Term = rest
	return e, nil
}

// Close disposes the iterator early. It is idempotent, releases the reader,
// and deletes both temporary files; streaming afterwards reports
// exhaustion.
func (it *SortedIterator) Close() error {
	if it.done {
		return nil
	}
	return it.releaseErr()
}

// HasPayloads reports whether entries carry payloads.
func (it *SortedIterator) HasPayloads() bool { return it.cmp.HasPayloads }

// HasContexts reports whether entries carry context sets.
func (it *SortedIterator) HasContexts() bool { return it.cmp.HasContexts }

// Comparator returns the record order actually used for sorting.
func (it *SortedIterator) Comparator() record.Comparator { return it.cmp }

func (it *SortedIterator) release() {
	if err := it.releaseErr(); err != nil {
		it.log.Warnf("Cleanup after streaming failed: %v", err)
	}
}

func (it *SortedIterator) releaseErr() error {
	it.done = true
	errs := []error{
		it.reader.Close(),
		utils.RemoveIfExists(it.spillPath),
		utils.RemoveIfExists(it.sortedPath),
	}
	return errors.Join(errs...)
}

func removeQuietly(l *log.Logger, paths ...string) {
	for _, p := range paths {
		if err := utils.RemoveIfExists(p); err != nil {
			l.Warnf("Failed to remove temp file %s: %v", p, err)
		}
	}
}
