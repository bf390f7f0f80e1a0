// Package entry defines the suggestion entry value and the pull iterator
// contract shared by producers and the sorted replay stage, so pipeline
// stages compose transparently.
package entry

// Entry is one weighted suggestion. Term is the primary sortable key and is
// arbitrary binary, not necessarily text. Payload and Contexts are nil when
// the owning iterator's capability flag is off; a zero-length payload under
// an enabled flag stays non-nil.
type Entry struct {
	Term     []byte
	Weight   int64
	Payload  []byte
	Contexts [][]byte
}

// Iterator is the pull contract for a stream of entries. Next returns the
// next entry, or (nil, nil) once the stream is exhausted. The capability
// flags are fixed for the iterator's lifetime and apply to every entry it
// yields.
type Iterator interface {
	Next() (*Entry, error)
	HasPayloads() bool
	HasContexts() bool
}

// SliceIterator replays an in-memory slice of entries. Used for small inputs
// and as the producer in tests.
type SliceIterator struct {
	entries  []Entry
	pos      int
	payloads bool
	contexts bool
}

// NewSliceIterator returns an iterator over entries with the given
// capability flags.
func NewSliceIterator(entries []Entry, hasPayloads, hasContexts bool) *SliceIterator {
	return &SliceIterator{
		entries:  entries,
		payloads: hasPayloads,
		contexts: hasContexts,
	}
}

func (it *SliceIterator) Next() (*Entry, error) {
	if it.pos >= len(it.entries) {
		return nil, nil
	}
	e := &it.entries[it.pos]
	it.pos++
	return e, nil
}

func (it *SliceIterator) HasPayloads() bool { return it.payloads }

func (it *SliceIterator) HasContexts() bool { return it.contexts }
