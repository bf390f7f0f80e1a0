// Package cli implements the text ingest and export surfaces of the
// termspill command: a TSV line producer, TSV and msgpack emitters for the
// sorted stream, and the patricia-trie load check.
package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/termspill/pkg/entry"
)

// LineIterator streams entries from a text listing, one entry per line:
//
//	term<TAB>weight[<TAB>payload[<TAB>ctx1,ctx2,...]]
//
// The payload column is read only when payloads are enabled, and likewise
// for contexts. Blank lines are skipped. The input is never fully buffered.
type LineIterator struct {
	scanner  *bufio.Scanner
	line     int
	payloads bool
	contexts bool
}

// NewLineIterator returns a producer over r with the given capability flags.
func NewLineIterator(r io.Reader, hasPayloads, hasContexts bool) *LineIterator {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &LineIterator{scanner: sc, payloads: hasPayloads, contexts: hasContexts}
}

func (it *LineIterator) Next() (*entry.Entry, error) {
	for it.scanner.Scan() {
		it.line++
		text := it.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		e, err := it.parse(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", it.line, err)
		}
		return e, nil
	}
	if err := it.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return nil, nil
}

func (it *LineIterator) parse(text string) (*entry.Entry, error) {
	fields := strings.Split(text, "\t")
	if len(fields) < 2 {
		return nil, fmt.Errorf("want at least term and weight, got %d columns", len(fields))
	}
	weight, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad weight %q: %w", fields[1], err)
	}

	e := &entry.Entry{Term: []byte(fields[0]), Weight: weight}
	col := 2
	if it.payloads {
		e.Payload = []byte{}
		if col < len(fields) {
			e.Payload = []byte(fields[col])
		}
		col++
	}
	if it.contexts {
		e.Contexts = [][]byte{}
		if col < len(fields) && fields[col] != "" {
			for _, ctx := range strings.Split(fields[col], ",") {
				e.Contexts = append(e.Contexts, []byte(ctx))
			}
		}
	}
	return e, nil
}

func (it *LineIterator) HasPayloads() bool { return it.payloads }

func (it *LineIterator) HasContexts() bool { return it.contexts }

// Emitter writes sorted entries to an output stream.
type Emitter interface {
	Emit(e *entry.Entry) error
	Close() error
}

// tsvEmitter mirrors the LineIterator input format.
type tsvEmitter struct {
	buf      *bufio.Writer
	payloads bool
	contexts bool
}

// NewTSVEmitter writes entries as TSV lines in the same column layout the
// LineIterator reads.
func NewTSVEmitter(w io.Writer, hasPayloads, hasContexts bool) Emitter {
	return &tsvEmitter{buf: bufio.NewWriter(w), payloads: hasPayloads, contexts: hasContexts}
}

func (t *tsvEmitter) Emit(e *entry.Entry) error {
	var sb strings.Builder
	sb.Write(e.Term)
	sb.WriteByte('\t')
	sb.WriteString(strconv.FormatInt(e.Weight, 10))
	if t.payloads {
		sb.WriteByte('\t')
		sb.Write(e.Payload)
	}
	if t.contexts {
		sb.WriteByte('\t')
		for i, ctx := range e.Contexts {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.Write(ctx)
		}
	}
	sb.WriteByte('\n')
	_, err := t.buf.WriteString(sb.String())
	return err
}

func (t *tsvEmitter) Close() error { return t.buf.Flush() }

// wireEntry is the msgpack shape of one sorted entry. Short keys keep the
// stream compact, matching the completion IPC conventions.
type wireEntry struct {
	Term     []byte   `msgpack:"t"`
	Weight   int64    `msgpack:"w"`
	Payload  []byte   `msgpack:"p,omitempty"`
	Contexts [][]byte `msgpack:"c,omitempty"`
}

type msgpackEmitter struct {
	buf *bufio.Writer
	enc *msgpack.Encoder
}

// NewMsgpackEmitter writes entries as a msgpack stream for downstream index
// builders.
func NewMsgpackEmitter(w io.Writer) Emitter {
	buf := bufio.NewWriter(w)
	return &msgpackEmitter{buf: buf, enc: msgpack.NewEncoder(buf)}
}

func (m *msgpackEmitter) Emit(e *entry.Entry) error {
	return m.enc.Encode(wireEntry{
		Term:     e.Term,
		Weight:   e.Weight,
		Payload:  e.Payload,
		Contexts: e.Contexts,
	})
}

func (m *msgpackEmitter) Close() error { return m.buf.Flush() }

// TrieCheck replays the sorted stream into a patricia trie the way the
// downstream dictionary loader would, proving the output loads cleanly and
// collecting basic stats.
type TrieCheck struct {
	trie      *patricia.Trie
	total     int
	distinct  int
	maxWeight int64
	sample    [][]byte
	sampleCap int
}

// NewTrieCheck returns a check that keeps the first sampleCap distinct
// terms for the report.
func NewTrieCheck(sampleCap int) *TrieCheck {
	return &TrieCheck{trie: patricia.NewTrie(), sampleCap: sampleCap}
}

// Add records one entry. Duplicate terms keep the last weight seen, which
// under ascending weight order is the largest.
func (tc *TrieCheck) Add(e *entry.Entry) {
	if tc.trie.Insert(patricia.Prefix(bytes.Clone(e.Term)), e.Weight) {
		tc.distinct++
		if len(tc.sample) < tc.sampleCap {
			tc.sample = append(tc.sample, bytes.Clone(e.Term))
		}
	} else {
		tc.trie.Set(patricia.Prefix(e.Term), e.Weight)
	}
	tc.total++
	if e.Weight > tc.maxWeight || tc.total == 1 {
		tc.maxWeight = e.Weight
	}
}

// Total returns the number of entries replayed.
func (tc *TrieCheck) Total() int { return tc.total }

// Distinct returns the number of distinct terms seen.
func (tc *TrieCheck) Distinct() int { return tc.distinct }

// MaxWeight returns the largest weight seen.
func (tc *TrieCheck) MaxWeight() int64 { return tc.maxWeight }

// Report logs the collected stats.
func (tc *TrieCheck) Report(l *log.Logger) {
	l.Infof("Verified sorted stream: %d entries, %d distinct terms, max weight %d",
		tc.total, tc.distinct, tc.maxWeight)
	for i, term := range tc.sample {
		l.Debugf("  term[%d] = %q", i, term)
	}
}
