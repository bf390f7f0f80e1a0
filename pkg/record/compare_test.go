package record_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/termspill/pkg/entry"
	"github.com/bastiangx/termspill/pkg/record"
)

func mustEncode(t *testing.T, e entry.Entry, hasPayloads, hasContexts bool) []byte {
	t.Helper()
	rec, err := record.Encode(&e, nil, hasPayloads, hasContexts)
	require.NoError(t, err)
	return rec
}

func TestComparatorOrder(t *testing.T) {
	tests := []struct {
		name        string
		a, b        entry.Entry
		hasPayloads bool
		hasContexts bool
		want        int
	}{
		{
			name: "term order dominates",
			a:    entry.Entry{Term: []byte("apple"), Weight: 100},
			b:    entry.Entry{Term: []byte("banana"), Weight: 1},
			want: -1,
		},
		{
			name: "equal terms break ties on weight ascending",
			a:    entry.Entry{Term: []byte("apple"), Weight: 2},
			b:    entry.Entry{Term: []byte("apple"), Weight: 5},
			want: -1,
		},
		{
			name: "identical records compare equal",
			a:    entry.Entry{Term: []byte("apple"), Weight: 5},
			b:    entry.Entry{Term: []byte("apple"), Weight: 5},
			want: 0,
		},
		{
			name: "negative weight sorts before positive",
			a:    entry.Entry{Term: []byte("apple"), Weight: -1},
			b:    entry.Entry{Term: []byte("apple"), Weight: 1},
			want: -1,
		},
		{
			name:        "payload bytes do not influence order",
			a:           entry.Entry{Term: []byte("apple"), Weight: 5, Payload: []byte("zzzz")},
			b:           entry.Entry{Term: []byte("apple"), Weight: 5, Payload: []byte("aaaa")},
			hasPayloads: true,
			want:        0,
		},
		{
			name: "context bytes do not influence order",
			a: entry.Entry{
				Term: []byte("apple"), Weight: 5,
				Contexts: [][]byte{[]byte("zz")},
			},
			b: entry.Entry{
				Term: []byte("apple"), Weight: 5,
				Contexts: [][]byte{[]byte("aa"), []byte("bb")},
			},
			hasContexts: true,
			want:        0,
		},
		{
			name: "term prefix orders before longer term",
			a:    entry.Entry{Term: []byte("app"), Weight: 9},
			b:    entry.Entry{Term: []byte("apple"), Weight: 1},
			want: -1,
		},
	}

	cmpFor := func(p, c bool) record.Comparator {
		return record.Comparator{Base: bytes.Compare, HasPayloads: p, HasContexts: c}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := cmpFor(tt.hasPayloads, tt.hasContexts)
			recA := mustEncode(t, tt.a, tt.hasPayloads, tt.hasContexts)
			recB := mustEncode(t, tt.b, tt.hasPayloads, tt.hasContexts)

			assert.Equal(t, tt.want, cmp.Compare(recA, recB))
			assert.Equal(t, -tt.want, cmp.Compare(recB, recA))
		})
	}
}

func TestComparatorLeavesRecordsIntact(t *testing.T) {
	cmp := record.Comparator{Base: bytes.Compare, HasPayloads: true, HasContexts: true}

	recA := mustEncode(t, entry.Entry{
		Term: []byte("a"), Weight: 1,
		Payload:  []byte("p"),
		Contexts: [][]byte{[]byte("c")},
	}, true, true)
	recB := mustEncode(t, entry.Entry{
		Term: []byte("b"), Weight: 2,
		Payload:  []byte("q"),
		Contexts: [][]byte{[]byte("d")},
	}, true, true)

	snapA, snapB := bytes.Clone(recA), bytes.Clone(recB)
	cmp.Compare(recA, recB)
	assert.Equal(t, snapA, recA)
	assert.Equal(t, snapB, recB)
}

func TestComparatorCustomBase(t *testing.T) {
	// Reverse lexicographic base order still gets the ascending weight
	// tiebreak.
	reverse := func(a, b []byte) int { return bytes.Compare(b, a) }
	cmp := record.Comparator{Base: reverse}

	apple := mustEncode(t, entry.Entry{Term: []byte("apple"), Weight: 5}, false, false)
	banana := mustEncode(t, entry.Entry{Term: []byte("banana"), Weight: 1}, false, false)

	assert.Equal(t, 1, cmp.Compare(apple, banana))
	assert.Equal(t, -1, cmp.Compare(banana, apple))
}

func TestComparatorMalformedRecordsSortFirst(t *testing.T) {
	cmp := record.Comparator{Base: bytes.Compare}

	good := mustEncode(t, entry.Entry{Term: []byte("apple"), Weight: 5}, false, false)
	bad := []byte{1, 2}

	assert.Equal(t, 1, cmp.Compare(good, bad))
	assert.Equal(t, -1, cmp.Compare(bad, good))
	assert.Equal(t, 0, cmp.Compare(bad, bad))
}
