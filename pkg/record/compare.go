package record

// BaseCompare orders two term byte sequences. It must implement a total
// order; bytes.Compare is the usual choice.
type BaseCompare func(a, b []byte) int

// Comparator is the total order over raw encoded records handed to the sort
// stage. It carries the run's capability flags explicitly so it has no
// back-reference to the iterator that built it.
type Comparator struct {
	Base        BaseCompare
	HasPayloads bool
	HasContexts bool
}

// Compare orders a and b by term bytes under Base, tie-breaking on weight
// ascending. It strips trailing metadata from private views of the records;
// the originals are never mutated. Payload and context content is decoded
// only to locate the term boundary and does not participate in the order.
//
// A record with a malformed tail sorts before a well-formed one; the sort
// stage cannot surface errors from inside a comparison, so malformation is
// left to the streaming decode to report.
func (c Comparator) Compare(a, b []byte) int {
	termA, weightA, okA := c.strip(a)
	termB, weightB, okB := c.strip(b)
	if !okA || !okB {
		switch {
		case okA:
			return 1
		case okB:
			return -1
		default:
			return 0
		}
	}

	if cmp := c.Base(termA, termB); cmp != 0 {
		return cmp
	}
	switch {
	case weightA < weightB:
		return -1
	case weightA > weightB:
		return 1
	default:
		return 0
	}
}

func (c Comparator) strip(rec []byte) (term []byte, weight int64, ok bool) {
	weight, rest, err := DecodeWeight(rec)
	if err != nil {
		return nil, 0, false
	}
	if c.HasPayloads {
		if _, rest, err = DecodePayload(rest); err != nil {
			return nil, 0, false
		}
	}
	if c.HasContexts {
		if _, rest, err = DecodeContexts(rest); err != nil {
			return nil, 0, false
		}
	}
	return rest, weight, true
}
