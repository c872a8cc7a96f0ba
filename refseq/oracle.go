// Package refseq implements random-access lookups over linear reference
// chromosome sequences keyed by 1-based inclusive coordinates and strand.
//
// Readers never scan a chromosome file linearly: they compute a byte
// offset from a fixed line width and seek/read directly.
package refseq

import (
	"github.com/pkg/errors"
)

// Strand is the orientation a sequence is read in relative to the forward
// (reference) strand.
type Strand int

const (
	// Forward is the reference (plus) strand.
	Forward Strand = iota
	// Reverse is the minus strand; reads are reverse-complemented.
	Reverse
)

func (s Strand) String() string {
	switch s {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// ParseStrand parses the strand strings used throughout the segment table
// and probability/catalog data model ("forward"/"reverse").
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "forward":
		return Forward, nil
	case "reverse":
		return Reverse, nil
	default:
		return Forward, errors.Errorf("invalid strand %q", s)
	}
}

// ErrUninitializedChromosome is returned when Read is asked for a
// chromosome that was never registered with the Oracle.
type ErrUninitializedChromosome struct {
	Chromosome int
}

func (e *ErrUninitializedChromosome) Error() string {
	return errors.Errorf("refseq: chromosome %d is not initialized", e.Chromosome).Error()
}

// ErrInvalidRange is returned when the requested coordinates are malformed
// (start < 1 or end < start). InMemoryOracle also returns it for an end
// past the chromosome's length; IndexedFASTA does not, and reports a range
// past the end of its file as a wrapped read error instead.
type ErrInvalidRange struct {
	Chromosome int
	Start, End int
	Reason     string
}

func (e *ErrInvalidRange) Error() string {
	return errors.Errorf("refseq: invalid range [%d, %d] on chromosome %d: %s",
		e.Start, e.End, e.Chromosome, e.Reason).Error()
}

// Oracle is the Reference Oracle contract of the simulator: random-access
// reads over one or more linear chromosome sequences by 1-based inclusive
// coordinates and strand, returning an uppercase {A,C,G,T,N} string.
//
// Implementations must not scan coordinates linearly per call: the
// file-backed IndexedFASTA computes a byte offset directly from registered
// line geometry, and InMemoryOracle slices its in-memory string. Read is not
// required to be reentrant for the same chromosome (callers serialize their
// own access, or implementations lock internally, as IndexedFASTA does).
type Oracle interface {
	// Read returns the nucleotide sequence spanning [start, end] (1-based,
	// inclusive, forward-strand coordinates). If strand is Reverse, the
	// returned string is the reverse complement of that forward span.
	Read(chromosome int, start, end int, strand Strand) (string, error)
}

// Complement maps a single nucleotide to its complement, accepting 'U' on
// input (treated as 'T') and preserving case for any other byte.
func Complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'a':
		return 't'
	case 'C':
		return 'G'
	case 'c':
		return 'g'
	case 'G':
		return 'C'
	case 'g':
		return 'c'
	case 'T', 'U':
		return 'A'
	case 't', 'u':
		return 'a'
	case 'N':
		return 'N'
	case 'n':
		return 'n'
	default:
		return b
	}
}

// ReverseComplement returns the reverse complement of s. It is an involution:
// ReverseComplement(ReverseComplement(s)) == s for any s over {A,C,G,T}.
func ReverseComplement(s string) string {
	n := len(s)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = Complement(s[i])
	}
	return string(out)
}
