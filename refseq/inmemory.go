package refseq

import "strings"

// InMemoryOracle is a simple map-backed Oracle, used by tests and by small
// synthetic catalogs where holding whole chromosomes in memory is
// acceptable.
type InMemoryOracle struct {
	chrom map[int]string
}

// NewInMemoryOracle builds an Oracle from a map of chromosome number to its
// full forward-strand sequence (uppercased on registration).
func NewInMemoryOracle(chrom map[int]string) *InMemoryOracle {
	m := make(map[int]string, len(chrom))
	for k, v := range chrom {
		m[k] = strings.ToUpper(v)
	}
	return &InMemoryOracle{chrom: m}
}

// Read implements Oracle.Read.
func (o *InMemoryOracle) Read(chromosome int, start, end int, strand Strand) (string, error) {
	if start < 1 || end < start {
		return "", &ErrInvalidRange{Chromosome: chromosome, Start: start, End: end, Reason: "require 1 <= start <= end"}
	}
	seq, ok := o.chrom[chromosome]
	if !ok {
		return "", &ErrUninitializedChromosome{Chromosome: chromosome}
	}
	if end > len(seq) {
		return "", &ErrInvalidRange{Chromosome: chromosome, Start: start, End: end, Reason: "end past end of chromosome"}
	}
	out := seq[start-1 : end]
	if strand == Reverse {
		out = ReverseComplement(out)
	}
	return out, nil
}
