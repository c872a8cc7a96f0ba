// Package catalog holds the immutable, post-load data model for the TCR
// locus: the segment table (V/D/J/C and auxiliary regions with per-allele
// sequences) and the recombination probability model. Both are built once
// by the loader package and are thereafter read-only.
package catalog

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

// ReceptorType is one of the four human TCR chain types.
type ReceptorType byte

const (
	Alpha ReceptorType = 'A'
	Beta  ReceptorType = 'B'
	Gamma ReceptorType = 'G'
	Delta ReceptorType = 'D'
)

func (r ReceptorType) String() string { return string(rune(r)) }

// HasD reports whether chains of this receptor type carry a D segment.
// Alpha and gamma chains never do.
func (r ReceptorType) HasD() bool { return r == Beta || r == Delta }

// SegmentType is the structural role of a segment within the locus.
type SegmentType byte

const (
	SegV SegmentType = 'V'
	SegD SegmentType = 'D'
	SegJ SegmentType = 'J'
	SegC SegmentType = 'C'
)

func (s SegmentType) String() string { return string(rune(s)) }

// Region names the specific annotated region a Segment row describes.
type Region string

const (
	RegionVRegion        Region = "V-REGION"
	RegionDRegion        Region = "D-REGION"
	RegionJRegion        Region = "J-REGION"
	RegionVGeneUnit      Region = "V-GENE-UNIT"
	RegionDGeneUnit      Region = "D-GENE-UNIT"
	RegionJGeneUnit      Region = "J-GENE-UNIT"
	RegionLVGeneUnit     Region = "L-V-GENE-UNIT"
	RegionLPart1AndPart2 Region = "L-PART1+L-PART2"
	RegionEX1            Region = "EX1"
	RegionEX2            Region = "EX2"
	RegionEX3            Region = "EX3"
	RegionEX4            Region = "EX4"
)

// Strand mirrors refseq.Strand in the data model's own vocabulary, so
// catalog does not need to import refseq just to describe a row.
type Strand byte

const (
	StrandForward Strand = '+'
	StrandReverse Strand = '-'
)

func ParseStrandString(s string) (Strand, error) {
	switch s {
	case "forward":
		return StrandForward, nil
	case "reverse":
		return StrandReverse, nil
	default:
		return 0, errors.Errorf("catalog: invalid strand %q", s)
	}
}

func (s Strand) String() string {
	if s == StrandForward {
		return "forward"
	}
	return "reverse"
}

var geneRE = regexp.MustCompile(`^TR([ABGD])(?:([VDJ])(\d+(?:-\d+)?)|(C)(\d*))$`)
var chromosomeRE = regexp.MustCompile(`^([0-9]+)([pq][0-9.]*)?$`)

// Segment is one row of the segment catalog: a named receptor segment with
// its genomic coordinates and per-allele sequences. Segments are immutable
// once loaded.
type Segment struct {
	Gene          string
	ReceptorType  ReceptorType
	SegType       SegmentType
	SegmentNumber string
	Region        Region
	Chromosome    string // e.g. "14q11.2"
	ChromosomeNum int    // leading integer of Chromosome, the refseq.Oracle key
	Strand        Strand
	Start         int // 1-based inclusive, forward strand
	End           int // 1-based inclusive, forward strand
	Alleles       map[string]string
}

// ParseGene validates and decomposes a gene name like "TRAV13-1" or
// "TRBC2", accepting TR[ABGD](V|D|J)\d+(-\d+)? and TR[ABGD]C\d*.
func ParseGene(gene string) (ReceptorType, SegmentType, string, error) {
	m := geneRE.FindStringSubmatch(gene)
	if m == nil {
		return 0, 0, "", errors.Errorf("catalog: malformed gene name %q", gene)
	}
	receptor := ReceptorType(m[1][0])
	if m[2] != "" {
		return receptor, SegmentType(m[2][0]), m[3], nil
	}
	return receptor, SegC, m[5], nil
}

// ParseChromosome extracts the leading decimal chromosome number used as
// the refseq.Oracle key, from a cytogenetic string like "14q11.2".
func ParseChromosome(chromosome string) (int, error) {
	m := chromosomeRE.FindStringSubmatch(chromosome)
	if m == nil {
		return 0, errors.Errorf("catalog: malformed chromosome %q", chromosome)
	}
	var n int
	if _, err := fmt.Sscanf(m[1], "%d", &n); err != nil {
		return 0, errors.Wrapf(err, "catalog: chromosome %q", chromosome)
	}
	return n, nil
}

// Choice pairs a chosen Segment with its allele pick -- the V/D/J/C
// arguments to Recombinator.Recombine.
type Choice struct {
	Segment Segment
	Allele  string
}

// Record is the fixed 6-field coordinate/sequence record produced for one
// chain's DNA or RNA by the Recombinator.
type Record struct {
	Chromosome int
	Start5     int
	Strand5    Strand
	Sequence   string
	Start3     int
	Strand3    Strand
}
