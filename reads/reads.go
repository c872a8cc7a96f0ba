// Package reads implements the Read Simulator: draws single, paired, or
// amplicon reads from a populated Repertoire, extending into flanking
// reference sequence (UTR) where a draw overruns the clone's recorded
// span.
package reads

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/refseq"
	"github.com/vincentlaboratories/stig/tcr"
)

// Space selects DNA or RNA as the source sequence space.
type Space string

const (
	DNA Space = "dna"
	RNA Space = "rna"
)

// ReadType selects the read-emission shape.
type ReadType string

const (
	Single   ReadType = "single"
	Paired   ReadType = "paired"
	Amplicon ReadType = "amplicon"
)

// defaultAmpliconProbe anchors in Exon 1 of the beta chain C-region on the
// reverse strand.
const defaultAmpliconProbe = "GATCTCTGCTTCTGATGGCTCAAACAC"

// LengthParams carries the gaussian read/insert length parameters. SD of 0
// produces fixed-length draws at Mean.
type LengthParams struct {
	Mean, SD, SDCutoff float64
}

// Params configures one Simulate call.
type Params struct {
	Count         int
	Space         Space
	ReadType      ReadType
	ReadLength    LengthParams
	InsertLength  LengthParams // paired only
	AmpliconProbe string       // amplicon only; defaults to defaultAmpliconProbe if empty
}

// ErrReadGeometry is raised when an emitted read's length does not match
// its drawn length -- an internal invariant failure, always fatal.
type ErrReadGeometry struct {
	Reason string
}

func (e *ErrReadGeometry) Error() string { return "reads: read geometry: " + e.Reason }

// Read is one emitted read: Single carries one sequence, Paired/Amplicon
// carry two.
type Read struct {
	Sequences []string
	Comment   string
}

// Simulate draws p.Count reads from rep under the population counts in
// counts. oracle supplies UTR extension reads.
func Simulate(rng *rand.Rand, oracle refseq.Oracle, rep *tcr.Repertoire, counts []int, p Params) ([]Read, error) {
	probe := p.AmpliconProbe
	if probe == "" {
		probe = defaultAmpliconProbe
	}
	populationSize := 0
	for _, c := range counts {
		populationSize += c
	}
	if populationSize <= 0 {
		return nil, errors.New("reads: population counts sum to zero")
	}

	var out []Read
	for len(out) < p.Count {
		cloneIdx := pickClone(rng, counts, populationSize)
		comment := fmt.Sprintf("@STIG:readnum=%d:clone=%d", len(out), cloneIdx)

		totalReadLength, read1Length, read2Length := drawLengths(rng, p)

		cell := rep.Clones[cloneIdx]
		chain, chainLetter := pickChain(rng, cell)
		record := chainRecord(chain, p.Space)
		comment += fmt.Sprintf(":chain=%s", chainLetter)

		startIndex, ok := startPosition(rng, p.ReadType, record.Sequence, totalReadLength, probe, &comment)
		if !ok {
			continue // amplicon probe not found on this chain; try again
		}

		seq, err := extendUTR(oracle, record, startIndex, totalReadLength)
		if err != nil {
			return nil, err
		}

		read, err := emit(p.ReadType, seq, totalReadLength, read1Length, read2Length, comment)
		if err != nil {
			return nil, err
		}
		out = append(out, read)
	}
	return out, nil
}

func pickClone(rng *rand.Rand, counts []int, populationSize int) int {
	r := rng.Float64() * float64(populationSize)
	var cumulative float64
	for j, c := range counts {
		cumulative += float64(c)
		if r < cumulative {
			return j
		}
	}
	return len(counts) - 1
}

func pickChain(rng *rand.Rand, cell tcr.Cell) (tcr.Chain, catalog.ReceptorType) {
	if rng.Float64() < 0.5 {
		return cell.Chain1, cell.Chain1.ReceptorType
	}
	return cell.Chain2, cell.Chain2.ReceptorType
}

func chainRecord(chain tcr.Chain, space Space) catalog.Record {
	if space == DNA {
		return chain.DNA
	}
	return chain.RNA
}

// drawLengths draws the total read length, and for Paired the insert
// length first with both mate lengths capped by it. read1Length and
// read2Length are only meaningful for Paired.
func drawLengths(rng *rand.Rand, p Params) (totalReadLength, read1Length, read2Length int) {
	switch p.ReadType {
	case Paired:
		insertLength := gaussianDraw(rng, p.InsertLength)
		read1 := gaussianDrawCapped(rng, p.ReadLength, insertLength)
		read2 := gaussianDrawCapped(rng, p.ReadLength, insertLength)
		return insertLength, read1, read2
	default:
		l := gaussianDraw(rng, p.ReadLength)
		return l, l, l
	}
}

// gaussianDraw resamples N(mean,sd) until |x-mean|/sd <= cutoff and x > 0;
// sd == 0 returns mean exactly.
func gaussianDraw(rng *rand.Rand, lp LengthParams) int {
	if lp.SD <= 0 {
		return int(lp.Mean)
	}
	for {
		x := math.Round(rng.NormFloat64()*lp.SD + lp.Mean)
		if x > 0 && math.Abs(x-lp.Mean)/lp.SD <= lp.SDCutoff {
			return int(x)
		}
	}
}

// gaussianDrawCapped additionally rejects draws exceeding cap (the
// paired-read constraint readLength <= insertLength).
func gaussianDrawCapped(rng *rand.Rand, lp LengthParams, maxLen int) int {
	if lp.SD <= 0 {
		return int(lp.Mean)
	}
	for {
		x := gaussianDraw(rng, lp)
		if x <= maxLen {
			return x
		}
	}
}

// startPosition picks where a read begins on the chain sequence: a uniform
// draw over [-(L-1), len-1] for single/paired reads, a probe search for
// amplicon reads. A probe match exactly at position 0 (forward or
// reverse-complement) is treated as "not found" -- a long-standing quirk
// kept for output compatibility.
func startPosition(rng *rand.Rand, readType ReadType, sequence string, totalReadLength int, probe string, comment *string) (int, bool) {
	if readType != Amplicon {
		low := -(totalReadLength - 1)
		high := len(sequence) - 1
		startIndex := low + rng.Intn(high-low+1)
		*comment += fmt.Sprintf(":randpos=%d", startIndex)
		return startIndex, true
	}

	if p := strings.Index(sequence, probe); p > 0 {
		*comment += fmt.Sprintf(":ampliconStartPos=%d", p)
		return p, true
	}
	rc := refseq.ReverseComplement(probe)
	if q := strings.Index(sequence, rc); q > 0 {
		startIndex := q - totalReadLength + len(probe)
		*comment += fmt.Sprintf(":ampliconStartPos=%d:ampliconProbePos=%d", startIndex, startIndex+totalReadLength-len(probe))
		return startIndex, true
	}
	log.Debug.Printf("reads: amplicon probe not found on this chain, skipping")
	return 0, false
}

// extendUTR pads a read that overruns the chain's recorded span with
// flanking reference sequence. The 3' extension begins at the 3' record
// coordinate itself, not one past it, which duplicates the chain's final
// base; kept for output compatibility.
func extendUTR(oracle refseq.Oracle, record catalog.Record, startIndex, totalReadLength int) (string, error) {
	seq := record.Sequence
	utr5 := maxInt(0, minInt(totalReadLength, -startIndex))
	utr3 := maxInt(0, startIndex+totalReadLength-len(seq))

	var b strings.Builder
	if utr5 > 0 {
		strand5 := oracleStrand(record.Strand5)
		s, err := oracle.Read(record.Chromosome, record.Start5-utr5+1, record.Start5, strand5)
		if err != nil {
			return "", errors.Wrap(err, "reads: 5' UTR extension")
		}
		b.WriteString(s)
	}

	midStart := maxInt(0, startIndex)
	midEnd := midStart + totalReadLength - utr5 - utr3
	if midEnd > len(seq) {
		midEnd = len(seq)
	}
	if midEnd > midStart {
		b.WriteString(seq[midStart:midEnd])
	}

	if utr3 > 0 {
		strand3 := oracleStrand(record.Strand3)
		s, err := oracle.Read(record.Chromosome, record.Start3, record.Start3+utr3-1, strand3)
		if err != nil {
			return "", errors.Wrap(err, "reads: 3' UTR extension")
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func oracleStrand(s catalog.Strand) refseq.Strand {
	if s == catalog.StrandReverse {
		return refseq.Reverse
	}
	return refseq.Forward
}

func emit(readType ReadType, seq string, totalReadLength, read1Length, read2Length int, comment string) (Read, error) {
	switch readType {
	case Single:
		if len(seq) != totalReadLength {
			return Read{}, &ErrReadGeometry{Reason: fmt.Sprintf("expected %d, got %d", totalReadLength, len(seq))}
		}
		return Read{Sequences: []string{seq}, Comment: comment}, nil
	case Paired:
		if len(seq) < read1Length || len(seq) < read2Length {
			return Read{}, &ErrReadGeometry{Reason: "assembled sequence shorter than requested mate lengths"}
		}
		read1 := seq[:read1Length]
		read2 := refseq.ReverseComplement(seq[len(seq)-read2Length:])
		if len(read1) != read1Length || len(read2) != read2Length {
			return Read{}, &ErrReadGeometry{Reason: fmt.Sprintf("expected (%d,%d), got (%d,%d)", read1Length, read2Length, len(read1), len(read2))}
		}
		return Read{Sequences: []string{read1, read2}, Comment: comment}, nil
	case Amplicon:
		if len(seq) != totalReadLength {
			return Read{}, &ErrReadGeometry{Reason: fmt.Sprintf("expected %d, got %d", totalReadLength, len(seq))}
		}
		return Read{Sequences: []string{seq, refseq.ReverseComplement(seq)}, Comment: comment}, nil
	default:
		return Read{}, errors.Errorf("reads: invalid read_type %q", readType)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
