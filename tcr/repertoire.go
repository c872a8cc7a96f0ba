package tcr

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/chooser"
	"github.com/vincentlaboratories/stig/recombine"
)

// Uniqueness selects the collision predicate applied while populating a
// Repertoire. The values double as priority order when a caller
// (incorrectly) sets more than one.
type Uniqueness int

const (
	UniqueNone Uniqueness = iota
	UniqueCDR3
	UniqueChain
	UniqueTCR
)

// Repertoire is a fixed-size array of clones (TCR Cells), constructed
// sequentially because each new cell's uniqueness check depends on every
// earlier one.
type Repertoire struct {
	Clones []Cell
}

// NewRepertoire builds size clones. When more than one of
// uniqueCDR3/uniqueChain/uniqueTCR is requested, priority order is
// UniqueCDR3 > UniqueChain > UniqueTCR, matching the enum's declaration
// order.
func NewRepertoire(rng *rand.Rand, ch *chooser.Chooser, rc *recombine.Recombinator, size int, abFrequency float64, uniqueCDR3, uniqueChain, uniqueTCR bool) *Repertoire {
	mode := UniqueNone
	switch {
	case uniqueCDR3:
		mode = UniqueCDR3
	case uniqueChain:
		mode = UniqueChain
	case uniqueTCR:
		mode = UniqueTCR
	}

	rep := &Repertoire{Clones: make([]Cell, size)}
	for i := 0; i < size; i++ {
		log.Debug.Printf("tcr: generating repertoire clone %d of %d", i+1, size)
		for {
			cell := NewCell(rng, ch, rc, abFrequency)
			if isUnique(mode, cell, rep.Clones[:i]) {
				rep.Clones[i] = cell
				break
			}
			log.Debug.Printf("tcr: clone %d collided under uniqueness mode %d, resampling", i, mode)
		}
	}
	return rep
}

func isUnique(mode Uniqueness, cell Cell, prior []Cell) bool {
	if mode == UniqueNone {
		return true
	}
	cdr3 := cell.CDR3s()
	for _, p := range prior {
		switch mode {
		case UniqueCDR3:
			pcdr3 := p.CDR3s()
			if cdr3[0] == pcdr3[0] || cdr3[0] == pcdr3[1] || cdr3[1] == pcdr3[0] || cdr3[1] == pcdr3[1] {
				return false
			}
		case UniqueChain:
			if cell.Chain1.RNA == p.Chain1.RNA || cell.Chain1.RNA == p.Chain2.RNA ||
				cell.Chain2.RNA == p.Chain1.RNA || cell.Chain2.RNA == p.Chain2.RNA {
				return false
			}
		case UniqueTCR:
			if (cell.Chain1.RNA == p.Chain1.RNA && cell.Chain2.RNA == p.Chain2.RNA) ||
				(cell.Chain1.RNA == p.Chain2.RNA && cell.Chain2.RNA == p.Chain1.RNA) {
				return false
			}
		}
	}
	return true
}

// WriteStatistics emits one TSV row per clone: clone_index, cell_count,
// V1_allele, J1_allele, CDR3_1, RNA_1, DNA_1, V2_allele, J2_allele, CDR3_2,
// RNA_2, DNA_2. Allele columns are formatted as GENE*ALLELE.
func (r *Repertoire) WriteStatistics(w io.Writer, counts []int) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("#clone_index\tcell_count\tV1_allele\tJ1_allele\tCDR3_1\tRNA_1\tDNA_1\tV2_allele\tJ2_allele\tCDR3_2\tRNA_2\tDNA_2")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for i, cell := range r.Clones {
		cdr3 := cell.CDR3s()
		count := 0
		if i < len(counts) {
			count = counts[i]
		}
		tw.WriteUint32(uint32(i))
		tw.WriteUint32(uint32(count))
		tw.WriteString(alleleLabel(cell.Chain1.V))
		tw.WriteString(alleleLabel(cell.Chain1.J))
		tw.WriteString(cdr3[0])
		tw.WriteString(cell.Chain1.RNA.Sequence)
		tw.WriteString(cell.Chain1.DNA.Sequence)
		tw.WriteString(alleleLabel(cell.Chain2.V))
		tw.WriteString(alleleLabel(cell.Chain2.J))
		tw.WriteString(cdr3[1])
		tw.WriteString(cell.Chain2.RNA.Sequence)
		tw.WriteString(cell.Chain2.DNA.Sequence)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func alleleLabel(c catalog.Choice) string {
	return fmt.Sprintf("%s*%s", c.Segment.Gene, c.Allele)
}
