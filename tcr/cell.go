// Package tcr implements the TCR Cell (a pair of recombined chains) and
// the Repertoire that populates many of them under an optional uniqueness
// constraint.
package tcr

import (
	"math/rand"

	"github.com/grailbio/base/log"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/chooser"
	"github.com/vincentlaboratories/stig/recombine"
)

// Chain is one recombined chain's picks and resulting sequence records.
type Chain struct {
	ReceptorType catalog.ReceptorType
	V            catalog.Choice
	D            catalog.Choice // zero value if this chain has no D (alpha/gamma)
	J            catalog.Choice
	C            catalog.Choice
	DNA          catalog.Record
	RNA          catalog.Record
}

// HasD reports whether this chain carries a D segment.
func (c Chain) HasD() bool { return c.D.Segment.Gene != "" }

// Cell is a paired T-cell receptor: two independently recombined chains,
// either alpha/beta or gamma/delta.
type Cell struct {
	Chain1, Chain2 Chain
}

// CDR3s returns [cdr3(RNA1), cdr3(RNA2)]; an entry is "" if no CDR3 anchor
// matched (should not occur for a successfully constructed cell, since
// recombination validation already required one).
func (c Cell) CDR3s() [2]string {
	cdr3a, _ := recombine.CDR3(c.Chain1.RNA.Sequence)
	cdr3b, _ := recombine.CDR3(c.Chain2.RNA.Sequence)
	return [2]string{cdr3a, cdr3b}
}

// NewCell draws the type pair from abFrequency, then independently
// recombines each chain, retrying the whole chain (re-picking V through C)
// on any recombination rejection.
func NewCell(rng *rand.Rand, ch *chooser.Chooser, rc *recombine.Recombinator, abFrequency float64) Cell {
	type1, type2 := catalog.Gamma, catalog.Delta
	if rng.Float64() <= abFrequency {
		type1, type2 = catalog.Alpha, catalog.Beta
	}
	return Cell{
		Chain1: buildChain(rng, ch, rc, type1),
		Chain2: buildChain(rng, ch, rc, type2),
	}
}

func buildChain(rng *rand.Rand, ch *chooser.Chooser, rc *recombine.Recombinator, receptorType catalog.ReceptorType) Chain {
	attempt := 0
	for {
		attempt++
		v, err := ch.Choose(rng, receptorType, chooser.RoleV, nil, nil, nil)
		if err != nil {
			log.Panicf("tcr: choosing V for %s: %v", receptorType, err)
		}

		var d catalog.Choice
		if receptorType.HasD() {
			d, err = ch.Choose(rng, receptorType, chooser.RoleD, &v.Segment, nil, nil)
			if err != nil {
				log.Panicf("tcr: choosing D for %s: %v", receptorType, err)
			}
		}

		var dPtr *catalog.Segment
		if receptorType.HasD() {
			dPtr = &d.Segment
		}
		j, err := ch.Choose(rng, receptorType, chooser.RoleJ, &v.Segment, dPtr, nil)
		if err != nil {
			log.Panicf("tcr: choosing J for %s: %v", receptorType, err)
		}

		c, err := ch.Choose(rng, receptorType, chooser.RoleC, &v.Segment, dPtr, &j.Segment)
		if err != nil {
			log.Panicf("tcr: choosing C for %s: %v", receptorType, err)
		}

		dna, rna, err := rc.Recombine(rng, v, d, j, c)
		if err != nil {
			if _, ok := err.(*recombine.ErrReject); !ok {
				log.Panicf("tcr: recombining %s: %v", receptorType, err)
			}
			log.Debug.Printf("tcr: chain %s rejected on attempt %d: %v", receptorType, attempt, err)
			continue
		}
		return Chain{ReceptorType: receptorType, V: v, D: d, J: j, C: c, DNA: dna, RNA: rna}
	}
}
