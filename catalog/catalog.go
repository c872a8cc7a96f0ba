package catalog

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCatalog is the fatal error kind for a malformed catalog: a uniqueness
// violation on (gene,region), a missing required sibling row, or a
// malformed required field. Only the first duplicate (gene,region) is
// fatal; everything else a loader rejects is skipped with a warning before
// the catalog is ever built.
type ErrCatalog struct {
	Reason string
}

func (e *ErrCatalog) Error() string { return "catalog: " + e.Reason }

// key identifies a Segment row by its two-part natural key.
type key struct {
	gene   string
	region Region
}

// Catalog is the immutable, validated segment table handed to Chooser and
// Recombinator (the probability model travels separately as a
// ProbabilityModel). Build it with
// NewCatalog, which enforces the row-key and sibling invariants up front so
// downstream packages never need to re-check them.
type Catalog struct {
	segments []Segment
	byKey    map[key]int
	byGene   map[string][]int // all rows sharing a gene, any region
}

// NewCatalog validates rows and builds lookup indices. It returns
// *ErrCatalog on the first duplicate (gene,region) pair or missing sibling
// row; rows that are merely malformed are the loader's responsibility to
// have already filtered out.
func NewCatalog(rows []Segment) (*Catalog, error) {
	c := &Catalog{
		segments: rows,
		byKey:    make(map[key]int, len(rows)),
		byGene:   make(map[string][]int, len(rows)),
	}
	for i, s := range rows {
		k := key{s.Gene, s.Region}
		if _, dup := c.byKey[k]; dup {
			return nil, &ErrCatalog{Reason: fmt.Sprintf("duplicate (gene,region) = (%s,%s)", s.Gene, s.Region)}
		}
		c.byKey[k] = i
		c.byGene[s.Gene] = append(c.byGene[s.Gene], i)
	}
	if err := c.validateSiblings(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validateSiblings() error {
	for _, s := range c.segments {
		switch s.Region {
		case RegionVRegion:
			if _, ok := c.byKey[key{s.Gene, RegionLVGeneUnit}]; !ok {
				return &ErrCatalog{Reason: fmt.Sprintf("V-REGION %s has no sibling L-V-GENE-UNIT", s.Gene)}
			}
		case RegionLVGeneUnit:
			if _, ok := c.byKey[key{s.Gene, RegionLPart1AndPart2}]; !ok {
				return &ErrCatalog{Reason: fmt.Sprintf("L-V-GENE-UNIT %s has no sibling L-PART1+L-PART2", s.Gene)}
			}
		}
	}
	// Every C-segment must have at least EX1.
	seenC := map[string]bool{}
	for _, s := range c.segments {
		if s.SegType == SegC {
			seenC[s.Gene] = seenC[s.Gene] || s.Region == RegionEX1
		}
	}
	for gene, hasEX1 := range seenC {
		if !hasEX1 {
			return &ErrCatalog{Reason: fmt.Sprintf("C-segment gene %s has no EX1", gene)}
		}
	}
	return nil
}

// Lookup returns the Segment for an exact (gene,region) pair.
func (c *Catalog) Lookup(gene string, region Region) (Segment, bool) {
	i, ok := c.byKey[key{gene, region}]
	if !ok {
		return Segment{}, false
	}
	return c.segments[i], true
}

// Gene returns every row sharing gene, across all regions (used to gather
// EX1..EX4 for a C-segment, for example).
func (c *Catalog) Gene(gene string) []Segment {
	idx := c.byGene[gene]
	out := make([]Segment, len(idx))
	for i, j := range idx {
		out[i] = c.segments[j]
	}
	return out
}

// Segments returns every row matching segType and region, the candidate
// pool the Chooser filters from.
func (c *Catalog) Segments(segType SegmentType, region Region) []Segment {
	var out []Segment
	for _, s := range c.segments {
		if s.SegType == segType && s.Region == region {
			out = append(out, s)
		}
	}
	return out
}

// All returns every row in the catalog, in load order.
func (c *Catalog) All() []Segment {
	return c.segments
}

// Allele returns the requested allele's sequence for a segment,
// falling back to an error identifying the missing allele rather than
// silently returning an empty string, so callers (the Recombinator) can
// choose whether a missing allele is fatal or should fall back to a
// uniform random pick.
func (s Segment) Allele(name string) (string, error) {
	seq, ok := s.Alleles[name]
	if !ok {
		return "", errors.Errorf("catalog: segment %s/%s has no allele %q", s.Gene, s.Region, name)
	}
	return seq, nil
}
