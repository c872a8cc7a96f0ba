// Package chooser implements the Segment Chooser: probability-weighted
// sampling of one (segment, allele) pick at a time, constrained by
// receptor type, role, and the picks already made for this chain.
package chooser

import (
	"math/rand"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/vincentlaboratories/stig/catalog"
)

// Role is the structural slot being filled: V, D, J, or C.
type Role byte

const (
	RoleV Role = 'V'
	RoleD Role = 'D'
	RoleJ Role = 'J'
	RoleC Role = 'C'
)

// ErrNoCandidates is returned when a role's filtered candidate set is
// empty. It is fatal and propagates to the caller; it is not a rejection
// the TCR Cell constructor retries.
type ErrNoCandidates struct {
	ReceptorType catalog.ReceptorType
	Role         Role
}

func (e *ErrNoCandidates) Error() string {
	return errors.Errorf("chooser: no candidates for receptor_type=%s role=%c", e.ReceptorType, e.Role).Error()
}

// Chooser draws segment picks from a Catalog under a ProbabilityModel.
type Chooser struct {
	cat   *catalog.Catalog
	model *catalog.ProbabilityModel
}

func New(cat *catalog.Catalog, model *catalog.ProbabilityModel) *Chooser {
	return &Chooser{cat: cat, model: model}
}

// Choose samples one (segment, allele) pick. V, D, J are the segments
// already chosen for the prior roles in this chain (nil if not yet chosen
// or not applicable); role selects which one is being drawn now.
func (c *Chooser) Choose(rng *rand.Rand, receptorType catalog.ReceptorType, role Role, v, d, j *catalog.Segment) (catalog.Choice, error) {
	if role == RoleD && !receptorType.HasD() {
		return catalog.Choice{}, errors.Errorf("chooser: role=D not applicable to receptor_type=%s", receptorType)
	}
	if role == RoleD && v == nil {
		return catalog.Choice{}, errors.Errorf("chooser: role=D requires V")
	}
	if role == RoleJ {
		if v == nil {
			return catalog.Choice{}, errors.Errorf("chooser: role=J requires V")
		}
		if receptorType.HasD() && d == nil {
			return catalog.Choice{}, errors.Errorf("chooser: role=J requires D for receptor_type=%s", receptorType)
		}
	}
	if role == RoleC && (v == nil || j == nil) {
		return catalog.Choice{}, errors.Errorf("chooser: role=C requires V and J")
	}

	candidates := c.candidates(receptorType, role, v, d, j)
	if len(candidates) == 0 {
		return catalog.Choice{}, &ErrNoCandidates{ReceptorType: receptorType, Role: role}
	}

	idx, err := c.weightedPick(rng, candidates, v, d, j)
	if err != nil {
		return catalog.Choice{}, err
	}
	seg := candidates[idx]

	alleleNames := make([]string, 0, len(seg.Alleles))
	for name := range seg.Alleles {
		alleleNames = append(alleleNames, name)
	}
	if len(alleleNames) == 0 {
		log.Error.Printf("chooser: candidate %s/%s has non-zero weight but no alleles", seg.Gene, seg.Region)
		return catalog.Choice{}, errors.Errorf("chooser: catalog error: %s/%s has no alleles", seg.Gene, seg.Region)
	}
	allele := alleleNames[rng.Intn(len(alleleNames))]
	log.Debug.Printf("chooser: role=%c receptor=%s picked gene=%s allele=%s", role, receptorType, seg.Gene, allele)
	return catalog.Choice{Segment: seg, Allele: allele}, nil
}

func regionForRole(role Role) catalog.Region {
	switch role {
	case RoleV:
		return catalog.RegionVRegion
	case RoleD:
		return catalog.RegionDRegion
	case RoleJ:
		return catalog.RegionJRegion
	default:
		return catalog.RegionEX1
	}
}

// candidates applies the cumulative filters: gene prefix and region for
// the role, same chromosome as V for J and C, J strictly downstream of D,
// and the nearest C downstream of J.
func (c *Chooser) candidates(receptorType catalog.ReceptorType, role Role, v, d, j *catalog.Segment) []catalog.Segment {
	segType := catalog.SegmentType(role)
	region := regionForRole(role)

	var pool []catalog.Segment
	for _, s := range c.cat.Segments(segType, region) {
		if s.ReceptorType == receptorType {
			pool = append(pool, s)
		}
	}

	switch role {
	case RoleJ:
		var out []catalog.Segment
		for _, s := range pool {
			if s.ChromosomeNum != v.ChromosomeNum {
				continue
			}
			if d != nil {
				if v.Strand == catalog.StrandForward {
					if !(s.Start > d.Start) {
						continue
					}
				} else {
					if !(s.Start < d.Start) {
						continue
					}
				}
			}
			out = append(out, s)
		}
		return out
	case RoleC:
		var candidates []catalog.Segment
		for _, s := range pool {
			if s.ChromosomeNum != v.ChromosomeNum {
				continue
			}
			downstream := s.Start > j.Start
			if v.Strand == catalog.StrandReverse {
				downstream = s.Start < j.Start
			}
			if downstream {
				candidates = append(candidates, s)
			}
		}
		return nearestDownstream(candidates, *j, v.Strand)
	default:
		return pool
	}
}

// nearestDownstream keeps only the candidate closest to j in the coding
// direction: smallest start beyond j on the forward strand, largest start
// before j on the reverse strand.
func nearestDownstream(candidates []catalog.Segment, j catalog.Segment, strand catalog.Strand) []catalog.Segment {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, s := range candidates[1:] {
		if strand == catalog.StrandForward {
			if s.Start < best.Start {
				best = s
			}
		} else {
			if s.Start > best.Start {
				best = s
			}
		}
	}
	return []catalog.Segment{best}
}

// weightedPick splits candidates into explicitly weighted and default
// pools, spreads the leftover probability mass equally across the default
// pool, and rolls a cumulative-probability pick.
func (c *Chooser) weightedPick(rng *rand.Rand, candidates []catalog.Segment, v, d, j *catalog.Segment) (int, error) {
	weights := make([]float64, len(candidates))
	explicit := make([]bool, len(candidates))
	var explicitSum float64

	for i, s := range candidates {
		w, ok := c.matchExplicitWeight(s, v, d, j)
		if ok {
			weights[i] = w
			explicit[i] = true
			explicitSum += w
		}
	}
	if explicitSum > 1 {
		log.Printf("chooser: explicit vdj_weights sum to %v (> 1) for gene=%s; continuing", explicitSum, candidates[0].Gene)
	}

	remaining := 1 - explicitSum
	if remaining < 0 {
		remaining = 0
	}
	var nDefault int
	for _, e := range explicit {
		if !e {
			nDefault++
		}
	}
	if nDefault > 0 {
		share := remaining / float64(nDefault)
		for i, e := range explicit {
			if !e {
				weights[i] = share
			}
		}
	}

	r := rng.Float64()
	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return i, nil
		}
	}
	// Floating point rounding can leave r just past the last cumulative
	// sum; fall back to the last candidate rather than erroring.
	return len(weights) - 1, nil
}

// matchExplicitWeight finds the first vdj_weights entry whose gene set
// matches the full context for candidate s; context is encoded by which of
// the V/D/J gene fields are populated on the entry.
func (c *Chooser) matchExplicitWeight(s catalog.Segment, v, d, j *catalog.Segment) (float64, bool) {
	for _, w := range c.model.VDJWeights {
		hasV, hasD, hasJ := w.Context()
		switch {
		case hasV && !hasD && !hasJ:
			if s.SegType == catalog.SegV && w.VGene == s.Gene {
				return w.Weight, true
			}
		case hasD && hasV && !hasJ:
			if s.SegType == catalog.SegD && w.DGene == s.Gene && v != nil && w.VGene == v.Gene {
				return w.Weight, true
			}
		case hasJ && hasV && !hasD:
			if s.SegType == catalog.SegJ && w.JGene == s.Gene && v != nil && w.VGene == v.Gene {
				return w.Weight, true
			}
		case hasJ && hasV && hasD:
			if s.SegType == catalog.SegJ && w.JGene == s.Gene && v != nil && w.VGene == v.Gene && d != nil && w.DGene == d.Gene {
				return w.Weight, true
			}
		}
	}
	return 0, false
}
