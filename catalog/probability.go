package catalog

import "github.com/pkg/errors"

// JunctionKey names one of the seven discrete length distributions that
// drive the Recombinator's chewback and N-addition draws.
type JunctionKey string

const (
	JVchewback  JunctionKey = "Vchewback"
	JD5chewback JunctionKey = "D5chewback"
	JD3chewback JunctionKey = "D3chewback"
	JJchewback  JunctionKey = "Jchewback"
	JVDaddition JunctionKey = "VDaddition"
	JDJaddition JunctionKey = "DJaddition"
	JVJaddition JunctionKey = "VJaddition"
)

// WeightEntry is one row of the vdj_weights table. The populated Gene
// fields encode the match context: (V) alone, (D,V), (J,V), or (J,V,D).
// First match wins during lookup.
type WeightEntry struct {
	VGene, DGene, JGene string
	Weight              float64
}

// Context reports which fields are set, used by the Chooser to find the
// first entry whose gene set matches the full candidate context.
func (w WeightEntry) Context() (v, d, j bool) {
	return w.VGene != "", w.DGene != "", w.JGene != ""
}

// ProbabilityModel is the recombination probability document: per-context
// VDJ selection weights, and junction-length distributions.
type ProbabilityModel struct {
	VDJWeights            []WeightEntry
	JunctionDistributions map[JunctionKey][]float64
}

// NewProbabilityModel returns an empty model ready to be populated by the
// loader.
func NewProbabilityModel() *ProbabilityModel {
	return &ProbabilityModel{
		JunctionDistributions: make(map[JunctionKey][]float64),
	}
}

// Junction returns the distribution for key, or an error if the model does
// not define one -- a usable model defines all seven.
func (m *ProbabilityModel) Junction(key JunctionKey) ([]float64, error) {
	dist, ok := m.JunctionDistributions[key]
	if !ok || len(dist) == 0 {
		return nil, errors.Errorf("catalog: missing junction distribution %q", key)
	}
	return dist, nil
}

// Validate checks that every junction distribution sums to (approximately)
// 1 and that all weights are non-negative.
func (m *ProbabilityModel) Validate() error {
	required := []JunctionKey{JVchewback, JD5chewback, JD3chewback, JJchewback, JVDaddition, JDJaddition, JVJaddition}
	for _, key := range required {
		dist, ok := m.JunctionDistributions[key]
		if !ok || len(dist) == 0 {
			return errors.Errorf("catalog: probability model missing required distribution %q", key)
		}
		var sum float64
		for _, p := range dist {
			if p < 0 {
				return errors.Errorf("catalog: distribution %q has negative probability %v", key, p)
			}
			sum += p
		}
		if sum < 0.999 || sum > 1.001 {
			return errors.Errorf("catalog: distribution %q sums to %v, want ~1.0", key, sum)
		}
	}
	for _, w := range m.VDJWeights {
		if w.Weight < 0 {
			return errors.Errorf("catalog: negative vdj_weights weight %v for V=%q D=%q J=%q", w.Weight, w.VGene, w.DGene, w.JGene)
		}
	}
	return nil
}
