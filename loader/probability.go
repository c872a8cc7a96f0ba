package loader

import (
	"io"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vincentlaboratories/stig/catalog"
)

// probabilityDocument mirrors the recombination-probability YAML document:
// top-level keys "segments" (-> vdj_weights) and "recombination" (->
// junction). "segments" entries are YAML sequences of mixed length (2, 3,
// or 4 elements, the last always the weight).
type probabilityDocument struct {
	Segments      [][]interface{}      `yaml:"segments"`
	Recombination map[string][]float64 `yaml:"recombination"`
}

// LoadProbabilityModel parses the recombination probability document into
// a catalog.ProbabilityModel. A "segments" entry's gene-role context is
// not positional: a gene string is classified by its own TRxY prefix
// (catalog.ParseGene), which is how a 3-element entry is told apart as
// (D_gene,V_gene,weight) vs. (J_gene,V_gene,weight).
func LoadProbabilityModel(r io.Reader) (*catalog.ProbabilityModel, error) {
	var doc probabilityDocument
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "loader: recombination probability document")
	}

	model := catalog.NewProbabilityModel()
	for i, row := range doc.Segments {
		entry, err := parseWeightRow(row)
		if err != nil {
			log.Printf("loader: segments entry %d: %v, skipping", i, err)
			continue
		}
		model.VDJWeights = append(model.VDJWeights, entry)
	}
	for key, dist := range doc.Recombination {
		model.JunctionDistributions[catalog.JunctionKey(key)] = dist
	}
	return model, nil
}

func parseWeightRow(row []interface{}) (catalog.WeightEntry, error) {
	if len(row) < 2 || len(row) > 4 {
		return catalog.WeightEntry{}, errors.Errorf("expected 2-4 elements, got %d", len(row))
	}
	weight, ok := toFloat(row[len(row)-1])
	if !ok {
		return catalog.WeightEntry{}, errors.Errorf("last element %v is not a weight", row[len(row)-1])
	}
	entry := catalog.WeightEntry{Weight: weight}
	for _, g := range row[:len(row)-1] {
		gene, ok := g.(string)
		if !ok {
			return catalog.WeightEntry{}, errors.Errorf("gene element %v is not a string", g)
		}
		_, segType, _, err := catalog.ParseGene(gene)
		if err != nil {
			return catalog.WeightEntry{}, errors.Wrapf(err, "gene %q", gene)
		}
		switch segType {
		case catalog.SegV:
			entry.VGene = gene
		case catalog.SegD:
			entry.DGene = gene
		case catalog.SegJ:
			entry.JGene = gene
		default:
			return catalog.WeightEntry{}, errors.Errorf("gene %q has unexpected segment type %c for a weight context", gene, segType)
		}
	}
	return entry, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
