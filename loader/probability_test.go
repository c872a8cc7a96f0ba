package loader_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/loader"
)

func TestLoadProbabilityModel(t *testing.T) {
	doc := `
segments:
  - [TRAV13-1, 0.4]
  - [TRBD1, TRBV1-1, 0.2]
  - [TRBJ1-1, TRBV1-1, 0.1]
  - [TRBJ1-1, TRBV1-1, TRBD1, 0.05]
recombination:
  Vchewback: [0.5, 0.5]
  D5chewback: [1.0]
  D3chewback: [1.0]
  Jchewback: [1.0]
  VDaddition: [1.0]
  DJaddition: [1.0]
  VJaddition: [1.0]
`
	model, err := loader.LoadProbabilityModel(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, model.VDJWeights, 4)

	require.Equal(t, "TRAV13-1", model.VDJWeights[0].VGene)
	require.Equal(t, "", model.VDJWeights[0].DGene)

	require.Equal(t, "TRBD1", model.VDJWeights[1].DGene)
	require.Equal(t, "TRBV1-1", model.VDJWeights[1].VGene)

	require.Equal(t, "TRBJ1-1", model.VDJWeights[2].JGene)
	require.Equal(t, "", model.VDJWeights[2].DGene)

	require.Equal(t, "TRBJ1-1", model.VDJWeights[3].JGene)
	require.Equal(t, "TRBD1", model.VDJWeights[3].DGene)

	dist, err := model.Junction(catalog.JVchewback)
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 0.5}, dist)
}

func TestLoadProbabilityModelSkipsMalformedRow(t *testing.T) {
	doc := `
segments:
  - [TRAV13-1]
  - [BOGUS, 0.5]
recombination: {}
`
	model, err := loader.LoadProbabilityModel(strings.NewReader(doc))
	require.NoError(t, err)
	require.Empty(t, model.VDJWeights)
}
