package tcr_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/chooser"
	"github.com/vincentlaboratories/stig/recombine"
	"github.com/vincentlaboratories/stig/refseq"
	"github.com/vincentlaboratories/stig/tcr"
)

// buildDeterministicCatalog returns a catalog with exactly one candidate
// per (receptor_type,role), so the Chooser's weighted pick and the
// Recombinator's junction rolls are fully deterministic given a zeroed
// probability model (every junction distribution always draws index 0).
// The alpha and beta chain alleles are hand-built so their assembled RNA
// is guaranteed to pass frame/stop/CDR3 validation on the first attempt,
// avoiding any retry loop in the test.
func buildDeterministicCatalog(t *testing.T) (*catalog.Catalog, *catalog.ProbabilityModel, refseq.Oracle) {
	t.Helper()

	const (
		ag = "ATG"          // start
		cy = "TGT"          // Cys (CDR3 start)
		m1 = "CTG"          // +
		m2 = "AGC"          // +
		m3 = "ACG"          // +
		m4 = "CAG"          // +
		m5 = "ACT"          // 5 middle codons total (D+J for beta; all in V for alpha)
		an = "TTTGGCAAAGGA" // FGxG anchor, 4 codons
	)
	alphaV := ag + cy + m1 + m2 + m3 + m4 + m5 // 21nt, all of V for alpha
	alphaJ := an                               // 12nt
	betaV := ag + cy                           // 6nt
	betaD := m1 + m2                           // 6nt
	betaJ := m3 + m4 + m5 + an                 // 21nt

	rows := []catalog.Segment{
		{Gene: "TRAV1", SegType: catalog.SegV, Region: catalog.RegionVRegion, ReceptorType: catalog.Alpha,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 11, End: 11,
			Alleles: map[string]string{"01": alphaV}},
		{Gene: "TRAV1", SegType: catalog.SegV, Region: catalog.RegionLVGeneUnit, ReceptorType: catalog.Alpha,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 11, End: 11},
		{Gene: "TRAV1", SegType: catalog.SegV, Region: catalog.RegionLPart1AndPart2, ReceptorType: catalog.Alpha,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 1, End: 1,
			Alleles: map[string]string{"01": ""}},
		{Gene: "TRAJ1", SegType: catalog.SegJ, Region: catalog.RegionJRegion, ReceptorType: catalog.Alpha,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 40, End: 40,
			Alleles: map[string]string{"01": alphaJ}},
		{Gene: "TRAC1", SegType: catalog.SegC, Region: catalog.RegionEX1, ReceptorType: catalog.Alpha,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 60, End: 60,
			Alleles: map[string]string{"01": ""}},

		{Gene: "TRBV1", SegType: catalog.SegV, Region: catalog.RegionVRegion, ReceptorType: catalog.Beta,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 111, End: 111,
			Alleles: map[string]string{"01": betaV}},
		{Gene: "TRBV1", SegType: catalog.SegV, Region: catalog.RegionLVGeneUnit, ReceptorType: catalog.Beta,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 111, End: 111},
		{Gene: "TRBV1", SegType: catalog.SegV, Region: catalog.RegionLPart1AndPart2, ReceptorType: catalog.Beta,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 101, End: 101,
			Alleles: map[string]string{"01": ""}},
		{Gene: "TRBD1", SegType: catalog.SegD, Region: catalog.RegionDRegion, ReceptorType: catalog.Beta,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 120, End: 120,
			Alleles: map[string]string{"01": betaD}},
		{Gene: "TRBJ1", SegType: catalog.SegJ, Region: catalog.RegionJRegion, ReceptorType: catalog.Beta,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 140, End: 140,
			Alleles: map[string]string{"01": betaJ}},
		{Gene: "TRBC1", SegType: catalog.SegC, Region: catalog.RegionEX1, ReceptorType: catalog.Beta,
			Chromosome: "7p14", ChromosomeNum: 7, Strand: catalog.StrandForward, Start: 160, End: 160,
			Alleles: map[string]string{"01": ""}},
	}

	cat, err := catalog.NewCatalog(rows)
	require.NoError(t, err)

	model := catalog.NewProbabilityModel()
	for _, k := range []catalog.JunctionKey{
		catalog.JVchewback, catalog.JD5chewback, catalog.JD3chewback, catalog.JJchewback,
		catalog.JVDaddition, catalog.JDJaddition, catalog.JVJaddition,
	} {
		model.JunctionDistributions[k] = []float64{1} // always draw index 0 (length 0)
	}

	oracle := refseq.NewInMemoryOracle(map[int]string{7: strings.Repeat("A", 300)})
	return cat, model, oracle
}

func TestNewCellProducesValidatedChains(t *testing.T) {
	cat, model, oracle := buildDeterministicCatalog(t)
	ch := chooser.New(cat, model)
	rc := recombine.New(cat, model, oracle)
	rng := rand.New(rand.NewSource(1))

	cell := tcr.NewCell(rng, ch, rc, 1 /* always alpha/beta */)

	require.Equal(t, catalog.Alpha, cell.Chain1.ReceptorType)
	require.Equal(t, catalog.Beta, cell.Chain2.ReceptorType)
	require.False(t, cell.Chain1.HasD())
	require.True(t, cell.Chain2.HasD())

	const wantRNA = "ATGTGTCTGAGCACGCAGACTTTTGGCAAAGGA"
	require.Equal(t, wantRNA, cell.Chain1.RNA.Sequence)
	require.Equal(t, wantRNA, cell.Chain2.RNA.Sequence)

	cdr3 := cell.CDR3s()
	require.NotEmpty(t, cdr3[0])
	require.NotEmpty(t, cdr3[1])

	_, ok := recombine.CDR3(cell.Chain1.RNA.Sequence)
	require.True(t, ok)
}

func TestNewCellIsDeterministicForAFixedSeed(t *testing.T) {
	cat, model, oracle := buildDeterministicCatalog(t)
	ch := chooser.New(cat, model)
	rc := recombine.New(cat, model, oracle)

	a := tcr.NewCell(rand.New(rand.NewSource(42)), ch, rc, 1)
	b := tcr.NewCell(rand.New(rand.NewSource(42)), ch, rc, 1)

	require.Equal(t, a.Chain1.RNA.Sequence, b.Chain1.RNA.Sequence)
	require.Equal(t, a.Chain2.RNA.Sequence, b.Chain2.RNA.Sequence)
	require.Equal(t, a.Chain1.V.Allele, b.Chain1.V.Allele)
}
