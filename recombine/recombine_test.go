package recombine_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/recombine"
	"github.com/vincentlaboratories/stig/refseq"
)

func TestCDR3Match(t *testing.T) {
	// ATG + Cys + 5 codons + FGxG anchor, all in frame. The returned CDR3
	// stops before the anchor's trailing GG[CTAG] codon.
	cys := "TGT"
	middle := "CTAGCTAGCTAGCTAGCTAG" // 20 chars -> not a multiple of 3, keep simple below instead
	_ = middle
	codon5 := "CTA" + "GCT" + "AGC" + "TAG" + "CTA" // five codons, 15 nt
	anchor := "TTTGGAGCAGGA"                        // TT[TC]GG[CTAG][CTAG]{3}GG[CTAG]
	rna := "ATG" + cys + codon5 + anchor
	cdr3, ok := recombine.CDR3(rna)
	require.True(t, ok)
	require.Equal(t, cys+codon5+"TTTGGAGCA", cdr3)
}

func TestRecombineRejectsOutOfFrame(t *testing.T) {
	cat := buildMiniCatalog(t)
	oracle := refseq.NewInMemoryOracle(map[int]string{
		7: seqChr7,
	})
	model := catalog.NewProbabilityModel()
	for _, k := range []catalog.JunctionKey{
		catalog.JVchewback, catalog.JD5chewback, catalog.JD3chewback, catalog.JJchewback,
		catalog.JVDaddition, catalog.JDJaddition, catalog.JVJaddition,
	} {
		model.JunctionDistributions[k] = []float64{1} // always draw 0
	}

	r := recombine.New(cat, model, oracle)
	rng := rand.New(rand.NewSource(1))

	v, _ := cat.Lookup("TRAV1", catalog.RegionVRegion)
	j, _ := cat.Lookup("TRAJ1", catalog.RegionJRegion)
	c, _ := cat.Lookup("TRAC1", catalog.RegionEX1)

	_, _, err := r.Recombine(rng,
		catalog.Choice{Segment: v, Allele: "01"},
		catalog.Choice{},
		catalog.Choice{Segment: j, Allele: "01"},
		catalog.Choice{Segment: c, Allele: "01"},
	)
	// With every junction draw at 0 and empty L-PART, J and C alleles, the
	// assembled RNA is the 37-nt V allele alone; 37 is not a multiple of 3,
	// so validation rejects it as a frame shift.
	require.Error(t, err)
	var rej *recombine.ErrReject
	require.ErrorAs(t, err, &rej)
	require.Equal(t, recombine.FrameShift, rej.Reason)
}

// A tiny synthetic locus just large enough to exercise the V-REGION splice
// and C (EX1) assembly paths.
const seqChr7 = "AAAAAAAAAA" + "ATGTGTCTAGCTAGCTAGCTAGCTATTTGGAGCAGGA" + "AAAAAAAAAA" + "AAAAAAAAAA"

func buildMiniCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	rows := []catalog.Segment{
		{
			Gene: "TRAV1", SegType: catalog.SegV, Region: catalog.RegionVRegion,
			ReceptorType: catalog.Alpha, Chromosome: "7p", Strand: catalog.StrandForward,
			Start: 11, End: 47, Alleles: map[string]string{"01": "ATGTGTCTAGCTAGCTAGCTAGCTATTTGGAGCAGGA"},
		},
		{
			Gene: "TRAV1", SegType: catalog.SegV, Region: catalog.RegionLVGeneUnit,
			ReceptorType: catalog.Alpha, Chromosome: "7p", Strand: catalog.StrandForward,
			Start: 11, End: 47,
		},
		{
			Gene: "TRAV1", SegType: catalog.SegV, Region: catalog.RegionLPart1AndPart2,
			ReceptorType: catalog.Alpha, Chromosome: "7p", Strand: catalog.StrandForward,
			Start: 11, End: 11, Alleles: map[string]string{"01": ""},
		},
		{
			Gene: "TRAJ1", SegType: catalog.SegJ, Region: catalog.RegionJRegion,
			ReceptorType: catalog.Alpha, Chromosome: "7p", Strand: catalog.StrandForward,
			Start: 48, End: 49, Alleles: map[string]string{"01": ""},
		},
		{
			Gene: "TRAC1", SegType: catalog.SegC, Region: catalog.RegionEX1,
			ReceptorType: catalog.Alpha, Chromosome: "7p", Strand: catalog.StrandForward,
			Start: 58, End: 67, Alleles: map[string]string{"01": ""},
		},
	}
	cat, err := catalog.NewCatalog(rows)
	require.NoError(t, err)
	return cat
}
