package loader_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/loader"
)

func TestLoadAlleles(t *testing.T) {
	rows := []catalog.Segment{
		{Gene: "TRAV13-1", Region: catalog.RegionVRegion},
		{Gene: "TRAV13-1", Region: catalog.RegionLPart1AndPart2},
	}
	fasta := strings.Join([]string{
		">X|TRAV13-1*01|X|F|V-REGION|X|X|X|X|X|X|X|X|X|X|X",
		"acgtacgt",
		"acgt",
		">X|TRAV13-1*01|X|F|L-PART1+L-PART2|X|X|X|X|X|X|X|X|X|X|X",
		"ggcc",
		"",
	}, "\n")

	loader.LoadAlleles(rows, strings.NewReader(fasta))

	require.Equal(t, "ACGTACGTACGT", rows[0].Alleles["01"])
	require.Equal(t, "GGCC", rows[1].Alleles["01"])
}

func TestLoadAllelesSkipsUnsupportedRegion(t *testing.T) {
	rows := []catalog.Segment{
		{Gene: "TRAV13-1", Region: catalog.RegionVRegion},
	}
	fasta := ">X|TRAV13-1*01|X|F|V-GENE-UNIT|X|X|X|X|X|X|X|X|X|X|X\nacgt\n"
	loader.LoadAlleles(rows, strings.NewReader(fasta))
	require.Empty(t, rows[0].Alleles)
}

func TestLoadAllelesSkipsMalformedHeader(t *testing.T) {
	rows := []catalog.Segment{
		{Gene: "TRAV13-1", Region: catalog.RegionVRegion},
	}
	fasta := ">not|enough|fields\nacgt\n"
	loader.LoadAlleles(rows, strings.NewReader(fasta))
	require.Empty(t, rows[0].Alleles)
}
