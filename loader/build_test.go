package loader_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/loader"
)

func segmentRow(gene, chromosome, strand, region, coords string) string {
	fields := []string{gene, chromosome, strand, "x", "x", "x", "x", "x", region, "x", "x", "x", "x", coords, "x"}
	return strings.Join(fields, "\t")
}

func TestBuildCatalog(t *testing.T) {
	table := strings.Join([]string{
		segmentRow("TRAV13-1", "14q11.2", "forward", "V-REGION", "101..200"),
		segmentRow("TRAV13-1", "14q11.2", "forward", "L-V-GENE-UNIT", "1..200"),
		segmentRow("TRAV13-1", "14q11.2", "forward", "L-PART1+L-PART2", "1..100"),
		segmentRow("TRAC", "14q11.2", "forward", "EX1", "500..600"),
	}, "\n") + "\n"

	fasta := strings.Join([]string{
		">X|TRAV13-1*01|X|F|V-REGION|X|X|X|X|X|X|X|X|X|X|X",
		"acgtacgt",
		">X|TRAV13-1*01|X|F|L-PART1+L-PART2|X|X|X|X|X|X|X|X|X|X|X",
		"gggg",
		">X|TRAC*01|X|F|EX1|X|X|X|X|X|X|X|X|X|X|X",
		"tttt",
		"",
	}, "\n")

	cat, err := loader.BuildCatalog(strings.NewReader(table), []io.Reader{strings.NewReader(fasta)})
	require.NoError(t, err)

	v, ok := cat.Lookup("TRAV13-1", catalog.RegionVRegion)
	require.True(t, ok)
	require.Equal(t, "ACGTACGT", v.Alleles["01"])

	c, ok := cat.Lookup("TRAC", catalog.RegionEX1)
	require.True(t, ok)
	require.Equal(t, "TTTT", c.Alleles["01"])
}

func TestBuildCatalogFromDirMissingSegmentTable(t *testing.T) {
	_, _, _, err := loader.BuildCatalogFromDir(t.TempDir())
	require.Error(t, err)
}
