package tcr_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/catalog"
	"github.com/vincentlaboratories/stig/chooser"
	"github.com/vincentlaboratories/stig/recombine"
	"github.com/vincentlaboratories/stig/tcr"
)

// The deterministic fixture has exactly one candidate per role, so every
// clone is an identical collision; uniqueness modes other than UniqueNone
// would resample forever here, so this test only exercises UniqueNone.
func TestNewRepertoireBuildsRequestedSize(t *testing.T) {
	cat, model, oracle := buildDeterministicCatalog(t)
	ch := chooser.New(cat, model)
	rc := recombine.New(cat, model, oracle)
	rng := rand.New(rand.NewSource(7))

	rep := tcr.NewRepertoire(rng, ch, rc, 3, 1, false, false, false)
	require.Len(t, rep.Clones, 3)
	for _, c := range rep.Clones {
		require.NotEmpty(t, c.Chain1.RNA.Sequence)
		require.NotEmpty(t, c.Chain2.RNA.Sequence)
	}
}

// A VJaddition distribution that draws either 0 or 3 makes the alpha RNA
// vary between cells (the three inserted nucleotides are random), so
// UniqueTCR has enough distinct outcomes to fill a small repertoire.
func TestNewRepertoireUniqueTCR(t *testing.T) {
	cat, model, oracle := buildDeterministicCatalog(t)
	model.JunctionDistributions[catalog.JVJaddition] = []float64{0.5, 0, 0, 0.5}
	ch := chooser.New(cat, model)
	rc := recombine.New(cat, model, oracle)
	rng := rand.New(rand.NewSource(13))

	rep := tcr.NewRepertoire(rng, ch, rc, 3, 1, false, false, true)
	require.Len(t, rep.Clones, 3)

	seen := make(map[[2]string]bool)
	for _, c := range rep.Clones {
		pair := [2]string{c.Chain1.RNA.Sequence, c.Chain2.RNA.Sequence}
		require.False(t, seen[pair], "duplicate (RNA_1,RNA_2) pair under UniqueTCR")
		seen[pair] = true
	}
}

func TestWriteStatisticsEmitsOneRowPerClone(t *testing.T) {
	cat, model, oracle := buildDeterministicCatalog(t)
	ch := chooser.New(cat, model)
	rc := recombine.New(cat, model, oracle)
	rng := rand.New(rand.NewSource(7))

	rep := tcr.NewRepertoire(rng, ch, rc, 2, 1, false, false, false)

	var buf strings.Builder
	require.NoError(t, rep.WriteStatistics(&buf, []int{10, 20}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3) // header + 2 clones
	require.True(t, strings.HasPrefix(lines[0], "#clone_index"))

	fields := strings.Split(lines[1], "\t")
	require.Equal(t, "0", fields[0])
	require.Equal(t, "10", fields[1])
	require.Equal(t, "TRAV1*01", fields[2])
	require.Equal(t, "TRAJ1*01", fields[3])
	require.NotEmpty(t, fields[4]) // CDR3_1
}
